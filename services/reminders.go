package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"journal-review-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrReminderSweepRunning is returned when another process holds the sweep lock.
var ErrReminderSweepRunning = errors.New("reminder sweep already running")

// ReminderLockName is the lock shared by every process running the sweep.
const ReminderLockName = "journal_reminder_sweep"

// Locker takes a named cross-process lock.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func() error, err error)
}

// MySQLLocker uses GET_LOCK so only one instance sweeps at a time.
type MySQLLocker struct {
	db *gorm.DB
}

func NewMySQLLocker(db *gorm.DB) *MySQLLocker {
	return &MySQLLocker{db: db}
}

func (l *MySQLLocker) Acquire(ctx context.Context, name string) (func() error, error) {
	if strings.TrimSpace(name) == "" {
		return func() error { return nil }, nil
	}

	var ok int
	if err := l.db.WithContext(ctx).Raw("SELECT GET_LOCK(?, 0)", name).Scan(&ok).Error; err != nil {
		return nil, err
	}
	if ok != 1 {
		return nil, ErrReminderSweepRunning
	}

	return func() error {
		var released int
		return l.db.WithContext(persistentContext(ctx)).Raw("SELECT RELEASE_LOCK(?)", name).Scan(&released).Error
	}, nil
}

// ReminderSummary reports what a sweep found.
type ReminderSummary struct {
	OverdueReviews int
	OverdueTriage  int
	Events         []Event
	StartedAt      time.Time
	FinishedAt     time.Time
}

// ReminderService finds overdue reviews and triage deadlines. Due dates are
// advisory: the sweep only produces reminder events and never changes state.
type ReminderService struct {
	core
	locker Locker
}

func NewReminderService(store Store, opts Options) *ReminderService {
	return &ReminderService{core: newCore(store, nil, opts)}
}

// WithLocker sets the cross-process lock used by Sweep.
func (s *ReminderService) WithLocker(l Locker) *ReminderService {
	s.locker = l
	return s
}

// Sweep collects reminder events for everything overdue at the current time.
func (s *ReminderService) Sweep(ctx context.Context) (*ReminderSummary, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, ReminderLockName)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil {
				s.log.Warn("failed to release reminder lock", zap.Error(err))
			}
		}()
	}

	now := s.now()
	summary := &ReminderSummary{StartedAt: now}
	err := s.store.Read(ctx, func(repo Repository) error {
		reviews, err := repo.ListReviews(ReviewFilter{Statuses: models.ActiveReviewStatuses, DueBefore: &now})
		if err != nil {
			return err
		}
		titles := make(map[uint]string)
		for _, r := range reviews {
			if err := ctx.Err(); err != nil {
				return err
			}
			title, ok := titles[r.ManuscriptID]
			if !ok {
				if m, err := repo.GetManuscript(r.ManuscriptID); err == nil {
					title = m.Title
				}
				titles[r.ManuscriptID] = title
			}
			summary.Events = append(summary.Events, Event{
				Kind:         EventReviewOverdue,
				ManuscriptID: r.ManuscriptID,
				ReviewID:     r.ReviewID,
				UserIDs:      []uint{r.ReviewerID, r.EditorID},
				Data: map[string]string{
					"title":    title,
					"status":   string(r.Status),
					"due_date": r.DueDate.Format("2006-01-02"),
				},
				At: now,
			})
		}
		summary.OverdueReviews = len(reviews)

		manuscripts, err := repo.ListManuscripts(ManuscriptFilter{
			Stages:               []models.ManuscriptStage{models.StageTriage},
			TriageDeadlineBefore: &now,
		})
		if err != nil {
			return err
		}
		for _, m := range manuscripts {
			summary.Events = append(summary.Events, Event{
				Kind:         EventTriageOverdue,
				ManuscriptID: m.ManuscriptID,
				Roles:        editorialRoles,
				Data: map[string]string{
					"title":           m.Title,
					"triage_deadline": m.TriageDeadline.Format("2006-01-02"),
				},
				At: now,
			})
		}
		summary.OverdueTriage = len(manuscripts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.FinishedAt = s.now()
	s.log.Info("reminder sweep finished",
		zap.Int("overdue_reviews", summary.OverdueReviews),
		zap.Int("overdue_triage", summary.OverdueTriage),
	)
	return summary, nil
}
