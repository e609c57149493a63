package services

import (
	"context"
	"sync"
	"time"

	"journal-review-api/models"
)

var statsTTL = time.Minute

// JournalStats summarises the workflow for managing editors.
type JournalStats struct {
	ByStage        map[models.ManuscriptStage]int64 `json:"by_stage"`
	Total          int64                            `json:"total"`
	PendingReviews int64                            `json:"pending_reviews"`
	ActiveReviews  int64                            `json:"active_reviews"`
	OverdueReviews int64                            `json:"overdue_reviews"`
	OverdueTriage  int64                            `json:"overdue_triage"`
	GeneratedAt    time.Time                        `json:"generated_at"`
}

// ExportRow is one manuscript in a data export. Author identity is not exported.
type ExportRow struct {
	ManuscriptID     uint                   `json:"manuscript_id"`
	Title            string                 `json:"title"`
	Stage            models.ManuscriptStage `json:"stage"`
	ArticleType      string                 `json:"article_type"`
	RevisionCount    int                    `json:"revision_count"`
	ReviewsCompleted int64                  `json:"reviews_completed"`
	ReviewsActive    int64                  `json:"reviews_active"`
	TriageDecision   string                 `json:"triage_decision,omitempty"`
	EditorDecision   string                 `json:"editor_decision,omitempty"`
	SubmittedAt      time.Time              `json:"submitted_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// StatsService serves cached workflow statistics and exports.
type StatsService struct {
	core

	mu     sync.RWMutex
	cached *JournalStats
}

func NewStatsService(store Store, opts Options) *StatsService {
	return &StatsService{core: newCore(store, nil, opts)}
}

// Summary returns the workflow statistics, served from cache for a short while.
func (s *StatsService) Summary(ctx context.Context, actor Actor, force bool) (*JournalStats, error) {
	if err := actor.require(CapViewStatistics); err != nil {
		return nil, s.reject("stats", actor, err)
	}

	now := s.now()
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil && !force && now.Sub(cached.GeneratedAt) < statsTTL {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && !force && now.Sub(s.cached.GeneratedAt) < statsTTL {
		return s.cached, nil
	}

	stats := &JournalStats{GeneratedAt: now}
	err := s.store.Read(ctx, func(repo Repository) error {
		byStage, err := repo.CountManuscriptsByStage()
		if err != nil {
			return err
		}
		stats.ByStage = byStage
		for _, n := range byStage {
			stats.Total += n
		}
		if stats.PendingReviews, err = repo.CountReviews(ReviewFilter{Statuses: []models.ReviewStatus{models.ReviewPending}}); err != nil {
			return err
		}
		if stats.ActiveReviews, err = repo.CountReviews(ReviewFilter{Statuses: []models.ReviewStatus{models.ReviewInProgress}}); err != nil {
			return err
		}
		if stats.OverdueReviews, err = repo.CountReviews(ReviewFilter{Statuses: models.ActiveReviewStatuses, DueBefore: &now}); err != nil {
			return err
		}
		overdue, err := repo.ListManuscripts(ManuscriptFilter{
			Stages:               []models.ManuscriptStage{models.StageTriage},
			TriageDeadlineBefore: &now,
		})
		if err != nil {
			return err
		}
		stats.OverdueTriage = int64(len(overdue))
		return nil
	})
	if err != nil {
		return nil, s.reject("stats", actor, err)
	}
	s.cached = stats
	return stats, nil
}

// ClearCache drops the cached statistics.
func (s *StatsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// Export returns every manuscript with its review counts.
func (s *StatsService) Export(ctx context.Context, actor Actor, stage models.ManuscriptStage) ([]ExportRow, error) {
	if err := actor.require(CapExportData); err != nil {
		return nil, s.reject("export", actor, err)
	}
	filter := ManuscriptFilter{}
	if stage != stageNone {
		if !stage.Valid() {
			return nil, validation("unknown stage %q", stage)
		}
		filter.Stages = []models.ManuscriptStage{stage}
	}

	var rows []ExportRow
	err := s.store.Read(ctx, func(repo Repository) error {
		manuscripts, err := repo.ListManuscripts(filter)
		if err != nil {
			return err
		}
		rows = make([]ExportRow, 0, len(manuscripts))
		for _, m := range manuscripts {
			completed, err := repo.CountReviews(ReviewFilter{
				ManuscriptID: m.ManuscriptID,
				Statuses:     []models.ReviewStatus{models.ReviewCompleted},
			})
			if err != nil {
				return err
			}
			active, err := repo.CountReviews(ReviewFilter{
				ManuscriptID: m.ManuscriptID,
				Statuses:     models.ActiveReviewStatuses,
			})
			if err != nil {
				return err
			}
			rows = append(rows, ExportRow{
				ManuscriptID:     m.ManuscriptID,
				Title:            m.Title,
				Stage:            m.Stage,
				ArticleType:      m.ArticleType,
				RevisionCount:    m.RevisionCount,
				ReviewsCompleted: completed,
				ReviewsActive:    active,
				TriageDecision:   m.TriageDecision,
				EditorDecision:   m.EditorDecision,
				SubmittedAt:      m.SubmittedAt,
				UpdatedAt:        m.UpdatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, s.reject("export", actor, err)
	}
	return rows, nil
}
