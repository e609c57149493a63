package services

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTriageWindow = 7 * 24 * time.Hour
	DefaultReviewWindow = 21 * 24 * time.Hour
)

// Options carries the shared dependencies of the core services.
type Options struct {
	Logger       *zap.Logger
	Metrics      *Metrics
	Now          func() time.Time
	TriageWindow time.Duration
	ReviewWindow time.Duration
}

type core struct {
	store        Store
	users        UserDirectory
	log          *zap.Logger
	metrics      *Metrics
	now          func() time.Time
	triageWindow time.Duration
	reviewWindow time.Duration
}

func newCore(store Store, users UserDirectory, opts Options) core {
	c := core{
		store:        store,
		users:        users,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
		triageWindow: opts.TriageWindow,
		reviewWindow: opts.ReviewWindow,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.triageWindow <= 0 {
		c.triageWindow = DefaultTriageWindow
	}
	if c.reviewWindow <= 0 {
		c.reviewWindow = DefaultReviewWindow
	}
	return c
}

// reject records a failed operation and hands the error back.
func (c *core) reject(op string, actor Actor, err error) error {
	kind := KindOf(err)
	c.metrics.rejected(op, kind)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Uint("actor_id", actor.UserID),
		zap.String("role", string(actor.Role)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	switch kind {
	case KindIntegrity:
		c.log.Error("decision and stage writes may have diverged, operator intervention required", fields...)
	case KindInternal:
		c.log.Error("workflow operation failed", fields...)
	default:
		c.log.Debug("workflow operation rejected", fields...)
	}
	return err
}

// Journal bundles the core services over one store and directory.
type Journal struct {
	Access    *AccessService
	Workflow  *WorkflowService
	Reviews   *ReviewService
	Decisions *DecisionService
	Stats     *StatsService
	Reminders *ReminderService
}

func NewJournal(store Store, users UserDirectory, opts Options) *Journal {
	workflow := NewWorkflowService(store, users, opts)
	return &Journal{
		Access:    NewAccessService(store),
		Workflow:  workflow,
		Reviews:   NewReviewService(store, users, opts),
		Decisions: NewDecisionService(store, workflow),
		Stats:     NewStatsService(store, opts),
		Reminders: NewReminderService(store, opts),
	}
}
