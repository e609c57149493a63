package services

import (
	"context"
	"testing"
	"time"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	busy     bool
	acquired int
	released int
}

func (l *stubLocker) Acquire(context.Context, string) (func() error, error) {
	if l.busy {
		return nil, ErrReminderSweepRunning
	}
	l.acquired++
	return func() error {
		l.released++
		return nil
	}, nil
}

func TestReminderSweepFindsOverdueWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)
	inv, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	done := f.completeReview(t, m.ManuscriptID, f.reviewer2, models.RecommendAccept)
	triage := f.submit(t)

	locker := &stubLocker{}
	sweeper := f.journal.Reminders.WithLocker(locker)

	summary, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, summary.OverdueReviews)
	require.Zero(t, summary.OverdueTriage)
	require.Empty(t, summary.Events)

	f.clock.Advance(DefaultReviewWindow + time.Hour)
	summary, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.OverdueReviews, "completed reviews are never overdue")
	require.Equal(t, 1, summary.OverdueTriage)
	require.Len(t, summary.Events, 2)

	review := summary.Events[0]
	require.Equal(t, EventReviewOverdue, review.Kind)
	require.Equal(t, inv.Review.ReviewID, review.ReviewID)
	require.NotEqual(t, done.ReviewID, review.ReviewID)
	require.ElementsMatch(t, []uint{f.reviewer.UserID, f.editor.UserID}, review.UserIDs)

	overdueTriage := summary.Events[1]
	require.Equal(t, EventTriageOverdue, overdueTriage.Kind)
	require.Equal(t, triage.ManuscriptID, overdueTriage.ManuscriptID)
	require.Equal(t, editorialRoles, overdueTriage.Roles)

	require.Equal(t, 2, locker.acquired)
	require.Equal(t, 2, locker.released)

	status := f.manuscript(t, triage.ManuscriptID).Stage
	require.Equal(t, models.StageTriage, status, "reminders never change state")
}

func TestReminderSweepSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	_, err := f.journal.Reminders.WithLocker(&stubLocker{busy: true}).Sweep(context.Background())
	require.ErrorIs(t, err, ErrReminderSweepRunning)
}
