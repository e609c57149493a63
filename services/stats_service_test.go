package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"journal-review-api/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatsSummaryIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)
	m := f.inReview(t)
	_, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)

	_, err = f.journal.Stats.Summary(ctx, f.editor, false)
	requireKind(t, err, KindUnauthorized)

	stats, err := f.journal.Stats.Summary(ctx, f.managing, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.ByStage[models.StageTriage])
	require.Equal(t, int64(1), stats.ByStage[models.StageReview])
	require.Equal(t, int64(0), stats.ByStage[models.StagePublished])
	require.Equal(t, int64(1), stats.PendingReviews)

	f.submit(t)
	cached, err := f.journal.Stats.Summary(ctx, f.managing, false)
	require.NoError(t, err)
	require.Same(t, stats, cached)

	fresh, err := f.journal.Stats.Summary(ctx, f.managing, true)
	require.NoError(t, err)
	require.Equal(t, int64(3), fresh.Total)

	f.submit(t)
	f.clock.Advance(statsTTL + time.Second)
	expired, err := f.journal.Stats.Summary(ctx, f.managing, false)
	require.NoError(t, err)
	require.Equal(t, int64(4), expired.Total)
	require.Zero(t, expired.OverdueTriage)

	f.clock.Advance(DefaultTriageWindow)
	f.journal.Stats.ClearCache()
	overdue, err := f.journal.Stats.Summary(ctx, f.managing, false)
	require.NoError(t, err)
	require.Equal(t, int64(3), overdue.OverdueTriage)
}

func TestStatsExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)
	m := f.inReview(t)
	f.completeReview(t, m.ManuscriptID, f.reviewer, models.RecommendAccept)

	rows, err := f.journal.Stats.Export(ctx, f.managing, models.StageReview)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, m.ManuscriptID, rows[0].ManuscriptID)
	require.Equal(t, int64(1), rows[0].ReviewsCompleted)
	require.Equal(t, int64(0), rows[0].ReviewsActive)

	all, err := f.journal.Stats.Export(ctx, f.admin, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = f.journal.Stats.Export(ctx, f.managing, "draft")
	requireKind(t, err, KindValidation)
	_, err = f.journal.Stats.Export(ctx, f.eic, "")
	requireKind(t, err, KindUnauthorized)
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := NewMemoryStore()
	users := NewMemoryUserDirectory(
		models.User{UserID: 1, Role: "author"},
		models.User{UserID: 4, Role: "editor"},
	)
	j := NewJournal(store, users, Options{Metrics: metrics, Now: func() time.Time { return testEpoch }})
	ctx := context.Background()
	author := Actor{UserID: 1, Role: RoleAuthor}
	editor := Actor{UserID: 4, Role: RoleEditor}

	res, err := j.Workflow.SubmitManuscript(ctx, author, validSubmission())
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("", "triage", "submit")))

	_, err = j.Workflow.EditorDecision(ctx, editor, res.Manuscript.ManuscriptID, models.DecisionAccept, "ok", "")
	requireKind(t, err, KindInvalidState)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.rejections.WithLabelValues("editor_decision", string(KindInvalidState))))

	store.commitHook = func() error { return errors.New("lost connection") }
	_, err = j.Workflow.TriageDecision(ctx, editor, res.Manuscript.ManuscriptID, models.DecisionTriageApprove, "", "")
	requireKind(t, err, KindIntegrity)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.integrityFailures))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.decisions.WithLabelValues(string(models.DecisionTriageApprove))))
}
