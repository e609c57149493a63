package services

import (
	"context"
	"testing"
	"time"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store   *MemoryStore
	users   *MemoryUserDirectory
	clock   *testClock
	journal *Journal

	author    Actor
	author2   Actor
	reviewer  Actor
	reviewer2 Actor
	editor    Actor
	eic       Actor
	managing  Actor
	admin     Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := NewMemoryUserDirectory(
		models.User{UserID: 1, DisplayName: "Ada Author", Email: "ada@example.org", Role: "author"},
		models.User{UserID: 2, DisplayName: "Rita Reviewer", Email: "rita@example.org", Role: "gfj_reviewer"},
		models.User{UserID: 3, DisplayName: "Rob Reviewer", Email: "rob@example.org", Role: "reviewer"},
		models.User{UserID: 4, DisplayName: "Eddie Editor", Email: "eddie@example.org", Role: "editor"},
		models.User{UserID: 5, DisplayName: "Chief", Email: "chief@example.org", Role: "eic"},
		models.User{UserID: 6, DisplayName: "Mona Managing", Email: "mona@example.org", Role: "managing_editor"},
		models.User{UserID: 7, DisplayName: "Root", Email: "root@example.org", Role: "admin"},
		models.User{UserID: 8, DisplayName: "Ben Author", Email: "ben@example.org", Role: "gfj_author"},
	)
	clock := &testClock{now: testEpoch}
	store := NewMemoryStore()
	f := &fixture{
		store: store,
		users: users,
		clock: clock,
		journal: NewJournal(store, users, Options{
			Metrics: NewMetrics(nil),
			Now:     clock.Now,
		}),
	}
	actor := func(id uint) Actor {
		u, err := users.GetUser(context.Background(), id)
		require.NoError(t, err)
		return ActorFromUser(u)
	}
	f.author, f.reviewer, f.reviewer2 = actor(1), actor(2), actor(3)
	f.editor, f.eic, f.managing, f.admin, f.author2 = actor(4), actor(5), actor(6), actor(7), actor(8)
	return f
}

func validSubmission() SubmissionInput {
	return SubmissionInput{
		Title:       "Reproducible pipelines for field ecology",
		ArticleType: "research",
		Abstract:    "We describe a pipeline.",
		Keywords:    "ecology, reproducibility",
		AIStatement: "No generative tools were used.",
		Conflicts:   "None declared.",
		CoverLetter: "Dear editors,",
		Artifacts: models.ArtifactSet{
			Blinded: "artifacts/blinded-1.pdf",
			Full:    "artifacts/full-1.pdf",
			Latex:   "artifacts/src-1.zip",
			Car:     "artifacts/car-1.json",
		},
	}
}

func revisedArtifacts(n string) models.ArtifactSet {
	return models.ArtifactSet{
		Blinded: "artifacts/blinded-" + n + ".pdf",
		Full:    "artifacts/full-" + n + ".pdf",
		Latex:   "artifacts/src-" + n + ".zip",
	}
}

func (f *fixture) submit(t *testing.T) *models.Manuscript {
	t.Helper()
	res, err := f.journal.Workflow.SubmitManuscript(context.Background(), f.author, validSubmission())
	require.NoError(t, err)
	return res.Manuscript
}

// inReview submits a manuscript and approves it at triage.
func (f *fixture) inReview(t *testing.T) *models.Manuscript {
	t.Helper()
	m := f.submit(t)
	res, err := f.journal.Workflow.TriageDecision(context.Background(), f.editor, m.ManuscriptID, models.DecisionTriageApprove, "", "")
	require.NoError(t, err)
	return res.Manuscript
}

func (f *fixture) manuscript(t *testing.T, id uint) *models.Manuscript {
	t.Helper()
	var m *models.Manuscript
	require.NoError(t, f.store.Read(context.Background(), func(repo Repository) error {
		var err error
		m, err = repo.GetManuscript(id)
		return err
	}))
	return m
}

func (f *fixture) transitions(t *testing.T, id uint) []models.StageTransition {
	t.Helper()
	var rows []models.StageTransition
	require.NoError(t, f.store.Read(context.Background(), func(repo Repository) error {
		var err error
		rows, err = repo.ListTransitions(id)
		return err
	}))
	return rows
}

func (f *fixture) decisions(t *testing.T, id uint) []models.Decision {
	t.Helper()
	var rows []models.Decision
	require.NoError(t, f.store.Read(context.Background(), func(repo Repository) error {
		var err error
		rows, err = repo.ListDecisions(id)
		return err
	}))
	return rows
}

// completeReview invites reviewer, accepts and submits a review with the given recommendation.
func (f *fixture) completeReview(t *testing.T, manuscriptID uint, reviewer Actor, rec models.Recommendation) *models.Review {
	t.Helper()
	ctx := context.Background()
	inv, err := f.journal.Reviews.Invite(ctx, f.editor, manuscriptID, reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	_, err = f.journal.Reviews.Respond(ctx, reviewer, inv.Review.ReviewID, true)
	require.NoError(t, err)
	res, err := f.journal.Reviews.Submit(ctx, reviewer, inv.Review.ReviewID, validReview(rec))
	require.NoError(t, err)
	return res.Review
}

func score(n int) *int { return &n }

func validReview(rec models.Recommendation) ReviewSubmission {
	return ReviewSubmission{
		RelevanceScore:   score(4),
		SoundnessScore:   score(3),
		ClarityScore:     score(5),
		OpenScienceScore: score(4),
		CommentsToAuthor: "Please clarify the sampling design.",
		CommentsToEditor: "Solid work, minor issues.",
		Recommendation:   rec,
	}
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
