package services

import (
	"context"
	"testing"
	"time"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

func TestReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)

	inv, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	require.Equal(t, models.ReviewPending, inv.Review.Status)
	require.Equal(t, 1, inv.Review.ReviewRound)
	require.False(t, inv.Rereview)
	require.Equal(t, testEpoch.Add(DefaultReviewWindow), inv.Review.DueDate)
	require.Equal(t, []uint{f.reviewer.UserID}, inv.Events[0].UserIDs)
	require.NotContains(t, inv.Events[0].Data, "author", "invitations carry no author identity")

	id := inv.Review.ReviewID
	_, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, validReview(models.RecommendAccept))
	requireKind(t, err, KindInvalidState)

	_, err = f.journal.Reviews.Respond(ctx, f.reviewer2, id, true)
	requireKind(t, err, KindUnauthorized)

	res, err := f.journal.Reviews.Respond(ctx, f.reviewer, id, true)
	require.NoError(t, err)
	require.Equal(t, models.ReviewInProgress, res.Review.Status)
	require.Equal(t, []uint{f.editor.UserID}, res.Events[0].UserIDs)

	_, err = f.journal.Reviews.Respond(ctx, f.reviewer, id, false)
	requireKind(t, err, KindInvalidState)

	bad := validReview(models.RecommendAccept)
	bad.ClarityScore = score(6)
	_, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, bad)
	requireKind(t, err, KindValidation)

	bad = validReview(models.RecommendAccept)
	bad.OpenScienceScore = nil
	_, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, bad)
	requireKind(t, err, KindValidation)

	bad = validReview(models.Recommendation("maybe"))
	_, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, bad)
	requireKind(t, err, KindValidation)

	good := validReview(models.RecommendMinorRevision)
	good.ImpactScore = score(2)
	res, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, good)
	require.NoError(t, err)
	require.Equal(t, models.ReviewCompleted, res.Review.Status)
	require.Equal(t, 2, *res.Review.ImpactScore)
	require.NotNil(t, res.Review.SubmittedAt)

	_, err = f.journal.Reviews.Submit(ctx, f.reviewer, id, good)
	requireKind(t, err, KindInvalidState)
}

func TestInviteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)
	reviews := f.journal.Reviews

	_, err := reviews.Invite(ctx, f.reviewer, m.ManuscriptID, f.reviewer2.UserID, InviteOptions{})
	requireKind(t, err, KindUnauthorized)
	_, err = reviews.Invite(ctx, f.editor, m.ManuscriptID, f.author2.UserID, InviteOptions{})
	requireKind(t, err, KindValidation)
	_, err = reviews.Invite(ctx, f.editor, m.ManuscriptID, 404, InviteOptions{})
	requireKind(t, err, KindNotFound)
	_, err = reviews.Invite(ctx, f.editor, 404, f.reviewer.UserID, InviteOptions{})
	requireKind(t, err, KindNotFound)

	past := testEpoch.Add(-time.Hour)
	_, err = reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{DueDate: &past})
	requireKind(t, err, KindValidation)

	due := testEpoch.Add(10 * 24 * time.Hour)
	inv, err := reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{DueDate: &due})
	require.NoError(t, err)
	require.Equal(t, due, inv.Review.DueDate)

	_, err = reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	requireKind(t, err, KindConflict)

	_, err = reviews.Respond(ctx, f.reviewer, inv.Review.ReviewID, false)
	require.NoError(t, err)
	again, err := reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err, "a declined invitation does not block a new one")
	require.False(t, again.Rereview)
}

func TestInviteAfterRevisionIsRereview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)
	f.completeReview(t, m.ManuscriptID, f.reviewer, models.RecommendMajorRevision)

	_, err := f.journal.Workflow.EditorDecision(ctx, f.editor, m.ManuscriptID, models.DecisionMajorRevision, "Major changes needed.", "")
	require.NoError(t, err)
	_, err = f.journal.Workflow.UploadRevision(ctx, f.author, m.ManuscriptID, RevisionInput{Notes: "Reworked.", Artifacts: revisedArtifacts("2")})
	require.NoError(t, err)

	inv, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	require.True(t, inv.Rereview)
	require.Equal(t, 2, inv.Review.ReviewRound)
	require.Equal(t, "true", inv.Events[0].Data["is_rereview"])
}

func TestInviteRejectedOnAcceptedManuscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)
	_, err := f.journal.Workflow.EditorDecision(ctx, f.editor, m.ManuscriptID, models.DecisionAccept, "Accepted.", "")
	require.NoError(t, err)

	_, err = f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	requireKind(t, err, KindInvalidState)
}

func TestBulkInviteCollectsOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.inReview(t)
	b := f.inReview(t)
	_, err := f.journal.Reviews.Invite(ctx, f.editor, b.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)

	res, err := f.journal.Reviews.BulkInvite(ctx, f.editor, f.reviewer.UserID, []uint{a.ManuscriptID, b.ManuscriptID, a.ManuscriptID, 404})
	require.NoError(t, err)
	require.Equal(t, 1, res.Invited)
	require.Len(t, res.Outcomes, 3)
	require.NotZero(t, res.Outcomes[0].ReviewID)
	require.Equal(t, KindConflict, res.Outcomes[1].Kind)
	require.Equal(t, KindNotFound, res.Outcomes[2].Kind)
	require.Len(t, res.Events, 1)

	_, err = f.journal.Reviews.BulkInvite(ctx, f.editor, f.reviewer.UserID, nil)
	requireKind(t, err, KindValidation)
}

func TestReviewVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)
	done := f.completeReview(t, m.ManuscriptID, f.reviewer, models.RecommendAccept)
	_, err := f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer2.UserID, InviteOptions{})
	require.NoError(t, err)

	editorViews, err := f.journal.Reviews.ListForManuscript(ctx, f.editor, m.ManuscriptID)
	require.NoError(t, err)
	require.Len(t, editorViews, 2)
	require.Equal(t, f.reviewer.UserID, editorViews[0].ReviewerID)
	require.Equal(t, "Solid work, minor issues.", editorViews[0].CommentsToEditor)

	authorViews, err := f.journal.Reviews.ListForManuscript(ctx, f.author, m.ManuscriptID)
	require.NoError(t, err)
	require.Len(t, authorViews, 1)
	require.Zero(t, authorViews[0].ReviewerID)
	require.Empty(t, authorViews[0].CommentsToEditor)
	require.Empty(t, authorViews[0].Recommendation)
	require.Equal(t, "Please clarify the sampling design.", authorViews[0].CommentsToAuthor)

	reviewerViews, err := f.journal.Reviews.ListForManuscript(ctx, f.reviewer2, m.ManuscriptID)
	require.NoError(t, err)
	require.Len(t, reviewerViews, 1)
	require.Equal(t, models.ReviewPending, reviewerViews[0].Status)

	_, err = f.journal.Reviews.ListForManuscript(ctx, f.author2, m.ManuscriptID)
	requireKind(t, err, KindUnauthorized)

	view, err := f.journal.Reviews.GetReview(ctx, f.author, done.ReviewID)
	require.NoError(t, err)
	require.Zero(t, view.ReviewerID)
	_, err = f.journal.Reviews.GetReview(ctx, f.reviewer2, done.ReviewID)
	requireKind(t, err, KindUnauthorized)

	f.clock.Advance(DefaultReviewWindow + time.Hour)
	assigned, err := f.journal.Reviews.ListAssigned(ctx, f.reviewer2, nil)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.True(t, assigned[0].Overdue)
	require.Equal(t, m.Title, assigned[0].ManuscriptTitle)

	_, err = f.journal.Reviews.ListAssigned(ctx, f.author, nil)
	requireKind(t, err, KindUnauthorized)
}
