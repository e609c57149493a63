package services

import (
	"context"
	"testing"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

func TestGetManuscriptBlindsEditorsDuringTriage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	view, err := f.journal.Workflow.GetManuscript(ctx, f.editor, m.ManuscriptID)
	require.NoError(t, err)
	require.Nil(t, view.AuthorID)
	require.Empty(t, view.AuthorName)
	require.Empty(t, view.CoverLetter)
	require.Equal(t, []models.ArtifactKind{models.ArtifactBlindedFile}, view.Artifacts)

	view, err = f.journal.Workflow.GetManuscript(ctx, f.author, m.ManuscriptID)
	require.NoError(t, err)
	require.NotNil(t, view.AuthorID)
	require.Equal(t, "Ada Author", view.AuthorName)
	require.Len(t, view.Artifacts, 4)

	_, err = f.journal.Workflow.TriageDecision(ctx, f.editor, m.ManuscriptID, models.DecisionTriageApprove, "", "")
	require.NoError(t, err)
	view, err = f.journal.Workflow.GetManuscript(ctx, f.editor, m.ManuscriptID)
	require.NoError(t, err)
	require.NotNil(t, view.AuthorID)
	require.Equal(t, "Ada Author", view.AuthorName)
	require.Contains(t, view.Artifacts, models.ArtifactFullFile)
}

func TestReviewerSeesBlindedView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.inReview(t)

	_, err := f.journal.Workflow.GetManuscript(ctx, f.reviewer, m.ManuscriptID)
	requireKind(t, err, KindUnauthorized)

	_, err = f.journal.Reviews.Invite(ctx, f.editor, m.ManuscriptID, f.reviewer.UserID, InviteOptions{})
	require.NoError(t, err)
	view, err := f.journal.Workflow.GetManuscript(ctx, f.reviewer, m.ManuscriptID)
	require.NoError(t, err)
	require.Nil(t, view.AuthorID)
	require.Empty(t, view.Conflicts)
	require.Equal(t, []models.ArtifactKind{models.ArtifactBlindedFile}, view.Artifacts)

	list, err := f.journal.Workflow.ListManuscripts(ctx, f.reviewer, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, m.ManuscriptID, list[0].ManuscriptID)
}

func TestListManuscriptsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)
	f.inReview(t)
	_, err := f.journal.Workflow.SubmitManuscript(ctx, f.author2, validSubmission())
	require.NoError(t, err)

	all, err := f.journal.Workflow.ListManuscripts(ctx, f.managing, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	triage, err := f.journal.Workflow.ListManuscripts(ctx, f.editor, ListQuery{Stage: models.StageTriage})
	require.NoError(t, err)
	require.Len(t, triage, 2)

	own, err := f.journal.Workflow.ListManuscripts(ctx, f.author2, ListQuery{})
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = f.journal.Workflow.ListManuscripts(ctx, f.editor, ListQuery{Stage: "draft"})
	requireKind(t, err, KindValidation)
	_, err = f.journal.Workflow.ListManuscripts(ctx, Actor{UserID: 99}, ListQuery{})
	requireKind(t, err, KindUnauthorized)
}

func TestHistoryRedactsAuthorDuringTriage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.submit(t)
	_, err := f.journal.Workflow.TriageDecision(ctx, f.editor, m.ManuscriptID, models.DecisionTriageRequestChanges, "Anonymise.", "")
	require.NoError(t, err)
	_, err = f.journal.Workflow.UploadRevision(ctx, f.author, m.ManuscriptID, RevisionInput{Notes: "Removed my name, Ada.", Artifacts: revisedArtifacts("2")})
	require.NoError(t, err)

	h, err := f.journal.Workflow.History(ctx, f.editor, m.ManuscriptID)
	require.NoError(t, err)
	require.Len(t, h.Transitions, 3)
	for _, tr := range h.Transitions {
		require.NotEqual(t, f.author.UserID, tr.ChangedBy)
	}
	require.Len(t, h.Revisions, 1)
	require.Empty(t, h.Revisions[0].Notes)
	require.Empty(t, h.Revisions[0].NewArtifacts.Full)
	require.Equal(t, "artifacts/blinded-2.pdf", h.Revisions[0].NewArtifacts.Blinded)

	h, err = f.journal.Workflow.History(ctx, f.author, m.ManuscriptID)
	require.NoError(t, err)
	require.Equal(t, "Removed my name, Ada.", h.Revisions[0].Notes)
	require.Equal(t, f.author.UserID, h.Transitions[0].ChangedBy)

	_, err = f.journal.Workflow.History(ctx, f.reviewer, m.ManuscriptID)
	requireKind(t, err, KindUnauthorized)
}
