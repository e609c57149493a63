package utils

import (
	"testing"

	"journal-review-api/models"

	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	cases := map[string]models.ManuscriptStage{
		"triage":              models.StageTriage,
		" Under Review ":      models.StageReview,
		"in-review":           models.StageReview,
		"REVISIONS_REQUESTED": models.StageRevision,
		"accepted":            models.StageAccepted,
		"declined":            models.StageRejected,
		"published":           models.StagePublished,
	}
	for raw, want := range cases {
		got, err := ParseStage(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseStage("archived")
	require.Error(t, err)
	_, err = ParseStage("")
	require.Error(t, err)
}

func TestParseDecision(t *testing.T) {
	got, err := ParseDecision("approve", true)
	require.NoError(t, err)
	require.Equal(t, models.DecisionTriageApprove, got)

	got, err = ParseDecision("Request Changes", true)
	require.NoError(t, err)
	require.Equal(t, models.DecisionTriageRequestChanges, got)

	got, err = ParseDecision("reject", true)
	require.NoError(t, err)
	require.Equal(t, models.DecisionTriageDeskReject, got)

	got, err = ParseDecision("reject", false)
	require.NoError(t, err)
	require.Equal(t, models.DecisionReject, got)

	got, err = ParseDecision("major", false)
	require.NoError(t, err)
	require.Equal(t, models.DecisionMajorRevision, got)

	_, err = ParseDecision("maybe", false)
	require.Error(t, err)
}

func TestParseRecommendation(t *testing.T) {
	got, err := ParseRecommendation("Minor")
	require.NoError(t, err)
	require.Equal(t, models.RecommendMinorRevision, got)

	got, err = ParseRecommendation("reject-resubmit")
	require.NoError(t, err)
	require.Equal(t, models.RecommendRejectResubmit, got)

	_, err = ParseRecommendation("strong accept")
	require.Error(t, err)
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "title", SanitizeInput("  ti\x00tle \n"))
	require.Equal(t, "abc", SanitizeText("abcdef", 3))
	require.Equal(t, "ééé", SanitizeText("éééé", 3))
	require.Equal(t, "abcdef", SanitizeText("abcdef", 0))
	require.True(t, ValidateEmail("ada@example.org"))
	require.False(t, ValidateEmail("ada@"))
	require.True(t, ValidateURL(""))
	require.True(t, ValidateURL("https://github.com/org/repo"))
	require.False(t, ValidateURL("javascript:alert(1)"))
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, IsBcryptHash(hash))
	require.True(t, CheckPassword(hash, "correct horse"))
	require.False(t, CheckPassword(hash, "battery staple"))
	require.False(t, IsBcryptHash("plaintext"))

	ok, msg := ValidatePassword("short")
	require.False(t, ok)
	require.NotEmpty(t, msg)
}
