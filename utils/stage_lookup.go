package utils

import (
	"fmt"
	"strings"

	"journal-review-api/models"
)

var (
	stageSynonyms = map[models.ManuscriptStage][]string{
		models.StageTriage: {
			"triage",
			"submitted",
			"new",
			"gfj_triage",
		},
		models.StageReview: {
			"review",
			"under_review",
			"in_review",
			"peer_review",
		},
		models.StageRevision: {
			"revision",
			"revisions",
			"revision_requested",
			"revisions_requested",
		},
		models.StageAccepted: {
			"accepted",
			"accept",
		},
		models.StageRejected: {
			"rejected",
			"reject",
			"declined",
		},
		models.StagePublished: {
			"published",
			"publish",
		},
	}
	stageAliasToCanonical = buildAliasMap(stageSynonyms)

	decisionSynonyms = map[models.DecisionType][]string{
		models.DecisionTriageApprove: {
			"triage_approve",
			"approve",
			"send_to_review",
		},
		models.DecisionTriageRequestChanges: {
			"triage_request_changes",
			"request_changes",
			"changes",
		},
		models.DecisionTriageDeskReject: {
			"triage_desk_reject",
			"desk_reject",
		},
		models.DecisionAccept: {
			"accept",
			"accepted",
		},
		models.DecisionMinorRevision: {
			"minor_revision",
			"minor",
			"minor_revisions",
		},
		models.DecisionMajorRevision: {
			"major_revision",
			"major",
			"major_revisions",
		},
		models.DecisionReject: {
			"reject",
			"rejected",
		},
	}
	decisionAliasToCanonical = buildAliasMap(decisionSynonyms)
)

func buildAliasMap[T ~string](synonyms map[T][]string) map[string]T {
	aliasMap := make(map[string]T)
	for canonical, aliases := range synonyms {
		aliasMap[normalizeCode(string(canonical))] = canonical
		for _, alias := range aliases {
			if normalized := normalizeCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

// normalizeCode lower-cases and folds spaces and dashes to underscores.
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(code)
}

// ParseStage maps a stage name or one of its aliases to the canonical stage.
func ParseStage(raw string) (models.ManuscriptStage, error) {
	if stage, ok := stageAliasToCanonical[normalizeCode(raw)]; ok {
		return stage, nil
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// ParseDecision maps a decision name or alias to its canonical type. At
// triage the bare verbs approve/request_changes/desk_reject are accepted;
// "reject" there means a desk rejection.
func ParseDecision(raw string, atTriage bool) (models.DecisionType, error) {
	t, ok := decisionAliasToCanonical[normalizeCode(raw)]
	if !ok {
		return "", fmt.Errorf("unknown decision %q", raw)
	}
	if atTriage && t == models.DecisionReject {
		return models.DecisionTriageDeskReject, nil
	}
	return t, nil
}

// ParseRecommendation normalises a reviewer recommendation.
func ParseRecommendation(raw string) (models.Recommendation, error) {
	r := models.Recommendation(normalizeCode(raw))
	switch r {
	case "minor":
		r = models.RecommendMinorRevision
	case "major":
		r = models.RecommendMajorRevision
	}
	if !r.Valid() {
		return "", fmt.Errorf("unknown recommendation %q", raw)
	}
	return r, nil
}
