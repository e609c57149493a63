package services

import (
	"context"

	"journal-review-api/models"
)

// CanView decides whether actor may see kind on m. assigned reports whether
// the actor currently holds a non-declined review on m.
//
// Rules are evaluated in order and the first match wins:
//  1. the manuscript's author sees everything of their own manuscript;
//  2. author identity: reviewers never, nobody else during triage, afterwards
//     roles holding view_author_identity;
//  3. full file, latex and car: during triage only override_decisions holders,
//     afterwards view_full_manuscripts holders;
//  4. blinded file: view_blinded, triage or view_full holders at any stage;
//  5. metadata: view_all_manuscripts holders, or an assigned reviewer;
//  6. everything else is denied.
//
// The decision depends only on the current stage, never on stage history.
func CanView(actor Actor, m *models.Manuscript, kind models.ArtifactKind, assigned bool) bool {
	if m == nil || actor.UserID == 0 {
		return false
	}
	if m.AuthorID == actor.UserID {
		return true
	}
	if !m.Stage.Valid() {
		return false
	}

	switch kind {
	case models.ArtifactAuthorIdentity:
		if actor.Role == RoleReviewer {
			return false
		}
		if m.Stage == models.StageTriage {
			return false
		}
		return actor.Can(CapViewAuthorIdentity)

	case models.ArtifactFullFile, models.ArtifactLatex, models.ArtifactCar:
		if m.Stage == models.StageTriage {
			return actor.Can(CapOverrideDecisions)
		}
		return actor.Can(CapViewFullManuscripts)

	case models.ArtifactBlindedFile:
		return actor.Can(CapViewBlindedManuscripts) ||
			actor.Can(CapTriageManuscripts) ||
			actor.Can(CapViewFullManuscripts)

	case models.ArtifactMetadata:
		if actor.Can(CapViewAllManuscripts) {
			return true
		}
		return assigned && actor.Can(CapViewAssignedManuscripts)
	}

	return false
}

// assignedStatuses are the review statuses that count as a current assignment.
var assignedStatuses = []models.ReviewStatus{models.ReviewPending, models.ReviewInProgress, models.ReviewCompleted}

// AccessService evaluates CanView against stored state.
type AccessService struct {
	store Store
}

func NewAccessService(store Store) *AccessService {
	return &AccessService{store: store}
}

// CanView loads the manuscript and the actor's assignment and applies the rules.
func (s *AccessService) CanView(ctx context.Context, actor Actor, manuscriptID uint, kind models.ArtifactKind) (bool, error) {
	if !kind.Valid() {
		return false, validation("unknown artifact kind %q", kind)
	}
	var allowed bool
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		assigned, err := isAssigned(repo, actor, manuscriptID)
		if err != nil {
			return err
		}
		allowed = CanView(actor, m, kind, assigned)
		return nil
	})
	return allowed, err
}

// ArtifactRef returns the stored reference of a file artifact if the actor may see it.
func (s *AccessService) ArtifactRef(ctx context.Context, actor Actor, manuscriptID uint, kind models.ArtifactKind) (string, error) {
	if !kind.IsFile() {
		return "", validation("%q is not a file artifact", kind)
	}
	var ref string
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		assigned, err := isAssigned(repo, actor, manuscriptID)
		if err != nil {
			return err
		}
		if !CanView(actor, m, kind, assigned) {
			return unauthorized("access to %s of manuscript %d is restricted at stage %s", kind, manuscriptID, m.Stage)
		}
		ref = m.ArtifactRef(kind)
		if ref == "" {
			return notFound("manuscript %d has no %s", manuscriptID, kind)
		}
		return nil
	})
	return ref, err
}

func isAssigned(repo Repository, actor Actor, manuscriptID uint) (bool, error) {
	if actor.Role != RoleReviewer || actor.UserID == 0 {
		return false, nil
	}
	n, err := repo.CountReviews(ReviewFilter{
		ManuscriptID: manuscriptID,
		ReviewerID:   actor.UserID,
		Statuses:     assignedStatuses,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
