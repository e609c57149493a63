package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"journal-review-api/models"

	"go.uber.org/zap"
)

// ReviewResult is the outcome of a review lifecycle operation.
type ReviewResult struct {
	Review   *models.Review
	Rereview bool
	Events   []Event
}

// InviteOptions tune a single invitation.
type InviteOptions struct {
	DueDate *time.Time
}

// ReviewSubmission is the reviewer's completed evaluation.
type ReviewSubmission struct {
	RelevanceScore   *int
	SoundnessScore   *int
	ClarityScore     *int
	OpenScienceScore *int
	ImpactScore      *int
	ProvenanceScore  *int
	CommentsToAuthor string
	CommentsToEditor string
	Recommendation   models.Recommendation
}

func (in ReviewSubmission) validate() error {
	mandatory := []struct {
		name  string
		score *int
	}{
		{"relevance", in.RelevanceScore},
		{"soundness", in.SoundnessScore},
		{"clarity", in.ClarityScore},
		{"open science", in.OpenScienceScore},
	}
	for _, s := range mandatory {
		if s.score == nil {
			return validation("%s score is required", s.name)
		}
		if *s.score < 1 || *s.score > 5 {
			return validation("%s score must be between 1 and 5", s.name)
		}
	}
	optional := []struct {
		name  string
		score *int
	}{
		{"impact", in.ImpactScore},
		{"provenance", in.ProvenanceScore},
	}
	for _, s := range optional {
		if s.score != nil && (*s.score < 1 || *s.score > 5) {
			return validation("%s score must be between 1 and 5", s.name)
		}
	}
	if strings.TrimSpace(in.CommentsToAuthor) == "" {
		return validation("comments to the author are required")
	}
	if !in.Recommendation.Valid() {
		return validation("recommendation %q is not valid", in.Recommendation)
	}
	return nil
}

// ReviewService manages invitations, responses and submissions.
type ReviewService struct {
	core
}

func NewReviewService(store Store, users UserDirectory, opts Options) *ReviewService {
	return &ReviewService{core: newCore(store, users, opts)}
}

func (s *ReviewService) committed(op string, actor Actor, r *models.Review) {
	s.metrics.reviewStatus(string(r.Status))
	s.log.Info("review updated",
		zap.String("operation", op),
		zap.Uint("review_id", r.ReviewID),
		zap.Uint("manuscript_id", r.ManuscriptID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("status", string(r.Status)),
	)
}

// checkInvitee confirms the invitee exists and holds the reviewer role.
func (s *ReviewService) checkInvitee(ctx context.Context, reviewerID uint) error {
	if reviewerID == 0 {
		return validation("reviewer is required")
	}
	if s.users == nil {
		return nil
	}
	u, err := s.users.GetUser(ctx, reviewerID)
	if err != nil {
		return wrapRepoErr(err, "reviewer", reviewerID)
	}
	if role, _ := ResolveRole(u); role != RoleReviewer {
		return validation("user %d is not a reviewer", reviewerID)
	}
	return nil
}

// Invite creates a pending review for reviewerID on the manuscript. A reviewer
// with completed reviews may be invited again; one with an active review may not.
func (s *ReviewService) Invite(ctx context.Context, actor Actor, manuscriptID, reviewerID uint, opts InviteOptions) (*ReviewResult, error) {
	const op = "invite_reviewer"
	if err := actor.require(CapAssignReviewers); err != nil {
		return nil, s.reject(op, actor, err)
	}
	if err := s.checkInvitee(ctx, reviewerID); err != nil {
		return nil, s.reject(op, actor, err)
	}

	now := s.now()
	due := now.Add(s.reviewWindow)
	if opts.DueDate != nil {
		if !opts.DueDate.After(now) {
			return nil, s.reject(op, actor, validation("due date must be in the future"))
		}
		due = *opts.DueDate
	}

	res := &ReviewResult{}
	var title string
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		if m.Stage.Terminal() || m.Stage == models.StageAccepted {
			return invalidState("manuscript %d is %s and no longer takes reviewers", manuscriptID, m.Stage)
		}
		if m.AuthorID == reviewerID {
			return validation("the author cannot review their own manuscript")
		}

		active, err := repo.CountReviews(ReviewFilter{
			ManuscriptID: manuscriptID,
			ReviewerID:   reviewerID,
			Statuses:     models.ActiveReviewStatuses,
		})
		if err != nil {
			return err
		}
		if active > 0 {
			return conflict("reviewer %d already has an active review on manuscript %d", reviewerID, manuscriptID)
		}
		completed, err := repo.CountReviews(ReviewFilter{
			ManuscriptID: manuscriptID,
			ReviewerID:   reviewerID,
			Statuses:     []models.ReviewStatus{models.ReviewCompleted},
		})
		if err != nil {
			return err
		}

		r := &models.Review{
			ManuscriptID: manuscriptID,
			ReviewerID:   reviewerID,
			EditorID:     actor.UserID,
			ReviewRound:  m.RevisionCount + 1,
			Status:       models.ReviewPending,
			DueDate:      due,
			CreatedAt:    now,
		}
		if err := repo.CreateReview(r); err != nil {
			return err
		}
		res.Review = r
		res.Rereview = completed > 0
		title = m.Title
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res.Review)

	res.Events = []Event{{
		Kind:         EventReviewerInvited,
		ManuscriptID: manuscriptID,
		ReviewID:     res.Review.ReviewID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{reviewerID},
		Data: map[string]string{
			"title":        title,
			"due_date":     due.Format("2006-01-02"),
			"review_round": strconv.Itoa(res.Review.ReviewRound),
			"is_rereview":  strconv.FormatBool(res.Rereview),
		},
		At: now,
	}}
	return res, nil
}

// BulkInviteOutcome is the result of one invitation within a bulk assignment.
type BulkInviteOutcome struct {
	ManuscriptID uint      `json:"manuscript_id"`
	ReviewID     uint      `json:"review_id,omitempty"`
	Kind         ErrorKind `json:"kind,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// BulkInviteResult collects the outcomes and events of a bulk assignment.
type BulkInviteResult struct {
	Outcomes []BulkInviteOutcome
	Invited  int
	Events   []Event
}

// BulkInvite invites one reviewer to several manuscripts. Every invitation is
// its own unit of work; a failure on one does not undo the others.
func (s *ReviewService) BulkInvite(ctx context.Context, actor Actor, reviewerID uint, manuscriptIDs []uint) (*BulkInviteResult, error) {
	if err := actor.require(CapAssignReviewers); err != nil {
		return nil, s.reject("bulk_invite", actor, err)
	}
	if len(manuscriptIDs) == 0 {
		return nil, s.reject("bulk_invite", actor, validation("at least one manuscript is required"))
	}

	out := &BulkInviteResult{Outcomes: make([]BulkInviteOutcome, 0, len(manuscriptIDs))}
	seen := make(map[uint]bool, len(manuscriptIDs))
	for _, id := range manuscriptIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		res, err := s.Invite(ctx, actor, id, reviewerID, InviteOptions{})
		if err != nil {
			out.Outcomes = append(out.Outcomes, BulkInviteOutcome{
				ManuscriptID: id,
				Kind:         KindOf(err),
				Error:        MessageOf(err),
			})
			continue
		}
		out.Invited++
		out.Events = append(out.Events, res.Events...)
		out.Outcomes = append(out.Outcomes, BulkInviteOutcome{ManuscriptID: id, ReviewID: res.Review.ReviewID})
	}
	return out, nil
}

// Respond accepts or declines a pending invitation.
func (s *ReviewService) Respond(ctx context.Context, actor Actor, reviewID uint, accept bool) (*ReviewResult, error) {
	const op = "respond_review"
	now := s.now()
	res := &ReviewResult{}
	var title string
	err := s.store.Atomic(ctx, func(repo Repository) error {
		r, err := repo.LockReview(reviewID)
		if err != nil {
			return wrapRepoErr(err, "review", reviewID)
		}
		if r.ReviewerID != actor.UserID || actor.UserID == 0 {
			return unauthorized("review %d is not assigned to you", reviewID)
		}
		if r.Status != models.ReviewPending {
			return invalidState("review %d is %s and cannot be answered", reviewID, r.Status)
		}
		if accept {
			r.Status = models.ReviewInProgress
		} else {
			r.Status = models.ReviewDeclined
		}
		r.RespondedAt = &now
		if err := repo.UpdateReview(r, models.ReviewPending); err != nil {
			return wrapRepoErr(err, "review", reviewID)
		}
		if m, err := repo.GetManuscript(r.ManuscriptID); err == nil {
			title = m.Title
		}
		res.Review = r
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res.Review)

	kind := EventReviewAccepted
	if !accept {
		kind = EventReviewDeclined
	}
	res.Events = []Event{{
		Kind:         kind,
		ManuscriptID: res.Review.ManuscriptID,
		ReviewID:     reviewID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{res.Review.EditorID},
		Data:         map[string]string{"title": title},
		At:           now,
	}}
	return res, nil
}

// Submit completes an in-progress review. A completed review never changes again.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, reviewID uint, in ReviewSubmission) (*ReviewResult, error) {
	const op = "submit_review"
	if err := actor.require(CapSubmitReviews); err != nil {
		return nil, s.reject(op, actor, err)
	}

	now := s.now()
	res := &ReviewResult{}
	var title string
	err := s.store.Atomic(ctx, func(repo Repository) error {
		r, err := repo.LockReview(reviewID)
		if err != nil {
			return wrapRepoErr(err, "review", reviewID)
		}
		if r.ReviewerID != actor.UserID {
			return unauthorized("review %d is not assigned to you", reviewID)
		}
		switch r.Status {
		case models.ReviewInProgress:
		case models.ReviewCompleted:
			return invalidState("review %d has already been submitted", reviewID)
		case models.ReviewPending:
			return invalidState("review %d must be accepted before it is submitted", reviewID)
		default:
			return invalidState("review %d is %s", reviewID, r.Status)
		}
		if err := in.validate(); err != nil {
			return err
		}

		r.RelevanceScore = in.RelevanceScore
		r.SoundnessScore = in.SoundnessScore
		r.ClarityScore = in.ClarityScore
		r.OpenScienceScore = in.OpenScienceScore
		r.ImpactScore = in.ImpactScore
		r.ProvenanceScore = in.ProvenanceScore
		r.CommentsToAuthor = strings.TrimSpace(in.CommentsToAuthor)
		r.CommentsToEditor = strings.TrimSpace(in.CommentsToEditor)
		r.Recommendation = in.Recommendation
		r.Status = models.ReviewCompleted
		r.SubmittedAt = &now
		if err := repo.UpdateReview(r, models.ReviewInProgress); err != nil {
			return wrapRepoErr(err, "review", reviewID)
		}
		if m, err := repo.GetManuscript(r.ManuscriptID); err == nil {
			title = m.Title
		}
		res.Review = r
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res.Review)

	res.Events = []Event{{
		Kind:         EventReviewSubmitted,
		ManuscriptID: res.Review.ManuscriptID,
		ReviewID:     reviewID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{res.Review.EditorID},
		Data: map[string]string{
			"title":          title,
			"recommendation": string(res.Review.Recommendation),
		},
		At: now,
	}}
	return res, nil
}
