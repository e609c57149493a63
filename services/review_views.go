package services

import (
	"context"
	"time"

	"journal-review-api/models"
)

// ReviewView is a review as shown to one actor.
type ReviewView struct {
	ReviewID         uint                  `json:"review_id"`
	ManuscriptID     uint                  `json:"manuscript_id"`
	ManuscriptTitle  string                `json:"manuscript_title,omitempty"`
	ReviewerID       uint                  `json:"reviewer_id,omitempty"`
	EditorID         uint                  `json:"editor_id,omitempty"`
	ReviewRound      int                   `json:"review_round"`
	RelevanceScore   *int                  `json:"relevance_score,omitempty"`
	SoundnessScore   *int                  `json:"soundness_score,omitempty"`
	ClarityScore     *int                  `json:"clarity_score,omitempty"`
	OpenScienceScore *int                  `json:"openscience_score,omitempty"`
	ImpactScore      *int                  `json:"impact_score,omitempty"`
	ProvenanceScore  *int                  `json:"provenance_score,omitempty"`
	CommentsToAuthor string                `json:"comments_to_author,omitempty"`
	CommentsToEditor string                `json:"comments_to_editor,omitempty"`
	Recommendation   models.Recommendation `json:"recommendation,omitempty"`
	Status           models.ReviewStatus   `json:"status"`
	DueDate          *time.Time            `json:"due_date,omitempty"`
	Overdue          bool                  `json:"overdue"`
	SubmittedAt      *time.Time            `json:"submitted_at,omitempty"`
}

type reviewAudience int

const (
	audienceEditor reviewAudience = iota
	audienceReviewer
	audienceAuthor
)

func projectReview(r *models.Review, audience reviewAudience, now time.Time) ReviewView {
	v := ReviewView{
		ReviewID:         r.ReviewID,
		ManuscriptID:     r.ManuscriptID,
		ReviewRound:      r.ReviewRound,
		RelevanceScore:   r.RelevanceScore,
		SoundnessScore:   r.SoundnessScore,
		ClarityScore:     r.ClarityScore,
		OpenScienceScore: r.OpenScienceScore,
		ImpactScore:      r.ImpactScore,
		ProvenanceScore:  r.ProvenanceScore,
		CommentsToAuthor: r.CommentsToAuthor,
		Status:           r.Status,
		SubmittedAt:      r.SubmittedAt,
	}
	if audience == audienceAuthor {
		return v
	}
	due := r.DueDate
	v.DueDate = &due
	v.Overdue = !r.Status.Terminal() && now.After(r.DueDate)
	v.CommentsToEditor = r.CommentsToEditor
	v.Recommendation = r.Recommendation
	if audience == audienceEditor {
		v.ReviewerID = r.ReviewerID
		v.EditorID = r.EditorID
	}
	return v
}

// ListForManuscript returns the manuscript's reviews. Editorial roles see every
// review in full, the author sees completed reviews without reviewer identity
// or confidential comments, and a reviewer sees only their own.
func (s *ReviewService) ListForManuscript(ctx context.Context, actor Actor, manuscriptID uint) ([]ReviewView, error) {
	now := s.now()
	var views []ReviewView
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		filter := ReviewFilter{ManuscriptID: manuscriptID}
		audience := audienceEditor
		switch {
		case m.AuthorID == actor.UserID && actor.UserID != 0:
			audience = audienceAuthor
			filter.Statuses = []models.ReviewStatus{models.ReviewCompleted}
		case actor.Can(CapViewAllManuscripts):
		case actor.Can(CapViewAssignedManuscripts):
			audience = audienceReviewer
			filter.ReviewerID = actor.UserID
		default:
			return unauthorized("reviews of manuscript %d are not visible to you", manuscriptID)
		}
		rows, err := repo.ListReviews(filter)
		if err != nil {
			return err
		}
		views = make([]ReviewView, 0, len(rows))
		for i := range rows {
			v := projectReview(&rows[i], audience, now)
			v.ManuscriptTitle = m.Title
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// ListAssigned returns the actor's own reviews across manuscripts.
func (s *ReviewService) ListAssigned(ctx context.Context, actor Actor, statuses []models.ReviewStatus) ([]ReviewView, error) {
	if !actor.Can(CapSubmitReviews) {
		return nil, unauthorized("only reviewers have review assignments")
	}
	now := s.now()
	var views []ReviewView
	err := s.store.Read(ctx, func(repo Repository) error {
		rows, err := repo.ListReviews(ReviewFilter{ReviewerID: actor.UserID, Statuses: statuses})
		if err != nil {
			return err
		}
		titles := make(map[uint]string)
		views = make([]ReviewView, 0, len(rows))
		for i := range rows {
			v := projectReview(&rows[i], audienceReviewer, now)
			title, ok := titles[v.ManuscriptID]
			if !ok {
				if m, err := repo.GetManuscript(v.ManuscriptID); err == nil {
					title = m.Title
				}
				titles[v.ManuscriptID] = title
			}
			v.ManuscriptTitle = title
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// GetReview returns one review as visible to actor.
func (s *ReviewService) GetReview(ctx context.Context, actor Actor, reviewID uint) (*ReviewView, error) {
	now := s.now()
	var view ReviewView
	err := s.store.Read(ctx, func(repo Repository) error {
		r, err := repo.GetReview(reviewID)
		if err != nil {
			return wrapRepoErr(err, "review", reviewID)
		}
		m, err := repo.GetManuscript(r.ManuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", r.ManuscriptID)
		}
		switch {
		case r.ReviewerID == actor.UserID && actor.UserID != 0:
			view = projectReview(r, audienceReviewer, now)
		case actor.Can(CapViewAllManuscripts):
			view = projectReview(r, audienceEditor, now)
		case m.AuthorID == actor.UserID && r.Status == models.ReviewCompleted:
			view = projectReview(r, audienceAuthor, now)
		default:
			return unauthorized("review %d is not visible to you", reviewID)
		}
		view.ManuscriptTitle = m.Title
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
