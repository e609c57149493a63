package controllers

import (
	"net/http"
	"strings"
	"time"

	"journal-review-api/models"
	"journal-review-api/services"
	"journal-review-api/utils"

	"github.com/gin-gonic/gin"
)

type inviteRequest struct {
	ReviewerID uint   `json:"reviewer_id" binding:"required"`
	DueDate    string `json:"due_date"`
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &time.ParseError{Layout: "2006-01-02", Value: raw}
}

// InviteReviewer - POST /api/v1/manuscripts/:id/reviews
func (h *Handler) InviteReviewer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		badRequest(c, "due_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	res, err := h.journal.Reviews.Invite(c.Request.Context(), actorOf(c), id, req.ReviewerID, services.InviteOptions{DueDate: due})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusCreated, gin.H{"success": true, "review": res.Review, "is_rereview": res.Rereview})
}

type bulkAssignRequest struct {
	ReviewerID    uint   `json:"reviewer_id" binding:"required"`
	ManuscriptIDs []uint `json:"manuscript_ids" binding:"required"`
}

// BulkAssignReviewer - POST /api/v1/reviews/bulk-assign
func (h *Handler) BulkAssignReviewer(c *gin.Context) {
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.journal.Reviews.BulkInvite(c.Request.Context(), actorOf(c), req.ReviewerID, req.ManuscriptIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"invited":  res.Invited,
		"failed":   len(res.Outcomes) - res.Invited,
		"outcomes": res.Outcomes,
	})
}

type respondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// RespondToInvitation - POST /api/v1/reviews/:id/respond
func (h *Handler) RespondToInvitation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.journal.Reviews.Respond(c.Request.Context(), actorOf(c), id, *req.Accept)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{"success": true, "review": res.Review})
}

type submitReviewRequest struct {
	RelevanceScore   *int   `json:"relevance_score"`
	SoundnessScore   *int   `json:"soundness_score"`
	ClarityScore     *int   `json:"clarity_score"`
	OpenScienceScore *int   `json:"openscience_score"`
	ImpactScore      *int   `json:"impact_score"`
	ProvenanceScore  *int   `json:"provenance_score"`
	CommentsToAuthor string `json:"comments_to_author"`
	CommentsToEditor string `json:"comments_to_editor"`
	Recommendation   string `json:"recommendation"`
}

// SubmitReview - POST /api/v1/reviews/:id/submit
func (h *Handler) SubmitReview(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := utils.ParseRecommendation(req.Recommendation)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.journal.Reviews.Submit(c.Request.Context(), actorOf(c), id, services.ReviewSubmission{
		RelevanceScore:   req.RelevanceScore,
		SoundnessScore:   req.SoundnessScore,
		ClarityScore:     req.ClarityScore,
		OpenScienceScore: req.OpenScienceScore,
		ImpactScore:      req.ImpactScore,
		ProvenanceScore:  req.ProvenanceScore,
		CommentsToAuthor: utils.SanitizeInput(req.CommentsToAuthor),
		CommentsToEditor: utils.SanitizeInput(req.CommentsToEditor),
		Recommendation:   rec,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{"success": true, "review": res.Review})
}

// ListManuscriptReviews - GET /api/v1/manuscripts/:id/reviews
func (h *Handler) ListManuscriptReviews(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	items, err := h.journal.Reviews.ListForManuscript(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": len(items)})
}

// ListAssignedReviews - GET /api/v1/reviews/assigned?status=pending,in_progress
func (h *Handler) ListAssignedReviews(c *gin.Context) {
	var statuses []models.ReviewStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			statuses = append(statuses, models.ReviewStatus(strings.ToLower(raw)))
		}
	}
	items, err := h.journal.Reviews.ListAssigned(c.Request.Context(), actorOf(c), statuses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": len(items)})
}

// GetReview - GET /api/v1/reviews/:id
func (h *Handler) GetReview(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	view, err := h.journal.Reviews.GetReview(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": view})
}
