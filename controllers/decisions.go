package controllers

import (
	"net/http"

	"journal-review-api/services"
	"journal-review-api/utils"

	"github.com/gin-gonic/gin"
)

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Letter   string `json:"letter"`
	Notes    string `json:"notes"`
}

func (h *Handler) recordDecision(c *gin.Context, atTriage bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := utils.ParseDecision(req.Decision, atTriage)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	actor := actorOf(c)
	letter := utils.SanitizeInput(req.Letter)
	notes := utils.SanitizeInput(req.Notes)
	var res *services.TransitionResult
	if atTriage {
		res, err = h.journal.Workflow.TriageDecision(c.Request.Context(), actor, id, t, letter, notes)
	} else {
		res, err = h.journal.Decisions.Record(c.Request.Context(), actor, id, t, letter, notes)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatch(c, res.Events)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"manuscript": services.ProjectManuscript(actor, res.Manuscript, false),
		"decision":   res.Decision,
		"transition": res.Transition,
	})
}

// TriageDecision - POST /api/v1/manuscripts/:id/triage
func (h *Handler) TriageDecision(c *gin.Context) {
	h.recordDecision(c, true)
}

// RecordDecision - POST /api/v1/manuscripts/:id/decisions
func (h *Handler) RecordDecision(c *gin.Context) {
	h.recordDecision(c, false)
}

// ListDecisions - GET /api/v1/manuscripts/:id/decisions
func (h *Handler) ListDecisions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	items, err := h.journal.Decisions.List(c.Request.Context(), actorOf(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": len(items)})
}
