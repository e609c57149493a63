package controllers

import (
	"fmt"
	"net/http"

	"journal-review-api/models"
	"journal-review-api/utils"

	"github.com/gin-gonic/gin"
)

// GetStatistics - GET /api/v1/statistics?force=true
func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.journal.Stats.Summary(c.Request.Context(), actorOf(c), boolQuery(c, "force"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}

// ExportManuscripts - GET /api/v1/export/manuscripts?stage=review
// With ?download=true the rows are sent as an attachment.
func (h *Handler) ExportManuscripts(c *gin.Context) {
	var stage models.ManuscriptStage
	if raw := c.Query("stage"); raw != "" {
		parsed, err := utils.ParseStage(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		stage = parsed
	}
	rows, err := h.journal.Stats.Export(c.Request.Context(), actorOf(c), stage)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if boolQuery(c, "download") {
		name := fmt.Sprintf("manuscripts-%s.json", h.now().Format("20060102"))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.JSON(http.StatusOK, rows)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": rows, "total": len(rows)})
}
