package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"journal-review-api/models"
	"journal-review-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const presignTTL = 15 * time.Minute

var downloadTypes = map[string]string{
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".json": "application/json",
}

// CheckAccess - GET /api/v1/manuscripts/:id/access/:kind
func (h *Handler) CheckAccess(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	kind := models.ArtifactKind(c.Param("kind"))
	allowed, err := h.journal.Access.CanView(c.Request.Context(), actorOf(c), id, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript_id": id, "kind": kind, "allowed": allowed})
}

// DownloadArtifact - GET /api/v1/manuscripts/:id/artifacts/:kind
// With ?presign=true an S3 backend answers with a short-lived link instead
// of streaming the object.
func (h *Handler) DownloadArtifact(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	kind := models.ArtifactKind(c.Param("kind"))
	ctx := c.Request.Context()
	ref, err := h.journal.Access.ArtifactRef(ctx, actorOf(c), id, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if boolQuery(c, "presign") {
		url, supported, err := h.artifacts.PresignGet(ctx, ref, presignTTL)
		if supported {
			if err != nil {
				h.log.Error("presign failed", zap.String("ref", ref), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create download link"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "url": url, "expires_in": int(presignTTL.Seconds())})
			return
		}
	}

	rc, err := h.artifacts.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "file not found"})
			return
		}
		h.log.Error("failed to open artifact", zap.String("ref", ref), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to open file"})
		return
	}
	defer rc.Close()

	ext := path.Ext(ref)
	contentType, ok := downloadTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	filename := fmt.Sprintf("manuscript-%d-%s%s", id, kind, ext)
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
		"Cache-Control":       "private, no-store",
	})
}
