package controllers

import (
	"errors"
	"net/http"

	"journal-review-api/services"

	"github.com/gin-gonic/gin"
)

// GetNotifications - GET /api/v1/notifications?unreadOnly=1&limit=20&offset=0
func (h *Handler) GetNotifications(c *gin.Context) {
	uid := actorOf(c).UserID
	if uid == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	limit := intQuery(c, "limit", 20, 100)
	if limit == 0 {
		limit = 20
	}
	offset := intQuery(c, "offset", 0, 0)

	items, err := h.notifications.List(c.Request.Context(), uid, boolQuery(c, "unreadOnly"), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

// GetNotificationCounter - GET /api/v1/notifications/counter
func (h *Handler) GetNotificationCounter(c *gin.Context) {
	uid := actorOf(c).UserID
	if uid == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	n, err := h.notifications.CountUnread(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unread": n})
}

// MarkNotificationRead - PATCH /api/v1/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	uid := actorOf(c).UserID
	if uid == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead - POST /api/v1/notifications/mark-all-read
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	uid := actorOf(c).UserID
	if uid == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	if err := h.notifications.MarkAllRead(c.Request.Context(), uid); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
