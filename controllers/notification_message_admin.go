package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"journal-review-api/models"
	"journal-review-api/services"

	"github.com/gin-gonic/gin"
)

type notificationMessageRequest struct {
	EventKey      string  `json:"event_key" binding:"required"`
	SendTo        string  `json:"send_to" binding:"required"`
	TitleTemplate string  `json:"title_template" binding:"required"`
	BodyTemplate  string  `json:"body_template" binding:"required"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
}

func normalizeAudience(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if slices.Contains(services.NotificationAudiences, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid send_to; must be one of %s", strings.Join(services.NotificationAudiences, ", "))
}

func (r notificationMessageRequest) apply(msg *models.NotificationMessage) error {
	audience, err := normalizeAudience(r.SendTo)
	if err != nil {
		return err
	}
	msg.EventKey = strings.TrimSpace(r.EventKey)
	msg.SendTo = audience
	msg.TitleTemplate = strings.TrimSpace(r.TitleTemplate)
	msg.BodyTemplate = strings.TrimSpace(r.BodyTemplate)
	msg.Description = r.Description
	if r.IsActive != nil {
		msg.IsActive = *r.IsActive
	}
	return nil
}

func (h *Handler) notFoundOr(c *gin.Context, err error) {
	if errors.Is(err, services.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification message not found"})
		return
	}
	h.respondError(c, err)
}

// ListNotificationMessages - GET /api/v1/admin/notification-messages
func (h *Handler) ListNotificationMessages(c *gin.Context) {
	f := services.TemplateFilter{
		EventKey: strings.TrimSpace(c.Query("event_key")),
		SendTo:   strings.TrimSpace(c.Query("send_to")),
	}
	switch strings.TrimSpace(c.Query("is_active")) {
	case "true", "1":
		active := true
		f.IsActive = &active
	case "false", "0":
		active := false
		f.IsActive = &active
	}

	messages, err := h.notifications.ListTemplates(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"items":   messages,
		"total":   len(messages),
	})
}

// CreateNotificationMessage - POST /api/v1/admin/notification-messages
func (h *Handler) CreateNotificationMessage(c *gin.Context) {
	var req notificationMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg := models.NotificationMessage{IsActive: true}
	if err := req.apply(&msg); err != nil {
		badRequest(c, err.Error())
		return
	}
	uid := actorOf(c).UserID
	msg.UpdatedBy = &uid

	if err := h.notifications.SaveTemplate(c.Request.Context(), &msg); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "notification_message": msg})
}

// UpdateNotificationMessage - PUT /api/v1/admin/notification-messages/:id
func (h *Handler) UpdateNotificationMessage(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req notificationMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.notifications.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr(c, err)
		return
	}
	if err := req.apply(msg); err != nil {
		badRequest(c, err.Error())
		return
	}
	uid := actorOf(c).UserID
	msg.UpdatedBy = &uid

	if err := h.notifications.SaveTemplate(c.Request.Context(), msg); err != nil {
		h.notFoundOr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notification_message": msg})
}

// ResetNotificationMessage - POST /api/v1/admin/notification-messages/:id/reset
// restores the built-in title and body for the message's event and audience.
func (h *Handler) ResetNotificationMessage(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	msg, err := h.notifications.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr(c, err)
		return
	}

	title, body, ok := services.DefaultTemplate(msg.EventKey, msg.SendTo)
	if !ok {
		badRequest(c, "no built-in message for this event and audience")
		return
	}
	msg.TitleTemplate = title
	msg.BodyTemplate = body
	msg.IsActive = true
	uid := actorOf(c).UserID
	msg.UpdatedBy = &uid

	if err := h.notifications.SaveTemplate(c.Request.Context(), msg); err != nil {
		h.notFoundOr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notification_message": msg})
}
