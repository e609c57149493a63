package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"journal-review-api/middleware"
	"journal-review-api/services"
	"journal-review-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the journal HTTP API over the core services.
type Handler struct {
	journal       *services.Journal
	events        services.EventSink
	notifications services.NotificationStore
	artifacts     *storage.ArtifactStore
	users         services.UserDirectory
	log           *zap.Logger

	jwtSecret string
	jwtTTL    time.Duration
	now       func() time.Time
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Journal       *services.Journal
	Events        services.EventSink
	Notifications services.NotificationStore
	Artifacts     *storage.ArtifactStore
	Users         services.UserDirectory
	Logger        *zap.Logger
	JWTSecret     string
	JWTTTL        time.Duration
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		journal:       d.Journal,
		events:        d.Events,
		notifications: d.Notifications,
		artifacts:     d.Artifacts,
		users:         d.Users,
		log:           d.Logger,
		jwtSecret:     d.JWTSecret,
		jwtTTL:        d.JWTTTL,
		now:           time.Now,
	}
	if h.events == nil {
		h.events = services.DiscardEvents{}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.jwtTTL <= 0 {
		h.jwtTTL = 24 * time.Hour
	}
	return h
}

// statusForKind maps a workflow error kind to its HTTP status.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindConflict:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body for err. Internal failures are logged
// and their details are not sent to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrInvalidUpload) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "kind": services.KindValidation})
		return
	}
	kind := services.KindOf(err)
	status := statusForKind(kind)
	msg := services.MessageOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err))
		if kind == services.KindInternal {
			msg = "internal server error"
		}
	}
	c.JSON(status, gin.H{"success": false, "error": msg, "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "kind": services.KindValidation})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func intQuery(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func boolQuery(c *gin.Context, name string) bool {
	v := strings.TrimSpace(c.Query(name))
	return v == "1" || strings.EqualFold(v, "true")
}

// dispatch hands committed events to the notifier. It never fails the request.
func (h *Handler) dispatch(c *gin.Context, events []services.Event) {
	if len(events) == 0 {
		return
	}
	h.events.Dispatch(c.Request.Context(), events)
}

func actorOf(c *gin.Context) services.Actor {
	return middleware.CurrentActor(c)
}
