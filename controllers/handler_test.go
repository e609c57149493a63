package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"journal-review-api/services"
	"journal-review-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind services.ErrorKind
		want int
	}{
		{services.KindUnauthorized, http.StatusForbidden},
		{services.KindNotFound, http.StatusNotFound},
		{services.KindInvalidState, http.StatusConflict},
		{services.KindConflict, http.StatusConflict},
		{services.KindValidation, http.StatusBadRequest},
		{services.KindIntegrity, http.StatusInternalServerError},
		{services.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			require.Equal(t, tt.want, statusForKind(tt.kind))
		})
	}
}

func respond(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	h := NewHandler(Deps{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.respondError(c, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	return w.Code, body
}

func TestRespondError(t *testing.T) {
	code, body := respond(t, &services.WorkflowError{Kind: services.KindInvalidState, Message: "manuscript 3 is in triage"})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "invalid_state", body["kind"])
	require.Equal(t, "manuscript 3 is in triage", body["error"])

	code, body = respond(t, fmt.Errorf("store blinded file: %w", storage.ErrInvalidUpload))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation_failed", body["kind"])

	code, body = respond(t, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "internal", body["kind"])
	require.Equal(t, "internal server error", body["error"])

	code, body = respond(t, services.ErrStaleWrite)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "conflict", body["kind"])
}

func TestParseDueDate(t *testing.T) {
	due, err := parseDueDate("")
	require.NoError(t, err)
	require.Nil(t, due)

	due, err = parseDueDate("2026-11-30")
	require.NoError(t, err)
	require.Equal(t, 30, due.Day())

	due, err = parseDueDate("2026-11-30T12:00:00Z")
	require.NoError(t, err)
	require.Equal(t, 12, due.Hour())

	_, err = parseDueDate("next week")
	require.Error(t, err)
}

func TestNormalizeAudience(t *testing.T) {
	got, err := normalizeAudience(" Editor ")
	require.NoError(t, err)
	require.Equal(t, "editor", got)

	_, err = normalizeAudience("everyone")
	require.Error(t, err)
}
