// ABOUTME: Session CRUD endpoints and per-session message history.
// ABOUTME: Sessions bind a user's conversation to an optional workflow.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/store"
)

// SessionRequest is the body for creating a session.
type SessionRequest struct {
	UserID     string `json:"user_id"`
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
}

// CreateSession persists a new conversation session.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return fail(c, http.StatusBadRequest, "user_id is required")
	}

	now := time.Now().UTC()
	session := &store.Session{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		WorkflowID: req.WorkflowID,
		Name:       req.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.CreateSession(c.Request().Context(), session); err != nil {
		h.logger.Error("failed to create session", "user_id", req.UserID, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create session")
	}
	return ok(c, "session created", session)
}

// ListSessions returns every session for a user.
// GET /api/sessions?user_id=...
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.store.ListSessions(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list sessions")
	}
	return ok(c, "sessions", sessions)
}

// ListSessionMessages returns the ordered message history of a session.
// GET /api/sessions/:id/messages
func (h *Handler) ListSessionMessages(c echo.Context) error {
	messages, err := h.store.ListSessionMessages(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list session messages", "session_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list messages")
	}
	return ok(c, "messages", messages)
}

// DeleteSession removes one session by id.
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.store.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "session not found")
		}
		h.logger.Error("failed to delete session", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete session")
	}
	return ok(c, "session deleted", nil)
}
