// ABOUTME: Agent CRUD endpoints plus model and skill link management.
// ABOUTME: All operations answer with the shared status/message/data envelope.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/store"
)

// AgentRequest is the body for creating an agent.
type AgentRequest struct {
	UserID string            `json:"user_id"`
	Name   string            `json:"name"`
	Type   store.AgentType   `json:"type"`
	Config store.AgentConfig `json:"config"`
}

// CreateAgent persists a new agent configuration.
// POST /api/agents
func (h *Handler) CreateAgent(c echo.Context) error {
	ctx := c.Request().Context()

	var req AgentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}
	if req.Type == "" {
		req.Type = store.AgentTypeAssistant
	}
	if req.Config.Name == "" {
		req.Config.Name = req.Name
	}

	now := time.Now().UTC()
	agent := &store.Agent{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Name:      req.Name,
		Type:      req.Type,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateAgent(ctx, agent); err != nil {
		h.logger.Error("failed to create agent", "name", req.Name, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create agent")
	}
	return ok(c, "agent created", agent)
}

// ListAgents returns every agent for a user.
// GET /api/agents?user_id=...
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.store.ListAgents(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		h.logger.Error("failed to list agents", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list agents")
	}
	return ok(c, "agents", agents)
}

// GetAgent returns one agent by id.
// GET /api/agents/:id
func (h *Handler) GetAgent(c echo.Context) error {
	agent, err := h.store.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "agent not found")
		}
		h.logger.Error("failed to get agent", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to get agent")
	}
	return ok(c, "agent", agent)
}

// DeleteAgent removes one agent by id.
// DELETE /api/agents/:id
func (h *Handler) DeleteAgent(c echo.Context) error {
	if err := h.store.DeleteAgent(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "agent not found")
		}
		h.logger.Error("failed to delete agent", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete agent")
	}
	return ok(c, "agent deleted", nil)
}

// LinkAgentModel attaches a model to an agent.
// POST /api/agents/:id/models/:modelID
func (h *Handler) LinkAgentModel(c echo.Context) error {
	if err := h.store.LinkAgentModel(c.Request().Context(), c.Param("id"), c.Param("modelID")); err != nil {
		h.logger.Error("failed to link model", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to link model")
	}
	return ok(c, "model linked", nil)
}

// UnlinkAgentModel detaches a model from an agent.
// DELETE /api/agents/:id/models/:modelID
func (h *Handler) UnlinkAgentModel(c echo.Context) error {
	if err := h.store.UnlinkAgentModel(c.Request().Context(), c.Param("id"), c.Param("modelID")); err != nil {
		h.logger.Error("failed to unlink model", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to unlink model")
	}
	return ok(c, "model unlinked", nil)
}

// ListAgentModels returns the models linked to an agent.
// GET /api/agents/:id/models
func (h *Handler) ListAgentModels(c echo.Context) error {
	models, err := h.store.LinkedModels(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list linked models", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list linked models")
	}
	return ok(c, "models", models)
}

// LinkAgentSkill attaches a skill to an agent.
// POST /api/agents/:id/skills/:skillID
func (h *Handler) LinkAgentSkill(c echo.Context) error {
	if err := h.store.LinkAgentSkill(c.Request().Context(), c.Param("id"), c.Param("skillID")); err != nil {
		h.logger.Error("failed to link skill", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to link skill")
	}
	return ok(c, "skill linked", nil)
}

// UnlinkAgentSkill detaches a skill from an agent.
// DELETE /api/agents/:id/skills/:skillID
func (h *Handler) UnlinkAgentSkill(c echo.Context) error {
	if err := h.store.UnlinkAgentSkill(c.Request().Context(), c.Param("id"), c.Param("skillID")); err != nil {
		h.logger.Error("failed to unlink skill", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to unlink skill")
	}
	return ok(c, "skill unlinked", nil)
}

// ListAgentSkills returns the skills linked to an agent.
// GET /api/agents/:id/skills
func (h *Handler) ListAgentSkills(c echo.Context) error {
	skills, err := h.store.LinkedSkills(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list linked skills", "agent_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list linked skills")
	}
	return ok(c, "skills", skills)
}
