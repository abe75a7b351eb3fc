// ABOUTME: CRUD endpoints for models, skills, and knowledge hubs.
// ABOUTME: Simple resources sharing the status/message/data envelope.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/store"
)

// ModelRequest is the body for creating a model endpoint configuration.
type ModelRequest struct {
	UserID  string `json:"user_id"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	APIType string `json:"api_type"`
}

// CreateModel persists a model endpoint configuration.
// POST /api/models
func (h *Handler) CreateModel(c echo.Context) error {
	var req ModelRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Model == "" {
		return fail(c, http.StatusBadRequest, "model is required")
	}
	if req.APIType == "" {
		req.APIType = "openai"
	}

	now := time.Now().UTC()
	model := &store.Model{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Model:     req.Model,
		APIKey:    req.APIKey,
		BaseURL:   req.BaseURL,
		APIType:   req.APIType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateModel(c.Request().Context(), model); err != nil {
		h.logger.Error("failed to create model", "model", req.Model, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create model")
	}
	return ok(c, "model created", model)
}

// ListModels returns every model for a user.
// GET /api/models?user_id=...
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.store.ListModels(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		h.logger.Error("failed to list models", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list models")
	}
	return ok(c, "models", models)
}

// GetModel returns one model by id.
// GET /api/models/:id
func (h *Handler) GetModel(c echo.Context) error {
	model, err := h.store.GetModel(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "model not found")
		}
		h.logger.Error("failed to get model", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to get model")
	}
	return ok(c, "model", model)
}

// DeleteModel removes one model by id.
// DELETE /api/models/:id
func (h *Handler) DeleteModel(c echo.Context) error {
	if err := h.store.DeleteModel(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "model not found")
		}
		h.logger.Error("failed to delete model", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete model")
	}
	return ok(c, "model deleted", nil)
}

// SkillRequest is the body for creating a skill.
type SkillRequest struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// CreateSkill persists a reusable skill.
// POST /api/skills
func (h *Handler) CreateSkill(c echo.Context) error {
	var req SkillRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}

	now := time.Now().UTC()
	skill := &store.Skill{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Name:        req.Name,
		Content:     req.Content,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateSkill(c.Request().Context(), skill); err != nil {
		h.logger.Error("failed to create skill", "name", req.Name, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create skill")
	}
	return ok(c, "skill created", skill)
}

// ListSkills returns every skill for a user.
// GET /api/skills?user_id=...
func (h *Handler) ListSkills(c echo.Context) error {
	skills, err := h.store.ListSkills(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		h.logger.Error("failed to list skills", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list skills")
	}
	return ok(c, "skills", skills)
}

// DeleteSkill removes one skill by id.
// DELETE /api/skills/:id
func (h *Handler) DeleteSkill(c echo.Context) error {
	if err := h.store.DeleteSkill(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "skill not found")
		}
		h.logger.Error("failed to delete skill", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete skill")
	}
	return ok(c, "skill deleted", nil)
}

// HubRequest is the body for creating a knowledge hub record.
type HubRequest struct {
	UserID      string        `json:"user_id"`
	Type        store.HubType `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Details     string        `json:"details"`
}

// CreateKnowledgeHub persists a knowledge hub record.
// POST /api/hubs
func (h *Handler) CreateKnowledgeHub(c echo.Context) error {
	var req HubRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}
	if req.Type == "" {
		req.Type = store.HubUnknown
	}

	now := time.Now().UTC()
	hub := &store.KnowledgeHub{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Details:     req.Details,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateKnowledgeHub(c.Request().Context(), hub); err != nil {
		h.logger.Error("failed to create knowledge hub", "name", req.Name, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create knowledge hub")
	}
	return ok(c, "knowledge hub created", hub)
}

// ListKnowledgeHubs returns every knowledge hub for a user.
// GET /api/hubs?user_id=...
func (h *Handler) ListKnowledgeHubs(c echo.Context) error {
	hubs, err := h.store.ListKnowledgeHubs(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		h.logger.Error("failed to list knowledge hubs", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list knowledge hubs")
	}
	return ok(c, "knowledge hubs", hubs)
}

// DeleteKnowledgeHub removes one knowledge hub by id.
// DELETE /api/hubs/:id
func (h *Handler) DeleteKnowledgeHub(c echo.Context) error {
	if err := h.store.DeleteKnowledgeHub(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "knowledge hub not found")
		}
		h.logger.Error("failed to delete knowledge hub", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete knowledge hub")
	}
	return ok(c, "knowledge hub deleted", nil)
}
