// ABOUTME: Workflow CRUD endpoints and sender/receiver link management.
// ABOUTME: Workflow reads resolve the full bundle including linked agents.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/store"
)

// WorkflowRequest is the body for creating a workflow.
type WorkflowRequest struct {
	UserID        string              `json:"user_id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Type          string              `json:"type"`
	SummaryMethod store.SummaryMethod `json:"summary_method"`
}

// CreateWorkflow persists a new workflow definition.
// POST /api/workflows
func (h *Handler) CreateWorkflow(c echo.Context) error {
	var req WorkflowRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}
	if req.Type == "" {
		req.Type = "twoagents"
	}
	if req.SummaryMethod == "" {
		req.SummaryMethod = store.SummaryLast
	}

	now := time.Now().UTC()
	wf := &store.Workflow{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		SummaryMethod: req.SummaryMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.store.CreateWorkflow(c.Request().Context(), wf); err != nil {
		h.logger.Error("failed to create workflow", "name", req.Name, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to create workflow")
	}
	return ok(c, "workflow created", wf)
}

// ListWorkflows returns all workflow definitions.
// GET /api/workflows
func (h *Handler) ListWorkflows(c echo.Context) error {
	workflows, err := h.store.ListWorkflows(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list workflows", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to list workflows")
	}
	return ok(c, "workflows", workflows)
}

// GetWorkflow returns one workflow with its resolved sender and receiver.
// GET /api/workflows/:id
func (h *Handler) GetWorkflow(c echo.Context) error {
	bundle, err := h.store.GetWorkflowBundle(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "workflow not found")
		}
		h.logger.Error("failed to get workflow", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to get workflow")
	}
	return ok(c, "workflow", bundle)
}

// DeleteWorkflow removes one workflow by id.
// DELETE /api/workflows/:id
func (h *Handler) DeleteWorkflow(c echo.Context) error {
	if err := h.store.DeleteWorkflow(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(c, http.StatusNotFound, "workflow not found")
		}
		h.logger.Error("failed to delete workflow", "id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete workflow")
	}
	return ok(c, "workflow deleted", nil)
}

// LinkWorkflowAgent attaches an agent to a workflow in a role.
// POST /api/workflows/:id/agents/:agentID?role=sender|receiver
func (h *Handler) LinkWorkflowAgent(c echo.Context) error {
	role := store.WorkflowRole(c.QueryParam("role"))
	if role != store.RoleSender && role != store.RoleReceiver {
		return fail(c, http.StatusBadRequest, "role must be sender or receiver")
	}
	if err := h.store.LinkWorkflowAgent(c.Request().Context(), c.Param("id"), c.Param("agentID"), role); err != nil {
		h.logger.Error("failed to link workflow agent", "workflow_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to link agent")
	}
	return ok(c, "agent linked", nil)
}

// UnlinkWorkflowAgent detaches an agent from a workflow role.
// DELETE /api/workflows/:id/agents/:agentID?role=sender|receiver
func (h *Handler) UnlinkWorkflowAgent(c echo.Context) error {
	role := store.WorkflowRole(c.QueryParam("role"))
	if role != store.RoleSender && role != store.RoleReceiver {
		return fail(c, http.StatusBadRequest, "role must be sender or receiver")
	}
	if err := h.store.UnlinkWorkflowAgent(c.Request().Context(), c.Param("id"), c.Param("agentID"), role); err != nil {
		h.logger.Error("failed to unlink workflow agent", "workflow_id", c.Param("id"), "error", err)
		return fail(c, http.StatusInternalServerError, "failed to unlink agent")
	}
	return ok(c, "agent unlinked", nil)
}
