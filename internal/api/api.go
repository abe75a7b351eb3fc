// ABOUTME: HTTP API handler wiring and the shared response envelope.
// ABOUTME: Registers all CRUD routes and the health/version endpoints.

package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/store"
)

// Version is the reported gateway version. Overridden at build time.
var Version = "dev"

// Response is the envelope every API operation returns. Failures are
// reported in-band: Status false with a message, never a bare transport
// error.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Handler serves the CRUD surface over the persistence layer.
type Handler struct {
	store  store.Store
	logger *slog.Logger
}

// NewHandler creates an API handler. Pass nil logger for the default.
func NewHandler(st store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  st,
		logger: logger.With("component", "api"),
	}
}

// RegisterRoutes mounts every API route on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/api/version", h.GetVersion)

	g := e.Group("/api")

	g.POST("/agents", h.CreateAgent)
	g.GET("/agents", h.ListAgents)
	g.GET("/agents/:id", h.GetAgent)
	g.DELETE("/agents/:id", h.DeleteAgent)
	g.POST("/agents/:id/models/:modelID", h.LinkAgentModel)
	g.DELETE("/agents/:id/models/:modelID", h.UnlinkAgentModel)
	g.GET("/agents/:id/models", h.ListAgentModels)
	g.POST("/agents/:id/skills/:skillID", h.LinkAgentSkill)
	g.DELETE("/agents/:id/skills/:skillID", h.UnlinkAgentSkill)
	g.GET("/agents/:id/skills", h.ListAgentSkills)

	g.POST("/models", h.CreateModel)
	g.GET("/models", h.ListModels)
	g.GET("/models/:id", h.GetModel)
	g.DELETE("/models/:id", h.DeleteModel)

	g.POST("/skills", h.CreateSkill)
	g.GET("/skills", h.ListSkills)
	g.DELETE("/skills/:id", h.DeleteSkill)

	g.POST("/workflows", h.CreateWorkflow)
	g.GET("/workflows", h.ListWorkflows)
	g.GET("/workflows/:id", h.GetWorkflow)
	g.DELETE("/workflows/:id", h.DeleteWorkflow)
	g.POST("/workflows/:id/agents/:agentID", h.LinkWorkflowAgent)
	g.DELETE("/workflows/:id/agents/:agentID", h.UnlinkWorkflowAgent)

	g.POST("/hubs", h.CreateKnowledgeHub)
	g.GET("/hubs", h.ListKnowledgeHubs)
	g.DELETE("/hubs/:id", h.DeleteKnowledgeHub)

	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id/messages", h.ListSessionMessages)
	g.DELETE("/sessions/:id", h.DeleteSession)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: true, Message: "ok"})
}

// GetVersion reports the running gateway version.
func (h *Handler) GetVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		Status:  true,
		Message: "version",
		Data:    map[string]string{"version": Version},
	})
}

// ok writes a success envelope.
func ok(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, Response{Status: true, Message: message, Data: data})
}

// fail writes a failure envelope with the given HTTP status.
func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{Status: false, Message: message})
}
