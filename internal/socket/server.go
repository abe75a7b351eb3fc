// ABOUTME: Inbound socket loop: upgrades connections and dispatches client frames.
// ABOUTME: Routes user messages through cache, clarification, materialization, and workflows.

package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/2389/forge-gateway/internal/extract"
	"github.com/2389/forge-gateway/internal/flow"
	"github.com/2389/forge-gateway/internal/materialize"
	"github.com/2389/forge-gateway/internal/orchestrator"
	"github.com/2389/forge-gateway/internal/registry"
	"github.com/2389/forge-gateway/internal/respcache"
	"github.com/2389/forge-gateway/internal/store"
)

// Server owns the inbound socket loops: one per connection, each reading
// frames and dispatching them by type. Message production and delivery are
// decoupled: handlers and the orchestrator enqueue, DeliverLoop writes.
type Server struct {
	registry     *registry.Registry
	cache        *respcache.Cache
	tracker      *flow.Tracker
	extractor    extract.Extractor
	builder      *materialize.Materializer
	store        store.Store
	orch         *orchestrator.Orchestrator
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewServer wires the socket loop to its collaborators.
func NewServer(reg *registry.Registry, cache *respcache.Cache, tracker *flow.Tracker, ex extract.Extractor, builder *materialize.Materializer, st store.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:  reg,
		cache:     cache,
		tracker:   tracker,
		extractor: ex,
		builder:   builder,
		store:     st,
		orch:      orch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: 10 * time.Second,
		logger:       logger.With("component", "socket"),
	}
}

// HandleWebSocket upgrades the request and runs the connection's read loop
// until the client disconnects.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return err
	}

	connectionID := uuid.NewString()
	conn := newWSConn(ws, s.writeTimeout)
	s.registry.Connect(conn, connectionID)

	s.readLoop(c.Request().Context(), conn, connectionID)
	return nil
}

// readLoop reads frames until the connection drops. A malformed or unknown
// frame is logged and skipped; only a transport error ends the loop.
func (s *Server) readLoop(ctx context.Context, conn *wsConn, connectionID string) {
	defer s.registry.Disconnect(conn)

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", "connection_id", connectionID, "error", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			s.logger.Warn("malformed frame", "connection_id", connectionID, "error", err)
			continue
		}

		switch in.Type {
		case TypeUserMessage:
			s.handleUserMessage(ctx, connectionID, in.Data)
		default:
			s.logger.Warn("unknown frame type", "connection_id", connectionID, "type", in.Type)
		}
	}
}

// handleUserMessage runs one conversation turn: cache check first, then
// either an orchestrated workflow run or the agent-building clarification
// flow.
func (s *Server) handleUserMessage(ctx context.Context, connectionID string, data json.RawMessage) {
	var um UserMessage
	if err := json.Unmarshal(data, &um); err != nil || um.Content == "" {
		s.logger.Warn("malformed user message", "connection_id", connectionID, "error", err)
		return
	}

	if payload, ok := s.cache.Get(ctx, um.Content); ok {
		s.respondRaw(connectionID, payload)
		return
	}

	if um.WorkflowID != "" {
		s.runWorkflow(ctx, connectionID, um)
		return
	}
	s.clarifyOrBuild(ctx, connectionID, um)
}

// runWorkflow resolves the workflow bundle and drives one orchestrated
// exchange, replying with the summarized output.
func (s *Server) runWorkflow(ctx context.Context, connectionID string, um UserMessage) {
	bundle, err := s.store.GetWorkflowBundle(ctx, um.WorkflowID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respond(ctx, connectionID, um, FlowResponse{Status: FlowError, Content: "workflow not found"}, nil)
			return
		}
		s.logger.Error("workflow lookup failed", "workflow_id", um.WorkflowID, "error", err)
		s.respond(ctx, connectionID, um, FlowResponse{Status: FlowError, Content: "workflow unavailable"}, nil)
		return
	}

	sender := participantFor(bundle.Sender)
	receiver := participantFor(bundle.Receiver)

	result, err := s.orch.Run(ctx, sender, receiver, um.Content, connectionID, bundle.Workflow.SummaryMethod)
	if err != nil {
		s.logger.Error("exchange failed", "workflow_id", um.WorkflowID, "error", err)
		s.respond(ctx, connectionID, um, FlowResponse{Status: FlowError, Content: "the exchange could not be completed"}, nil)
		return
	}

	meta := map[string]any{
		"elapsed_ms":     result.Metadata.Elapsed.Milliseconds(),
		"summary_method": string(result.Metadata.SummaryMethod),
		"modified_files": result.Metadata.ModifiedFiles,
		"turns":          len(result.Metadata.Transcript),
	}
	resp := FlowResponse{Status: FlowComplete, Content: result.Summary}
	s.respond(ctx, connectionID, um, resp, meta)
	s.cacheResponse(ctx, um.Content, result.Summary, resp)
}

// clarifyOrBuild advances the agent-building conversation: extract details
// from the message, merge them into the session state, and either ask the
// next question or materialize the finished agent.
func (s *Server) clarifyOrBuild(ctx context.Context, connectionID string, um UserMessage) {
	var known extract.Known
	if st, ok := s.tracker.Lookup(um.SessionID); ok {
		known = extract.Known{
			AgentName:    st.AgentName,
			KnowledgeHub: st.KnowledgeHub,
			LLMModel:     st.LLMModel,
		}
	}

	result, err := s.extractor.Extract(ctx, um.Content, known)
	if err != nil {
		s.logger.Warn("extraction failed, falling back", "error", err)
		result = extract.NeedsMore(known)
	}

	st := s.tracker.Apply(um.SessionID, flow.Extraction{
		AgentName:    result.AgentName,
		KnowledgeHub: result.KnowledgeHub,
		LLMModel:     result.LLMModel,
	})

	if st.Status() != flow.StatusReady {
		question := result.NextQuestion
		if question == "" {
			question = st.NextPrompt()
		}
		resp := FlowResponse{Status: FlowFurtherQuestion, Content: question}
		s.respond(ctx, connectionID, um, resp, nil)
		s.cacheResponse(ctx, um.Content, question, resp)
		return
	}

	st = s.tracker.FillDefaults(um.SessionID)
	desc, err := s.builder.Materialize(ctx, materialize.Request{
		UserID:       um.UserID,
		AgentName:    st.AgentName,
		KnowledgeHub: st.KnowledgeHub,
		LLMModel:     st.LLMModel,
	})
	if err != nil {
		s.logger.Error("materialization failed", "agent_name", st.AgentName, "error", err)
		s.respond(ctx, connectionID, um, FlowResponse{Status: FlowError, Content: "the agent could not be created"}, nil)
		return
	}

	// Only a successful build resets the session, so a failed attempt can
	// be retried without re-collecting every detail.
	s.tracker.Reset(um.SessionID)

	resp := FlowResponse{Status: FlowComplete, Content: desc}
	s.respond(ctx, connectionID, um, resp, nil)
	if payload, err := json.Marshal(desc); err == nil {
		s.cacheResponse(ctx, um.Content, string(payload), resp)
	}
}

// respond sends an agent_response frame and persists the turn when the
// message belongs to a session.
func (s *Server) respond(ctx context.Context, connectionID string, um UserMessage, resp FlowResponse, meta map[string]any) {
	s.registry.SendToClient(connectionID, Outbound{
		Type:         TypeAgentResponse,
		Data:         resp,
		ConnectionID: connectionID,
	})
	s.saveTurn(ctx, connectionID, um, resp, meta)
}

// respondRaw replays a cached agent_response payload.
func (s *Server) respondRaw(connectionID string, payload []byte) {
	s.registry.SendToClient(connectionID, Outbound{
		Type:         TypeAgentResponse,
		Data:         json.RawMessage(payload),
		ConnectionID: connectionID,
	})
}

// cacheResponse stores the computed response under the request string.
func (s *Server) cacheResponse(ctx context.Context, request, content string, resp FlowResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.cache.Put(ctx, request, content, payload)
}

// saveTurn persists the user message and the reply. Persistence trouble is
// logged, never surfaced: the conversation continues regardless.
func (s *Server) saveTurn(ctx context.Context, connectionID string, um UserMessage, resp FlowResponse, meta map[string]any) {
	if um.SessionID == "" {
		return
	}

	now := time.Now().UTC()
	user := &store.Message{
		ID:           uuid.NewString(),
		UserID:       um.UserID,
		Role:         "user",
		Content:      um.Content,
		SessionID:    um.SessionID,
		ConnectionID: connectionID,
		CreatedAt:    now,
	}
	if err := s.store.SaveMessage(ctx, user); err != nil {
		s.logger.Warn("failed to save user message", "session_id", um.SessionID, "error", err)
	}

	content, _ := json.Marshal(resp.Content)
	reply := &store.Message{
		ID:           uuid.NewString(),
		UserID:       um.UserID,
		Role:         "assistant",
		Content:      string(content),
		SessionID:    um.SessionID,
		ConnectionID: connectionID,
		Meta:         meta,
		CreatedAt:    now,
	}
	if err := s.store.SaveMessage(ctx, reply); err != nil {
		s.logger.Warn("failed to save assistant message", "session_id", um.SessionID, "error", err)
	}
}

// DeliverLoop is the single background delivery worker. It drains the
// orchestrator's outbound queue in FIFO order and writes each envelope to
// the connections registered under its connection id. Envelopes for gone
// connections are dropped at delivery time.
func (s *Server) DeliverLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-s.orch.Outbound():
			if !ok {
				return
			}
			delivered := s.registry.SendToClient(env.ConnectionID, Outbound{
				Type:         env.MessageType,
				Data:         env,
				ConnectionID: env.ConnectionID,
			})
			if delivered == 0 {
				s.logger.Debug("dropping envelope for gone connection",
					"connection_id", env.ConnectionID,
					"sender", env.Sender,
				)
			}
		}
	}
}

// participantFor maps a persisted agent onto its orchestration variant.
func participantFor(agent *store.Agent) *orchestrator.Participant {
	switch agent.Type {
	case store.AgentTypeUserProxy:
		return orchestrator.NewUserProxy(agent.Name)
	case store.AgentTypeRetrieverProxy:
		return orchestrator.NewRetrieverProxy(agent.Name)
	case store.AgentTypeGroupChat:
		return orchestrator.NewGroupChat(agent.Name)
	default:
		return orchestrator.NewAssistant(agent.Name)
	}
}
