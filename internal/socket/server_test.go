// ABOUTME: Tests for the inbound socket loop and delivery worker.
// ABOUTME: Drives turns through fake extractors and a scripted exchange engine.

package socket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/forge-gateway/internal/extract"
	"github.com/2389/forge-gateway/internal/flow"
	"github.com/2389/forge-gateway/internal/materialize"
	"github.com/2389/forge-gateway/internal/orchestrator"
	"github.com/2389/forge-gateway/internal/registry"
	"github.com/2389/forge-gateway/internal/respcache"
	"github.com/2389/forge-gateway/internal/store"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []Outbound
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if out, ok := v.(Outbound); ok {
		c.messages = append(c.messages, out)
	}
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received() []Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Outbound, len(c.messages))
	copy(out, c.messages)
	return out
}

type fakeExtractor struct {
	mu      sync.Mutex
	results []*extract.Result
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, message string, known extract.Known) (*extract.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return extract.NeedsMore(known), nil
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// scriptedEngine replays canned hop contents for workflow runs.
type scriptedEngine struct {
	script []string
}

func (e *scriptedEngine) InitiateChat(ctx context.Context, sender, receiver *orchestrator.Participant, message string, observe func(orchestrator.Hop) bool) error {
	from, to := receiver, sender
	for _, content := range e.script {
		if !observe(orchestrator.Hop{Sender: from, Recipient: to, Content: content, Timestamp: time.Now().UTC()}) {
			return nil
		}
		from, to = to, from
	}
	return nil
}

func (e *scriptedEngine) Summarize(ctx context.Context, transcript []orchestrator.Hop) (string, error) {
	return "summary of the exchange", nil
}

type fixture struct {
	server *Server
	reg    *registry.Registry
	store  store.Store
	ex     *fakeExtractor
	orch   *orchestrator.Orchestrator
	conn   *fakeConn
	connID string
}

func newFixture(t *testing.T, engine orchestrator.Engine, results ...*extract.Result) *fixture {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	kv := respcache.NewMemoryKV(100)
	t.Cleanup(func() { kv.Close() })
	cache := respcache.New(kv, time.Minute, nil)

	reg := registry.New(nil)
	tracker := flow.NewTracker(nil)
	ex := &fakeExtractor{results: results}
	builder := materialize.New(st, 10*time.Second, nil)
	if engine == nil {
		engine = &scriptedEngine{script: []string{"TERMINATE"}}
	}
	orch := orchestrator.New(engine, orchestrator.Options{}, nil)

	server := NewServer(reg, cache, tracker, ex, builder, st, orch, nil)

	conn := &fakeConn{}
	connID := uuid.NewString()
	reg.Connect(conn, connID)

	return &fixture{server: server, reg: reg, store: st, ex: ex, orch: orch, conn: conn, connID: connID}
}

func seedDefaultAssistant(t *testing.T, s store.Store) *store.Agent {
	t.Helper()
	now := time.Now().UTC()
	agent := &store.Agent{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Name:      materialize.DefaultReceiverName,
		Type:      store.AgentTypeAssistant,
		Config:    store.AgentConfig{Name: materialize.DefaultReceiverName, HumanInputMode: "NEVER"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAgent(context.Background(), agent))
	return agent
}

func userMessage(t *testing.T, um UserMessage) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(um)
	require.NoError(t, err)
	return raw
}

func TestSingleTurnBuild(t *testing.T) {
	fx := newFixture(t, nil, &extract.Result{
		Status:       extract.StatusReady,
		AgentName:    "BOTCSearch",
		KnowledgeHub: "/docs",
		LLMModel:     "gpt-4o",
	})
	seedDefaultAssistant(t, fx.store)

	fx.server.handleUserMessage(context.Background(), fx.connID,
		userMessage(t, UserMessage{Content: "Create BOTCSearch using /docs and gpt-4o", SessionID: "s1", UserID: "u1"}))

	frames := fx.conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, TypeAgentResponse, frames[0].Type)
	assert.Equal(t, fx.connID, frames[0].ConnectionID)

	resp, ok := frames[0].Data.(FlowResponse)
	require.True(t, ok)
	assert.Equal(t, FlowComplete, resp.Status)

	desc, ok := resp.Content.(*materialize.Descriptor)
	require.True(t, ok)
	assert.Equal(t, "BOTCSearch", desc.Name)
	assert.Equal(t, "/docs", desc.DocumentPath)
	assert.Equal(t, "BOTCSearch_collection", desc.CollectionName)
	assert.Equal(t, "gpt-4o", desc.Model)
	assert.Equal(t, "Available", desc.Availability)

	// Built agent persisted, session reset for the next build.
	agent, err := fx.store.GetAgentByName(context.Background(), "BOTCSearch")
	require.NoError(t, err)
	assert.Equal(t, store.AgentTypeRetrieverProxy, agent.Type)
}

func TestClarificationAsksForNameFirst(t *testing.T) {
	fx := newFixture(t, nil, &extract.Result{
		Status:         extract.StatusNeedsMore,
		MissingDetails: []string{"agent_name", "knowledge_hub"},
		NextQuestion:   "What would you like to name your agent?",
	})

	fx.server.handleUserMessage(context.Background(), fx.connID,
		userMessage(t, UserMessage{Content: "make an agent", SessionID: "s1", UserID: "u1"}))

	frames := fx.conn.received()
	require.Len(t, frames, 1)
	resp, ok := frames[0].Data.(FlowResponse)
	require.True(t, ok)
	assert.Equal(t, FlowFurtherQuestion, resp.Status)
	assert.Contains(t, resp.Content.(string), "name")
}

func TestDetailsAccumulateAcrossTurns(t *testing.T) {
	fx := newFixture(t, nil,
		&extract.Result{Status: extract.StatusNeedsMore, AgentName: "helper", NextQuestion: "Where should it get its knowledge?"},
		&extract.Result{Status: extract.StatusNeedsMore, KnowledgeHub: "/docs"},
	)
	seedDefaultAssistant(t, fx.store)

	ctx := context.Background()
	fx.server.handleUserMessage(ctx, fx.connID,
		userMessage(t, UserMessage{Content: "call it helper", SessionID: "s1", UserID: "u1"}))
	fx.server.handleUserMessage(ctx, fx.connID,
		userMessage(t, UserMessage{Content: "use /docs", SessionID: "s1", UserID: "u1"}))

	frames := fx.conn.received()
	require.Len(t, frames, 2)

	first, ok := frames[0].Data.(FlowResponse)
	require.True(t, ok)
	assert.Equal(t, FlowFurtherQuestion, first.Status)

	// Name and hub present; model falls back to the default.
	second, ok := frames[1].Data.(FlowResponse)
	require.True(t, ok)
	require.Equal(t, FlowComplete, second.Status)
	desc := second.Content.(*materialize.Descriptor)
	assert.Equal(t, "helper", desc.Name)
	assert.Equal(t, flow.DefaultLLMModel, desc.Model)
}

func TestRepeatedRequestServedFromCache(t *testing.T) {
	fx := newFixture(t, nil, &extract.Result{
		Status:       extract.StatusNeedsMore,
		NextQuestion: "What would you like to name your agent?",
	})

	ctx := context.Background()
	msg := userMessage(t, UserMessage{Content: "make an agent", SessionID: "s1", UserID: "u1"})
	fx.server.handleUserMessage(ctx, fx.connID, msg)
	fx.server.handleUserMessage(ctx, fx.connID, msg)

	assert.Equal(t, 1, fx.ex.callCount())

	frames := fx.conn.received()
	require.Len(t, frames, 2)

	// The replay carries the same payload the first turn produced.
	cached, ok := frames[1].Data.(json.RawMessage)
	require.True(t, ok)
	var resp FlowResponse
	require.NoError(t, json.Unmarshal(cached, &resp))
	assert.Equal(t, FlowFurtherQuestion, resp.Status)
	assert.Contains(t, resp.Content.(string), "name")
}

func TestWorkflowRun(t *testing.T) {
	engine := &scriptedEngine{script: []string{"looking that up", "Here is your answer. TERMINATE"}}
	fx := newFixture(t, engine)
	receiver := seedDefaultAssistant(t, fx.store)

	ctx := context.Background()
	now := time.Now().UTC()
	sender := &store.Agent{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Name:      "BOTCSearch",
		Type:      store.AgentTypeRetrieverProxy,
		Config:    store.AgentConfig{Name: "BOTCSearch"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, fx.store.CreateAgent(ctx, sender))

	wf := &store.Workflow{
		ID:            uuid.NewString(),
		UserID:        "u1",
		Name:          "BOTCSearch workflow",
		Type:          "twoagents",
		SummaryMethod: store.SummaryLast,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, fx.store.CreateWorkflow(ctx, wf))
	require.NoError(t, fx.store.LinkWorkflowAgent(ctx, wf.ID, sender.ID, store.RoleSender))
	require.NoError(t, fx.store.LinkWorkflowAgent(ctx, wf.ID, receiver.ID, store.RoleReceiver))

	session := &store.Session{ID: "s1", UserID: "u1", WorkflowID: wf.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, fx.store.CreateSession(ctx, session))

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go fx.server.DeliverLoop(workerCtx)

	fx.server.handleUserMessage(ctx, fx.connID,
		userMessage(t, UserMessage{Content: "what is the answer?", SessionID: "s1", WorkflowID: wf.ID, UserID: "u1"}))

	// The direct response arrives synchronously; the intercepted hops
	// arrive through the delivery worker.
	require.Eventually(t, func() bool {
		hops := 0
		for _, f := range fx.conn.received() {
			if f.Type == TypeAgentMessage {
				hops++
			}
		}
		return hops == 2
	}, 2*time.Second, 10*time.Millisecond)

	var resp FlowResponse
	for _, f := range fx.conn.received() {
		if f.Type == TypeAgentResponse {
			r, ok := f.Data.(FlowResponse)
			require.True(t, ok)
			resp = r
		}
	}
	assert.Equal(t, FlowComplete, resp.Status)
	assert.Contains(t, resp.Content.(string), "Here is your answer.")

	// Both turn messages persisted, the reply carrying run metadata.
	messages, err := fx.store.ListSessionMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "last", messages[1].Meta["summary_method"])
}

func TestWorkflowNotFound(t *testing.T) {
	fx := newFixture(t, nil)

	fx.server.handleUserMessage(context.Background(), fx.connID,
		userMessage(t, UserMessage{Content: "run it", WorkflowID: "no-such-workflow", UserID: "u1"}))

	frames := fx.conn.received()
	require.Len(t, frames, 1)
	resp, ok := frames[0].Data.(FlowResponse)
	require.True(t, ok)
	assert.Equal(t, FlowError, resp.Status)
}

func TestMalformedUserMessageIgnored(t *testing.T) {
	fx := newFixture(t, nil)

	fx.server.handleUserMessage(context.Background(), fx.connID, json.RawMessage(`{"content": ""}`))
	fx.server.handleUserMessage(context.Background(), fx.connID, json.RawMessage(`not json`))

	assert.Empty(t, fx.conn.received())
	assert.Equal(t, 0, fx.ex.callCount())
}

func TestWebSocketRoundTrip(t *testing.T) {
	fx := newFixture(t, nil, &extract.Result{
		Status:       extract.StatusNeedsMore,
		NextQuestion: "What would you like to name your agent?",
	})

	e := echo.New()
	e.GET("/api/ws", fx.server.HandleWebSocket)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer ws.Close()

	// A bad frame and an unknown type are both tolerated.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, ws.WriteJSON(Inbound{Type: "mystery", Data: json.RawMessage(`{}`)}))

	raw, err := json.Marshal(UserMessage{Content: "make an agent", SessionID: "s1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(Inbound{Type: TypeUserMessage, Data: raw}))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out struct {
		Type         string       `json:"type"`
		Data         FlowResponse `json:"data"`
		ConnectionID string       `json:"connection_id"`
	}
	require.NoError(t, ws.ReadJSON(&out))

	assert.Equal(t, TypeAgentResponse, out.Type)
	assert.NotEmpty(t, out.ConnectionID)
	assert.Equal(t, FlowFurtherQuestion, out.Data.Status)
	assert.Equal(t, "What would you like to name your agent?", out.Data.Content)
}

func TestConnectionCleanupOnClose(t *testing.T) {
	fx := newFixture(t, nil)

	e := echo.New()
	e.GET("/api/ws", fx.server.HandleWebSocket)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	// The fixture connection plus the dialed one.
	require.Eventually(t, func() bool { return fx.reg.Count() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return fx.reg.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestParticipantFor(t *testing.T) {
	tests := []struct {
		agentType store.AgentType
		want      orchestrator.ParticipantKind
	}{
		{store.AgentTypeAssistant, orchestrator.KindAssistant},
		{store.AgentTypeUserProxy, orchestrator.KindUserProxy},
		{store.AgentTypeRetrieverProxy, orchestrator.KindRetrieverProxy},
		{store.AgentTypeGroupChat, orchestrator.KindGroupChat},
	}

	for _, tt := range tests {
		t.Run(string(tt.agentType), func(t *testing.T) {
			p := participantFor(&store.Agent{Name: "x", Type: tt.agentType})
			assert.Equal(t, tt.want, p.Kind)
		})
	}
}
