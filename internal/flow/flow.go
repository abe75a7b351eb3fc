// ABOUTME: Per-session conversation state machine for collecting agent details.
// ABOUTME: Tracks which fields are known and decides the next question to ask.

package flow

import (
	"log/slog"
	"strings"
	"sync"
)

// DefaultLLMModel is used when a session never names a model explicitly.
const DefaultLLMModel = "gpt-4o"

// Status describes whether a session has everything it needs.
type Status string

const (
	// StatusCollecting means at least one required detail is still missing.
	StatusCollecting Status = "COLLECTING"
	// StatusReady means the session holds a complete set of details.
	StatusReady Status = "READY"
)

// State holds the details collected so far for one session.
type State struct {
	AgentName    string
	KnowledgeHub string
	LLMModel     string
}

// Clone returns a copy of the state.
func (s *State) Clone() State {
	return State{
		AgentName:    s.AgentName,
		KnowledgeHub: s.KnowledgeHub,
		LLMModel:     s.LLMModel,
	}
}

// Status reports READY once the name and knowledge hub are present. The
// model never blocks readiness: it falls back to DefaultLLMModel when the
// user does not choose one.
func (s *State) Status() Status {
	if s.AgentName == "" || s.KnowledgeHub == "" {
		return StatusCollecting
	}
	return StatusReady
}

// Missing lists the human-readable names of fields not yet collected, in
// collection priority order.
func (s *State) Missing() []string {
	var out []string
	if s.AgentName == "" {
		out = append(out, "agent name")
	}
	if s.KnowledgeHub == "" {
		out = append(out, "knowledge hub")
	}
	return out
}

// NextPrompt returns the question for the highest-priority missing field:
// name first, then knowledge hub. Returns the empty string when the state
// is complete. The model is never asked for since it has a default.
func (s *State) NextPrompt() string {
	switch {
	case s.AgentName == "":
		return "What would you like to name your agent?"
	case s.KnowledgeHub == "":
		return "Where should the agent get its knowledge from? You can provide a website URL, a directory, or a file path."
	default:
		return ""
	}
}

// Extraction carries field values pulled out of one user message.
type Extraction struct {
	AgentName    string
	KnowledgeHub string
	LLMModel     string
}

// Tracker owns the per-session states behind one lock.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*State
	logger   *slog.Logger
}

// NewTracker creates an empty tracker. Pass nil logger for the default.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sessions: make(map[string]*State),
		logger:   logger.With("component", "flow"),
	}
}

// Lookup returns a copy of the session's state and whether it exists.
func (t *Tracker) Lookup(sessionID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sessions[sessionID]
	if !ok {
		return State{}, false
	}
	return st.Clone(), true
}

// Apply merges an extraction into the session's state and returns the
// updated copy. An empty extraction field means "not provided" and leaves
// the collected value alone; a non-empty one always takes effect, so a
// later message can correct an earlier mis-captured detail.
func (t *Tracker) Apply(sessionID string, ext Extraction) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sessions[sessionID]
	if !ok {
		st = &State{}
		t.sessions[sessionID] = st
	}

	if v := strings.TrimSpace(ext.AgentName); v != "" {
		st.AgentName = v
	}
	if v := strings.TrimSpace(ext.KnowledgeHub); v != "" {
		st.KnowledgeHub = v
	}
	if v := strings.TrimSpace(ext.LLMModel); v != "" {
		st.LLMModel = v
	}

	t.logger.Debug("state updated",
		"session_id", sessionID,
		"status", st.Status(),
		"missing", st.Missing(),
	)
	return st.Clone()
}

// FillDefaults applies default values for fields that have defaults and are
// still empty. Called once a session is otherwise ready to materialize, so
// an explicit model choice always wins over the default.
func (t *Tracker) FillDefaults(sessionID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sessions[sessionID]
	if !ok {
		st = &State{}
		t.sessions[sessionID] = st
	}
	if st.LLMModel == "" {
		st.LLMModel = DefaultLLMModel
	}
	return st.Clone()
}

// Reset discards the session's state so the next message starts a fresh
// collection round. Unknown session ids are a no-op.
func (t *Tracker) Reset(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[sessionID]; ok {
		delete(t.sessions, sessionID)
		t.logger.Debug("state reset", "session_id", sessionID)
	}
}

// Sessions returns the number of sessions currently tracked.
func (t *Tracker) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
