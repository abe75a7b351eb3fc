// ABOUTME: Turns a complete set of collected details into persisted agent records.
// ABOUTME: Classifies the knowledge hub and commits the bundle atomically.

package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/forge-gateway/internal/store"
)

// DefaultReceiverName is the pre-provisioned agent that answers on behalf of
// every newly built agent's workflow.
const DefaultReceiverName = "default_assistant"

// DefaultEmbeddingModel is used for retrieval collections.
const DefaultEmbeddingModel = "BAAI/bge-large-en-v1.5"

// Descriptor is the public description of a built agent, returned to the
// client once materialization commits.
type Descriptor struct {
	Name                    string `json:"name"`
	MaxConsecutiveAutoReply int    `json:"max_consecutive_auto_reply"`
	DocumentPath            string `json:"documentPath"`
	CollectionName          string `json:"collection_name"`
	Model                   string `json:"model"`
	EmbeddingModel          string `json:"embedding_model"`
	Availability            string `json:"availability"`
}

// Request carries the collected details into materialization.
type Request struct {
	UserID       string
	AgentName    string
	KnowledgeHub string
	LLMModel     string
}

// Materializer builds persistent agent, workflow, and knowledge hub records
// from collected conversation details.
type Materializer struct {
	store         store.Store
	commitTimeout time.Duration
	logger        *slog.Logger
}

// New creates a Materializer. The commit timeout bounds the transactional
// write so a wedged database cannot stall a session; zero disables it.
// Pass nil logger for the default.
func New(st store.Store, commitTimeout time.Duration, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:         st,
		commitTimeout: commitTimeout,
		logger:        logger.With("component", "materializer"),
	}
}

// Materialize persists the agent described by req and returns its
// descriptor. The knowledge hub record, the retriever agent, the two-agent
// workflow, and the workflow's sender/receiver links commit in one
// transaction; a failure anywhere leaves no partial records behind.
//
// The receiver side of the workflow is the pre-provisioned default
// assistant; materialization fails with store.ErrNotFound when it is
// missing.
func (m *Materializer) Materialize(ctx context.Context, req Request) (*Descriptor, error) {
	if req.AgentName == "" || req.KnowledgeHub == "" || req.LLMModel == "" {
		return nil, fmt.Errorf("materialize requires name, knowledge hub, and model")
	}

	receiver, err := m.store.GetAgentByName(ctx, DefaultReceiverName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default receiver: %w", err)
	}

	hubType := ClassifyHub(req.KnowledgeHub)
	now := time.Now().UTC()
	collection := req.AgentName + "_collection"

	hub := &store.KnowledgeHub{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Type:        hubType,
		Name:        req.AgentName + " hub",
		Description: fmt.Sprintf("Knowledge source for %s", req.AgentName),
		Details:     req.KnowledgeHub,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	agent := &store.Agent{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Name:   req.AgentName,
		Type:   store.AgentTypeRetrieverProxy,
		Config: store.AgentConfig{
			Name:                    req.AgentName,
			HumanInputMode:          "NEVER",
			MaxConsecutiveAutoReply: 1,
			Retrieve: &store.RetrieverConfig{
				Task:           "qa",
				DocsPath:       req.KnowledgeHub,
				CollectionName: collection,
				Model:          req.LLMModel,
				EmbeddingModel: DefaultEmbeddingModel,
				GetOrCreate:    true,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	workflow := &store.Workflow{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Name:          req.AgentName + " workflow",
		Description:   fmt.Sprintf("Retrieval workflow for %s over %s", req.AgentName, req.KnowledgeHub),
		Type:          "twoagents",
		SummaryMethod: store.SummaryLast,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var linkedModelID string
	if model, err := m.store.GetModelByName(ctx, req.LLMModel); err == nil {
		linkedModelID = model.ID
	}

	mat := &store.Materialization{
		Hub:             hub,
		Agent:           agent,
		Workflow:        workflow,
		LinkedModelID:   linkedModelID,
		ReceiverAgentID: receiver.ID,
	}
	commitCtx := ctx
	if m.commitTimeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(ctx, m.commitTimeout)
		defer cancel()
	}
	if err := m.store.CommitMaterialization(commitCtx, mat); err != nil {
		return nil, fmt.Errorf("failed to commit materialization: %w", err)
	}

	m.logger.Info("agent materialized",
		"agent_name", req.AgentName,
		"hub_type", hubType,
		"model", req.LLMModel,
		"workflow_id", workflow.ID,
	)

	return &Descriptor{
		Name:                    req.AgentName,
		MaxConsecutiveAutoReply: 1,
		DocumentPath:            req.KnowledgeHub,
		CollectionName:          collection,
		Model:                   req.LLMModel,
		EmbeddingModel:          DefaultEmbeddingModel,
		Availability:            "Available",
	}, nil
}

// ClassifyHub decides what kind of knowledge source a path refers to.
// URL schemes win outright; otherwise the local filesystem is consulted,
// and when the path does not exist a file suffix is the tiebreaker.
func ClassifyHub(path string) store.HubType {
	trimmed := strings.TrimSpace(path)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return store.HubWebsite
	}
	if strings.HasPrefix(lower, "www.") {
		return store.HubWebsite
	}

	if info, err := os.Stat(trimmed); err == nil {
		if info.IsDir() {
			return store.HubDirectory
		}
		return store.HubFile
	}

	if looksLikeFile(lower) {
		return store.HubFile
	}
	if strings.HasSuffix(trimmed, "/") || strings.HasSuffix(trimmed, string(os.PathSeparator)) {
		return store.HubDirectory
	}
	return store.HubUnknown
}

// looksLikeFile reports whether the last path segment carries an extension.
func looksLikeFile(lower string) bool {
	ext := filepath.Ext(filepath.Base(lower))
	return len(ext) > 1
}
