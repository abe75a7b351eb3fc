// ABOUTME: Tests for agent materialization against an in-memory store.
// ABOUTME: Covers descriptor contents, hub classification, and missing receiver.

package materialize

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/forge-gateway/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDefaultAssistant(t *testing.T, s store.Store) *store.Agent {
	t.Helper()
	now := time.Now().UTC()
	agent := &store.Agent{
		ID:     uuid.NewString(),
		UserID: "u1",
		Name:   DefaultReceiverName,
		Type:   store.AgentTypeAssistant,
		Config: store.AgentConfig{
			Name:           DefaultReceiverName,
			HumanInputMode: "NEVER",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAgent(context.Background(), agent))
	return agent
}

func TestMaterialize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDefaultAssistant(t, s)
	m := New(s, 0, nil)

	desc, err := m.Materialize(ctx, Request{
		UserID:       "u1",
		AgentName:    "BOTCSearch",
		KnowledgeHub: "/docs",
		LLMModel:     "gpt-4o",
	})
	require.NoError(t, err)

	assert.Equal(t, "BOTCSearch", desc.Name)
	assert.Equal(t, 1, desc.MaxConsecutiveAutoReply)
	assert.Equal(t, "/docs", desc.DocumentPath)
	assert.Equal(t, "BOTCSearch_collection", desc.CollectionName)
	assert.Equal(t, "gpt-4o", desc.Model)
	assert.Equal(t, DefaultEmbeddingModel, desc.EmbeddingModel)
	assert.Equal(t, "Available", desc.Availability)

	// The retriever agent persisted with its full config.
	agent, err := s.GetAgentByName(ctx, "BOTCSearch")
	require.NoError(t, err)
	assert.Equal(t, store.AgentTypeRetrieverProxy, agent.Type)
	require.NotNil(t, agent.Config.Retrieve)
	assert.Equal(t, "/docs", agent.Config.Retrieve.DocsPath)
	assert.Equal(t, "BOTCSearch_collection", agent.Config.Retrieve.CollectionName)
	assert.True(t, agent.Config.Retrieve.GetOrCreate)

	// The workflow links the new agent as sender and the default assistant
	// as receiver.
	workflows, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 1)

	bundle, err := s.GetWorkflowBundle(ctx, workflows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "BOTCSearch", bundle.Sender.Name)
	assert.Equal(t, DefaultReceiverName, bundle.Receiver.Name)

	hubs, err := s.ListKnowledgeHubs(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, store.HubDirectory, hubs[0].Type)
	assert.Equal(t, "/docs", hubs[0].Details)
}

func TestMaterializeLinksExistingModel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDefaultAssistant(t, s)

	now := time.Now().UTC()
	model := &store.Model{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Model:     "gpt-4o",
		APIType:   "openai",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateModel(ctx, model))

	m := New(s, 0, nil)
	_, err := m.Materialize(ctx, Request{
		UserID:       "u1",
		AgentName:    "helper",
		KnowledgeHub: "https://example.com",
		LLMModel:     "gpt-4o",
	})
	require.NoError(t, err)

	agent, err := s.GetAgentByName(ctx, "helper")
	require.NoError(t, err)
	linked, err := s.LinkedModels(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "gpt-4o", linked[0].Model)
}

func TestMaterializeMissingReceiver(t *testing.T) {
	s := newTestStore(t)
	m := New(s, 0, nil)

	_, err := m.Materialize(context.Background(), Request{
		UserID:       "u1",
		AgentName:    "helper",
		KnowledgeHub: "/docs",
		LLMModel:     "gpt-4o",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Nothing committed.
	agents, err := s.ListAgents(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestMaterializeIncompleteRequest(t *testing.T) {
	s := newTestStore(t)
	m := New(s, 0, nil)

	_, err := m.Materialize(context.Background(), Request{
		UserID:    "u1",
		AgentName: "helper",
	})
	assert.Error(t, err)
}

// slowCommitStore wedges the transactional write until its context expires.
type slowCommitStore struct {
	store.Store
}

func (s slowCommitStore) CommitMaterialization(ctx context.Context, _ *store.Materialization) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestMaterializeCommitTimeout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedDefaultAssistant(t, s)
	m := New(slowCommitStore{Store: s}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := m.Materialize(ctx, Request{
		UserID:       "u1",
		AgentName:    "helper",
		KnowledgeHub: "/docs",
		LLMModel:     "gpt-4o",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClassifyHub(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.data")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name string
		path string
		want store.HubType
	}{
		{"https url", "https://example.com/docs", store.HubWebsite},
		{"http url", "http://example.com", store.HubWebsite},
		{"www prefix", "www.example.com", store.HubWebsite},
		{"existing directory", dir, store.HubDirectory},
		{"existing file", file, store.HubFile},
		{"missing path with pdf suffix", "/nowhere/report.pdf", store.HubFile},
		{"missing path with md suffix", "/nowhere/readme.md", store.HubFile},
		{"missing path with uncommon suffix", "/nowhere/notes.rst", store.HubFile},
		{"extension only in a parent segment", "/nowhere/docs.d/latest", store.HubUnknown},
		{"missing path with trailing slash", "/nowhere/docs/", store.HubDirectory},
		{"bare missing path", "/nowhere/docs", store.HubUnknown},
		{"whitespace padded url", "  https://example.com  ", store.HubWebsite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHub(tt.path))
		})
	}
}
