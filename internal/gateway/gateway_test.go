// ABOUTME: Tests for gateway construction, provisioning, and lifecycle.
// ABOUTME: Substitutes fake extractor and engine so no model calls happen.

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/forge-gateway/internal/config"
	"github.com/2389/forge-gateway/internal/extract"
	"github.com/2389/forge-gateway/internal/materialize"
	"github.com/2389/forge-gateway/internal/orchestrator"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, message string, known extract.Known) (*extract.Result, error) {
	return extract.NeedsMore(known), nil
}

type stubEngine struct{}

func (stubEngine) InitiateChat(ctx context.Context, sender, receiver *orchestrator.Participant, message string, observe func(orchestrator.Hop) bool) error {
	observe(orchestrator.Hop{Sender: receiver, Recipient: sender, Content: "TERMINATE", Timestamp: time.Now().UTC()})
	return nil
}

func (stubEngine) Summarize(ctx context.Context, transcript []orchestrator.Hop) (string, error) {
	return "", nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = ":memory:"
	return cfg
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(testConfig(), nil, WithExtractor(stubExtractor{}), WithEngine(stubEngine{}))
	require.NoError(t, err)
	return g
}

func TestNewProvisionsDefaultReceiver(t *testing.T) {
	g := newTestGateway(t)
	defer func() {
		require.NoError(t, g.Shutdown(context.Background()))
	}()

	agent, err := g.store.GetAgentByName(context.Background(), materialize.DefaultReceiverName)
	require.NoError(t, err)
	assert.Equal(t, materialize.DefaultReceiverName, agent.Config.Name)
	assert.Equal(t, "NEVER", agent.Config.HumanInputMode)
}

func TestNewWithoutAPIKeyFails(t *testing.T) {
	cfg := testConfig()
	cfg.Extractor.APIKey = ""

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	g := newTestGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	// Give the server a moment to come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}

func TestShutdownIsCleanWithoutRun(t *testing.T) {
	g := newTestGateway(t)
	assert.NoError(t, g.Shutdown(context.Background()))
}
