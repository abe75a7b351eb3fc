// ABOUTME: Tests for extraction result parsing and the degrade fallback.
// ABOUTME: Exercises parseResult edge cases without touching the Gemini API.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	text := `{"status":"READY","agent_name":"BOTCSearch","knowledge_hub":"/docs","llm_model":"gpt-4o","missing_details":[],"next_question":""}`

	result, err := parseResult(text)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, result.Status)
	assert.Equal(t, "BOTCSearch", result.AgentName)
	assert.Equal(t, "/docs", result.KnowledgeHub)
	assert.Equal(t, "gpt-4o", result.LLMModel)
	assert.Empty(t, result.MissingDetails)
}

func TestParseResultStripsCodeFence(t *testing.T) {
	text := "```json\n{\"status\":\"NEEDS_MORE\",\"agent_name\":\"helper\",\"missing_details\":[\"knowledge_hub\",\"llm_model\"],\"next_question\":\"Where should it get its knowledge?\"}\n```"

	result, err := parseResult(text)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsMore, result.Status)
	assert.Equal(t, "helper", result.AgentName)
	assert.Equal(t, []string{"knowledge_hub", "llm_model"}, result.MissingDetails)
}

func TestParseResultRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "I would be happy to help you build an agent!"},
		{"empty", ""},
		{"wrong status", `{"status":"MAYBE"}`},
		{"truncated", `{"status":"READY","agent_name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResult(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestNeedsMoreFallback(t *testing.T) {
	result := NeedsMore(Known{AgentName: "helper"})

	assert.Equal(t, StatusNeedsMore, result.Status)
	assert.Equal(t, []string{"knowledge_hub", "llm_model"}, result.MissingDetails)
	assert.Contains(t, result.NextQuestion, "knowledge hub")
	assert.NotContains(t, result.NextQuestion, "agent name")
}

func TestKnownMissing(t *testing.T) {
	assert.Equal(t, []string{"agent_name", "knowledge_hub", "llm_model"}, Known{}.Missing())
	assert.Empty(t, Known{AgentName: "a", KnowledgeHub: "b", LLMModel: "c"}.Missing())
}
