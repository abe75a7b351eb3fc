// ABOUTME: Pulls structured agent details out of free-form user messages.
// ABOUTME: Defines the Extractor interface and its result type.

package extract

import (
	"context"
	"strings"
)

// Result status values returned by an extractor.
const (
	StatusReady     = "READY"
	StatusNeedsMore = "NEEDS_MORE"
)

// Result is the structured output of one extraction pass. Field values are
// empty when the message did not mention them.
type Result struct {
	Status         string   `json:"status"`
	AgentName      string   `json:"agent_name"`
	KnowledgeHub   string   `json:"knowledge_hub"`
	LLMModel       string   `json:"llm_model"`
	MissingDetails []string `json:"missing_details"`
	NextQuestion   string   `json:"next_question"`
}

// Known holds the details already collected for the session, so the
// extractor can focus on what is still missing.
type Known struct {
	AgentName    string
	KnowledgeHub string
	LLMModel     string
}

// Missing lists the fields not yet collected.
func (k Known) Missing() []string {
	var out []string
	if k.AgentName == "" {
		out = append(out, "agent_name")
	}
	if k.KnowledgeHub == "" {
		out = append(out, "knowledge_hub")
	}
	if k.LLMModel == "" {
		out = append(out, "llm_model")
	}
	return out
}

// Extractor pulls agent-building details out of one user message.
// Implementations must degrade rather than fail: when the message cannot be
// understood, return a NEEDS_MORE result instead of an error so the
// conversation keeps moving.
type Extractor interface {
	Extract(ctx context.Context, message string, known Known) (*Result, error)
}

// NeedsMore builds the fallback result used when extraction cannot produce
// anything better: no fields, a generic clarifying question.
func NeedsMore(known Known) *Result {
	return &Result{
		Status:         StatusNeedsMore,
		MissingDetails: known.Missing(),
		NextQuestion:   "Could you tell me more about the agent you want to build? I still need: " + strings.Join(humanize(known.Missing()), ", ") + ".",
	}
}

func humanize(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ReplaceAll(f, "_", " ")
	}
	return out
}
