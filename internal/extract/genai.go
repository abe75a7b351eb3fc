// ABOUTME: Gemini-backed extractor that turns free text into agent details.
// ABOUTME: Prompts for strict JSON and degrades to NEEDS_MORE on any failure.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const extractorSystemPrompt = `You extract agent-building details from user messages.

The user is describing an AI agent they want to build. An agent needs three details:
- agent_name: what the agent should be called
- knowledge_hub: where the agent gets its knowledge (a website URL, a directory path, or a file path)
- llm_model: the language model the agent should use (for example gpt-4o)

Rules:
- Only extract details the user actually stated. Never invent values.
- If the user gives a bare domain like "example.com" as a knowledge source, prepend "https://" to it.
- Extract a detail whenever this message states it, even if it is already known: the user may be correcting an earlier value. Leave a field empty only when this message says nothing about it.
- Respond with a single JSON object and nothing else, using exactly these keys:
  {"status": "READY" or "NEEDS_MORE", "agent_name": "", "knowledge_hub": "", "llm_model": "", "missing_details": [], "next_question": ""}
- status is READY only when, combined with the already-known details, all three details are present.
- missing_details lists the detail keys still unknown after this message.
- next_question is one short friendly question asking for the highest-priority missing detail (order: agent_name, knowledge_hub, llm_model). Empty when READY.`

// GenAIExtractor extracts agent details using Google's Gemini API.
type GenAIExtractor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenAIExtractor creates an extractor backed by the Gemini API.
func NewGenAIExtractor(apiKey, model string, timeout time.Duration, logger *slog.Logger) (*GenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIExtractor{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "extractor"),
	}, nil
}

// Extract sends the message to the model and parses the structured reply.
// Model failures and malformed replies degrade to a NEEDS_MORE result so a
// flaky upstream never stalls the conversation.
func (e *GenAIExtractor) Extract(ctx context.Context, message string, known Known) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(e.userPrompt(message, known), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extractorSystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		e.logger.Warn("extraction call failed, degrading", "error", err)
		return NeedsMore(known), nil
	}

	result, err := parseResult(resp.Text())
	if err != nil {
		e.logger.Warn("extraction reply unparseable, degrading", "error", err)
		return NeedsMore(known), nil
	}

	e.logger.Debug("extraction complete",
		"status", result.Status,
		"missing", result.MissingDetails,
	)
	return result, nil
}

func (e *GenAIExtractor) userPrompt(message string, known Known) string {
	var b strings.Builder
	b.WriteString("Already known details:\n")
	writeKnown(&b, "agent_name", known.AgentName)
	writeKnown(&b, "knowledge_hub", known.KnowledgeHub)
	writeKnown(&b, "llm_model", known.LLMModel)
	b.WriteString("\nUser message:\n")
	b.WriteString(message)
	return b.String()
}

func writeKnown(b *strings.Builder, field, value string) {
	if value == "" {
		value = "(unknown)"
	}
	fmt.Fprintf(b, "- %s: %s\n", field, value)
}

// parseResult decodes the model reply, tolerating markdown code fences.
func parseResult(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	if result.Status != StatusReady && result.Status != StatusNeedsMore {
		return nil, fmt.Errorf("unexpected extraction status %q", result.Status)
	}
	return &result, nil
}
