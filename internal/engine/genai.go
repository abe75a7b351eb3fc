// ABOUTME: Gemini-backed exchange engine driving orchestrated conversations.
// ABOUTME: Generates hops until the model terminates and summarizes transcripts.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/2389/forge-gateway/internal/orchestrator"
)

const chatSystemPrompt = `You are %s, one side of a two-party working exchange with %s.
Answer the task you are given. When the task is fully resolved, end your
final message with the word TERMINATE on its own line.`

const summarySystemPrompt = `Summarize the following exchange between agents in a short,
natural-language paragraph addressed to the user who asked the original question.
Do not mention the agents or the exchange mechanics.`

// GenAIEngine implements the exchange engine against Google's Gemini API.
// Each hop is one model turn; the engine feeds the growing transcript back
// to the model until the observer stops the exchange or the model
// terminates on its own.
type GenAIEngine struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGenAIEngine creates an exchange engine backed by the Gemini API.
func NewGenAIEngine(apiKey, model string, logger *slog.Logger) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
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

	return &GenAIEngine{
		client: client,
		model:  model,
		logger: logger.With("component", "engine"),
	}, nil
}

// InitiateChat drives the exchange: the receiver answers the sender's task,
// and each generated message is surfaced through observe. The loop ends
// when observe returns false or the model stops producing output.
//
// Each generation runs from the current speaker's perspective, so the
// transcript is re-labeled per turn: the speaker's own prior messages are
// model turns, the counterpart's are user turns.
func (e *GenAIEngine) InitiateChat(ctx context.Context, sender, receiver *orchestrator.Participant, message string, observe func(orchestrator.Hop) bool) error {
	turns := []turn{{speaker: sender, content: message}}
	from, to := receiver, sender

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		system := fmt.Sprintf(chatSystemPrompt, from.Name, to.Name)
		history := historyFor(turns, from)

		resp, err := e.client.Models.GenerateContent(ctx, e.model, history, &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		})
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		content := strings.TrimSpace(resp.Text())
		if content == "" {
			e.logger.Warn("model produced empty reply, ending exchange")
			return nil
		}

		if !observe(orchestrator.Hop{
			Sender:    from,
			Recipient: to,
			Content:   content,
			Timestamp: time.Now().UTC(),
		}) {
			return nil
		}

		turns = append(turns, turn{speaker: from, content: content})
		from, to = to, from
	}
}

// turn is one message of the exchange, attributed to its speaker.
type turn struct {
	speaker *orchestrator.Participant
	content string
}

// historyFor re-labels the transcript from the current speaker's
// perspective: its own prior messages are model turns, everything the
// counterpart said is a user turn.
func historyFor(turns []turn, current *orchestrator.Participant) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, tn := range turns {
		var role genai.Role = genai.RoleUser
		if tn.speaker == current {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(tn.content, role))
	}
	return history
}

// Summarize asks the model for a user-facing summary of the transcript.
func (e *GenAIEngine) Summarize(ctx context.Context, transcript []orchestrator.Hop) (string, error) {
	var b strings.Builder
	for _, hop := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", hop.Sender.Name, hop.Content)
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(b.String(), genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(summarySystemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
