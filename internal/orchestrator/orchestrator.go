// ABOUTME: Drives one orchestrated exchange and routes every intercepted hop.
// ABOUTME: Applies termination, summary strategies, and run metadata capture.

package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389/forge-gateway/internal/store"
)

// TerminateSentinel ends an exchange when it appears in the trailing
// portion of a hop's content.
const TerminateSentinel = "TERMINATE"

// terminateWindow is how many trailing characters of a hop are inspected
// for the sentinel, so a long message merely quoting it early on does not
// end the exchange.
const terminateWindow = 128

// Hop is one intercepted message between two participants.
type Hop struct {
	Sender    *Participant
	Recipient *Participant
	Content   string
	Timestamp time.Time
}

// Envelope is the routing wrapper pushed onto the outbound queue for every
// intercepted hop. Field names follow the client wire format.
type Envelope struct {
	Recipient    string `json:"recipient"`
	Sender       string `json:"sender"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	SenderType   string `json:"sender_type"`
	ConnectionID string `json:"connection_id"`
	MessageType  string `json:"message_type"`
}

// Engine is the external multi-agent exchange engine. InitiateChat drives
// the exchange hop by hop, calling observe for every message passed in
// either direction, including hops internal to composite participants.
// When observe returns false the engine must stop the exchange and return.
type Engine interface {
	InitiateChat(ctx context.Context, sender, receiver *Participant, message string, observe func(Hop) bool) error
	Summarize(ctx context.Context, transcript []Hop) (string, error)
}

// RunMetadata is recorded for every orchestrated run regardless of the
// summary strategy.
type RunMetadata struct {
	Elapsed       time.Duration
	Transcript    []Hop
	SummaryMethod store.SummaryMethod
	ModifiedFiles []string
}

// RunResult is the outcome of one orchestrated exchange.
type RunResult struct {
	Summary  string
	Metadata RunMetadata
}

// Orchestrator runs orchestrated exchanges and publishes every hop to its
// outbound queue. Delivery is somebody else's job: a background worker
// drains the queue and writes through the connection registry.
type Orchestrator struct {
	engine         Engine
	outbound       chan Envelope
	maxTurns       int
	summaryTimeout time.Duration
	workDir        string
	logger         *slog.Logger
}

// Options configure an Orchestrator. Zero values fall back to defaults.
type Options struct {
	MaxTurns       int
	SummaryTimeout time.Duration
	WorkDir        string
	QueueSize      int
}

// New creates an Orchestrator around the given engine.
func New(engine Engine, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 10
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 60 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:         engine,
		outbound:       make(chan Envelope, opts.QueueSize),
		maxTurns:       opts.MaxTurns,
		summaryTimeout: opts.SummaryTimeout,
		workDir:        opts.WorkDir,
		logger:         logger.With("component", "orchestrator"),
	}
}

// Outbound exposes the routing-envelope queue for the delivery worker.
func (o *Orchestrator) Outbound() <-chan Envelope {
	return o.outbound
}

// Run drives one exchange between sender and receiver, starting from
// message, and blocks until the exchange terminates. Every hop is tagged
// with connectionID and enqueued for delivery before the next hop runs.
// The summary strategy comes from the workflow, not the orchestrator.
func (o *Orchestrator) Run(ctx context.Context, sender, receiver *Participant, message, connectionID string, method store.SummaryMethod) (*RunResult, error) {
	if sender == nil || receiver == nil {
		return nil, fmt.Errorf("run requires both sender and receiver participants")
	}

	start := time.Now()
	var transcript []Hop
	turns := 0

	observe := func(hop Hop) bool {
		transcript = append(transcript, hop)
		turns++
		o.publish(hop, connectionID, "agent_message")

		if ShouldTerminate(hop.Content) {
			o.logger.Debug("termination sentinel seen", "turns", turns)
			return false
		}
		if turns >= o.maxTurns {
			o.logger.Debug("max turns reached", "turns", turns)
			return false
		}
		return ctx.Err() == nil
	}

	if err := o.engine.InitiateChat(ctx, sender, receiver, message, observe); err != nil {
		return nil, fmt.Errorf("exchange failed: %w", err)
	}

	summary := o.summarize(ctx, transcript, connectionID, method)

	meta := RunMetadata{
		Elapsed:       time.Since(start),
		Transcript:    transcript,
		SummaryMethod: method,
		ModifiedFiles: o.modifiedFiles(start),
	}
	o.logger.Info("exchange complete",
		"turns", len(transcript),
		"elapsed", meta.Elapsed,
		"summary_method", method,
		"modified_files", len(meta.ModifiedFiles),
	)

	return &RunResult{Summary: summary, Metadata: meta}, nil
}

// summarize computes the user-facing output per the workflow's strategy.
// A failed llm summarization degrades to an empty summary.
func (o *Orchestrator) summarize(ctx context.Context, transcript []Hop, connectionID string, method store.SummaryMethod) string {
	switch method {
	case store.SummaryLast:
		return lastWithCodeOutput(transcript)
	case store.SummaryLLM:
		if len(transcript) == 0 {
			return ""
		}
		o.publish(Hop{
			Sender:    NewAssistant("system"),
			Recipient: NewUserProxy("user"),
			Content:   "summarizing",
			Timestamp: time.Now().UTC(),
		}, connectionID, "agent_status")

		sctx, cancel := context.WithTimeout(ctx, o.summaryTimeout)
		defer cancel()
		summary, err := o.engine.Summarize(sctx, transcript)
		if err != nil {
			o.logger.Warn("summarization failed, returning empty summary", "error", err)
			return ""
		}
		return summary
	default:
		return ""
	}
}

// publish enqueues one routing envelope. The queue is buffered; if the
// delivery worker has fallen far enough behind to fill it, the hop is
// dropped rather than wedging the exchange.
func (o *Orchestrator) publish(hop Hop, connectionID, messageType string) {
	env := Envelope{
		Recipient:    hop.Recipient.Name,
		Sender:       hop.Sender.Name,
		Message:      hop.Content,
		Timestamp:    hop.Timestamp.UTC().Format(time.RFC3339),
		SenderType:   hop.Sender.SenderType(),
		ConnectionID: connectionID,
		MessageType:  messageType,
	}
	select {
	case o.outbound <- env:
	default:
		o.logger.Warn("outbound queue full, dropping envelope",
			"sender", env.Sender,
			"connection_id", connectionID,
		)
	}
}

// Close shuts the outbound queue. Call only after all runs have returned.
func (o *Orchestrator) Close() {
	close(o.outbound)
}

// ShouldTerminate reports whether a hop's content carries the termination
// sentinel in its trailing window.
func ShouldTerminate(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) > terminateWindow {
		trimmed = trimmed[len(trimmed)-terminateWindow:]
	}
	return strings.Contains(trimmed, TerminateSentinel)
}

// lastWithCodeOutput returns the final message, stripped of the sentinel,
// concatenated with the output of any successfully executed code fragments
// earlier in the transcript.
func lastWithCodeOutput(transcript []Hop) string {
	if len(transcript) == 0 {
		return ""
	}

	last := strings.TrimSpace(transcript[len(transcript)-1].Content)
	last = strings.TrimSpace(strings.TrimSuffix(last, TerminateSentinel))

	var outputs []string
	for _, hop := range transcript[:len(transcript)-1] {
		if out, ok := executedCodeOutput(hop.Content); ok {
			outputs = append(outputs, out)
		}
	}
	if len(outputs) == 0 {
		return last
	}
	return last + "\n" + strings.Join(outputs, "\n")
}

// executedCodeOutput recognizes the engine's code-execution result format
// and extracts the output when the run succeeded.
func executedCodeOutput(content string) (string, bool) {
	const marker = "exitcode: 0"
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, marker) {
		return "", false
	}
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+1:]), true
	}
	return "", true
}

// modifiedFiles scans the work directory for files touched since the run
// started. Best-effort: an unreadable directory yields an empty list.
func (o *Orchestrator) modifiedFiles(since time.Time) []string {
	if o.workDir == "" {
		return nil
	}
	// Filesystems may store mtimes at whole-second granularity.
	since = since.Truncate(time.Second)

	var files []string
	err := filepath.WalkDir(o.workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(since) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		o.logger.Warn("work dir scan failed", "error", err, "work_dir", o.workDir)
		return nil
	}
	return files
}
