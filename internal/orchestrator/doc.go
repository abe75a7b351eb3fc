// ABOUTME: Package documentation for the message orchestrator.
// ABOUTME: Explains hop interception, termination, and summary strategies.

// Package orchestrator runs one orchestrated exchange between two
// conversational participants and intercepts every message that passes
// between them.
//
// The exchange engine is an external collaborator behind the Engine
// interface; the orchestrator only observes hops, tags each with routing
// metadata, and pushes it onto a buffered outbound queue. A separate
// delivery worker drains the queue and writes through the connection
// registry, so slow clients never stall the exchange itself.
//
// Three summary strategies produce the user-facing output after the
// exchange ends: last (final message plus executed-code output), llm
// (engine-produced summary, preceded by a "summarizing" status envelope),
// and none. The strategy is a property of the workflow being run.
package orchestrator
