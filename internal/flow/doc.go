// ABOUTME: Package documentation for the conversation flow tracker.
// ABOUTME: Explains the collection state machine and merge semantics.

// Package flow implements the per-session state machine that drives the
// agent-building conversation.
//
// Each session collects up to three details before an agent can be built: a
// name, a knowledge hub, and a model. The name and hub are required; the
// model falls back to a default. The tracker merges details as they arrive,
// in any order and across any number of messages, and always asks for the
// highest-priority missing field next. A detail named again in a later
// message replaces the earlier value, so the user can correct a detail the
// extractor mis-captured; details a message does not mention are untouched.
package flow
