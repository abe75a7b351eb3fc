// ABOUTME: Package documentation for agent materialization.
// ABOUTME: Explains atomic commit semantics and hub classification.

// Package materialize turns a complete set of collected conversation
// details into persisted records: a knowledge hub, a retriever agent, and
// a two-agent workflow wired between the new agent and the pre-provisioned
// default assistant.
//
// All records commit in one store transaction, so a failure partway never
// leaves an agent without its workflow or a hub without its agent.
package materialize
