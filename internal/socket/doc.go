// ABOUTME: Package documentation for the inbound socket loop.
// ABOUTME: Explains frame dispatch, turn handling, and the delivery worker.

// Package socket accepts duplex client connections and runs one read loop
// per connection.
//
// Frames are dispatched strictly by their type discriminator. A malformed
// or unrecognized frame is logged and skipped; a single bad message never
// terminates the connection. A user_message turn checks the response cache
// first, then either drives an orchestrated workflow run or advances the
// agent-building clarification flow.
//
// Outbound delivery is decoupled from production: the single DeliverLoop
// worker drains the orchestrator's envelope queue and writes through the
// connection registry, preserving per-connection ordering and dropping
// envelopes whose connection is gone by delivery time.
package socket
