// ABOUTME: Package documentation for the connection registry.
// ABOUTME: Explains lifecycle tracking and best-effort delivery semantics.

// Package registry tracks live client connections and routes outbound
// messages to them.
//
// The registry is transport-agnostic: it works against the Conn interface,
// so the WebSocket layer stays out of routing code. Records are keyed by
// handle identity, not client id, because reconnecting clients may hold
// several connections under the same id at once.
//
// All delivery is best-effort. A connection that fails a write is
// disconnected and the failure is absorbed; one bad connection never blocks
// delivery to the rest.
package registry
