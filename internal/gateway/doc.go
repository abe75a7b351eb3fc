// ABOUTME: Package documentation for the gateway wiring object.
// ABOUTME: Explains lifecycle scoping of the component stack.

// Package gateway assembles the full component stack behind one
// lifecycle-scoped object: the persistent store, connection registry,
// response cache, conversation tracker, extractor, materializer,
// orchestrator, socket loop, and HTTP surface.
//
// Nothing lives in package-level state. A Gateway is created from
// configuration, runs until its context is canceled, and Shutdown tears
// everything down: the HTTP listener first, then every live client
// connection, then the cache and store.
package gateway
