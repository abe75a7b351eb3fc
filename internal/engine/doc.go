// ABOUTME: Package documentation for the exchange engine.
// ABOUTME: Notes that the engine is replaceable behind the orchestrator interface.

// Package engine provides the production implementation of the
// orchestrator's Engine interface, backed by Google's Gemini API.
//
// The orchestrator treats the engine as an external collaborator: anything
// that can drive hops through the observer callback and summarize a
// transcript can stand in for it, which is how tests substitute scripted
// engines.
package engine
