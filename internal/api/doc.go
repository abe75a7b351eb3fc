// ABOUTME: Package documentation for the HTTP API surface.
// ABOUTME: Notes the uniform response envelope contract.

// Package api serves the CRUD surface for agents, models, skills,
// workflows, knowledge hubs, and sessions.
//
// Every operation answers with the same envelope: a boolean status, a
// human-readable message, and optional data. Failures are reported through
// the envelope rather than bare transport errors, so clients handle one
// shape everywhere.
package api
