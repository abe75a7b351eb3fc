// Package store provides persistence for forge-gateway entities.
//
// # Overview
//
// The store holds the building blocks a materialized agent is assembled from:
// agents, models, skills, workflows, knowledge hubs, sessions, and messages,
// plus the link tables that wire them together (agent↔model, agent↔skill,
// workflow↔agent with a sender/receiver role).
//
// # Usage
//
//	s, err := store.NewSQLiteStore("forge.db")
//	if err != nil { ... }
//	defer s.Close()
//
//	agent, err := s.GetAgentByName(ctx, "default_assistant")
//
// # Materialization
//
// CommitMaterialization writes a knowledge hub, an agent, a workflow, and all
// their links inside a single transaction. A failure at any step rolls the
// whole set back, so a half-created agent never becomes visible to listings.
//
// # Implementation
//
// SQLiteStore uses modernc.org/sqlite (cgo-free) with WAL mode and foreign
// keys enabled. The schema is created automatically on open.
package store
