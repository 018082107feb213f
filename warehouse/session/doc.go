// Package session provides session management for the warehouse planner.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management with cleanup and expiration
//   - Optional file-based persistence
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns a live scenario (world, robots, packages) built from a
// scenario spec, plus metadata like creation and last access time.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference, generated from
// cryptographic randomness. Lookups are case-insensitive.
//
// Persistence:
//
// FilePersistence stores sessions as JSON under a sessions directory. The
// saved document carries both the originating scenario spec and the current
// world state, so toggled obstacles and executed plans survive a restart.
//
// Usage:
//
//	manager := session.NewManager()
//
//	// Create a new session
//	sess, err := manager.Create("", "default", spec)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve existing session
//	sess, err = manager.Get(sessionID)
package session
