// Package service provides the orchestration layer of the warehouse planner.
//
// The service package ties the world model, the problem encoder, the external
// planner, and run history together behind a single interface:
//   - Session lifecycle over a SessionManager
//   - State extraction into planning-problem files
//   - Planner invocation with a BFS reachability pre-gate
//   - Plan execution in sequential or parallel mode
//   - World mutation (reset, obstacle toggling) with occupancy checks
//
// Architecture:
//
// WarehouseService is the interface consumed by every transport (REST,
// websocket, MCP, CLI). Its collaborators are injected as interfaces, so the
// planner can be swapped for a fake in tests and run recording can be
// disabled by passing nil.
//
// All operations take a context and are safe for concurrent use; mutating
// operations serialize on a service-wide lock.
package service
