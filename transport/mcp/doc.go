// Package mcp provides the Model Context Protocol surface of the warehouse
// planner.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for the planning pipeline
//   - A thin client proxying every tool call to the REST API
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_session: Create a planning session from a scenario
//   - list_sessions: List all active sessions
//   - world_state: Get the current world snapshot with grid rendering
//   - extract_state: Encode the world as a planning problem
//   - plan: Invoke the external planner
//   - execute_plan: Execute the current plan (sequential or parallel)
//   - reset: Rebuild the world, optionally randomized
//   - toggle_obstacle: Toggle a cell between floor and obstacle
//   - list_scenarios: List stored scenarios
//   - recent_runs: View run history
//
// Architecture:
//
// The client holds no state of its own. Every tool call becomes an HTTP
// request against the REST API, so MCP agents and browser clients always
// observe the same sessions. Planner and executor failures surface as tool
// text ("No plan available: ..."), not as tool errors, because those are
// domain outcomes.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
