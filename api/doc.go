// Package api provides the HTTP REST surface of the warehouse planner.
//
// The api package implements:
//   - RESTful endpoints for the planning pipeline
//   - Session management endpoints
//   - Scenario listing and creation
//   - Run history queries
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session (body: {scenario_id})
//   - GET /api/sessions - List sessions (sort, order, limit query params)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Planning Pipeline:
//   - GET /api/sessions/{id}/state - Current world snapshot
//   - POST /api/sessions/{id}/extract - Encode the planning problem
//   - POST /api/sessions/{id}/plan - Invoke the external planner
//   - POST /api/sessions/{id}/execute - Execute the current plan
//     (body: {mode: "sequential"|"parallel", plan_file})
//
// World Mutation:
//   - POST /api/sessions/{id}/reset - Rebuild the world
//     (body: {randomize, seed})
//   - POST /api/sessions/{id}/obstacle - Toggle an obstacle (body: {x, y})
//
// History & Scenarios:
//   - GET /api/sessions/{id}/runs - Session run history
//   - GET /api/runs - Run history across sessions
//   - GET /api/scenarios - List stored scenarios
//   - POST /api/scenarios - Store a scenario document
//
// WebSocket:
//   - GET /ws?session={id} - Live state updates and executor status events
//
// All endpoints accept and return JSON. Errors are returned as JSON with
// appropriate HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
//
// Planner and executor failures are not transport errors: plan and execute
// respond 200 with success=false and a diagnostic message, because "no plan
// available" is a domain outcome.
package api
