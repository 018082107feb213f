// Package websocket provides WebSocket transport for live warehouse updates.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - World snapshot broadcasting after plan execution and world mutation
//   - Executor status event streaming during plan execution
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. The session map is owned by the hub's Run loop and
// all access goes through channels, so BroadcastToSession and BroadcastEvent
// are safe to call from any goroutine.
//
// Message Protocol:
//
// Messages are JSON-encoded. Clients are listen-only; the server pushes:
//   - {session_id, event: "state_update", state: <world snapshot>}
//   - {session_id, event: "status", data: <executor status line>}
//
// Session Integration:
//
// Clients specify their session ID via query parameter (?session=abc1) when
// establishing the connection. Updates are broadcast only to clients
// connected to the same session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, sessionID)
//	})
package websocket
