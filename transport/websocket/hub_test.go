package websocket

import (
	"encoding/json"
	"testing"

	"warehouseplanner/warehouse/service"
)

func newTestClient(sessionID string, buffer int) *Client {
	return &Client{
		send:      make(chan []byte, buffer),
		sessionID: sessionID,
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Expected sessions map to be initialized")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Expected hub channels to be initialized")
	}
}

func TestRegisterAndUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("ab12", 1)
	client.hub = hub

	hub.registerClient(client)

	if len(hub.sessions["ab12"]) != 1 {
		t.Fatalf("Expected 1 client in session, got %d", len(hub.sessions["ab12"]))
	}

	hub.unregisterClient(client)

	if _, ok := hub.sessions["ab12"]; ok {
		t.Error("Expected empty session to be removed")
	}
	// The hub closes the send channel on unregister
	if _, open := <-client.send; open {
		t.Error("Expected send channel to be closed")
	}
}

func TestUnregisterUnknownClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("ab12", 1)

	// Must not panic or close the channel of a client that never registered
	hub.unregisterClient(client)

	select {
	case <-client.send:
		t.Error("Send channel should remain open and empty")
	default:
	}
}

func TestBroadcastMessage(t *testing.T) {
	hub := NewHub()
	client := newTestClient("ab12", 4)
	other := newTestClient("cd34", 4)
	hub.registerClient(client)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{
		SessionID: "ab12",
		Event:     "state_update",
		State:     &service.WorldSnapshot{Width: 7, Height: 7},
	})

	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal broadcast: %v", err)
		}
		if msg.SessionID != "ab12" || msg.Event != "state_update" {
			t.Errorf("Unexpected message: %+v", msg)
		}
		if msg.State == nil || msg.State.Width != 7 {
			t.Errorf("Expected snapshot in message, got %+v", msg.State)
		}
	default:
		t.Fatal("Expected a message on the session's client")
	}

	select {
	case <-other.send:
		t.Error("Client in a different session should not receive the broadcast")
	default:
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := newTestClient("ab12", 0) // zero-capacity send channel is always full
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "ab12", Event: "state_update"})

	if _, ok := hub.sessions["ab12"]; ok {
		t.Error("Expected slow client to be unregistered")
	}
}

func TestBroadcastToSession(t *testing.T) {
	hub := NewHub()

	hub.BroadcastToSession("ab12", &service.WorldSnapshot{Width: 9})

	msg := <-hub.broadcast
	if msg.SessionID != "ab12" {
		t.Errorf("Expected session ab12, got %s", msg.SessionID)
	}
	if msg.Event != "state_update" {
		t.Errorf("Expected state_update event, got %s", msg.Event)
	}
	if msg.State == nil || msg.State.Width != 9 {
		t.Errorf("Expected snapshot with width 9, got %+v", msg.State)
	}
}

func TestBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("ab12", "action_applied", map[string]string{"action": "move r1 loc-0-0 loc-1-0"})

	msg := <-hub.broadcast
	if msg.Event != "action_applied" {
		t.Errorf("Expected action_applied event, got %s", msg.Event)
	}
	if msg.State != nil {
		t.Error("Event broadcasts carry data, not state")
	}
	data, ok := msg.Data.(map[string]string)
	if !ok || data["action"] == "" {
		t.Errorf("Unexpected event data: %+v", msg.Data)
	}
}

func TestRunLoopDeliversBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient("ab12", 4)
	client.hub = hub
	hub.register <- client

	hub.BroadcastToSession("ab12", &service.WorldSnapshot{Width: 7})

	data := <-client.send
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal broadcast: %v", err)
	}
	if msg.SessionID != "ab12" {
		t.Errorf("Expected session ab12, got %s", msg.SessionID)
	}
}
