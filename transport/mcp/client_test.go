package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"warehouseplanner/warehouse/engine"
	"warehouseplanner/warehouse/service"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	expectedResponse := map[string]interface{}{
		"id":            "test-session",
		"scenario_name": "default",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall("GET", "/api", nil, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["id"] != expectedResponse["id"] {
		t.Errorf("Expected id %v, got %v", expectedResponse["id"], response["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall("GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for HTTP 500 response")
	}

	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_apiCall_ErrorEnvelope(t *testing.T) {
	// The API wraps failures as {"error": "..."}; that message should
	// surface directly instead of a bare status code.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/api/sessions/nope", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 404 response")
	}
	if err.Error() != "session not found" {
		t.Errorf("Expected unwrapped API error message, got: %v", err)
	}
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result with content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestClient_handleCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}

		resp := service.SessionInfo{
			ID:           "ab12",
			ScenarioName: "default",
			State: &service.WorldSnapshot{
				Width: 7, Height: 7, Total: 1,
				Grid: []string{"D......", ".......", ".......", "...#...", "...#...", ".....P.", "......R"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	result, err := client.handleCreateSession(ctx, toolRequest("create_session", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "ab12") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}
	if !strings.Contains(text, "Scenario: default") {
		t.Errorf("Expected scenario name in result, got: %s", text)
	}
	if !strings.Contains(text, "...#...") {
		t.Errorf("Expected grid rendering in result, got: %s", text)
	}
}

func TestClient_handlePlan_NoPlan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/ab12/plan" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		resp := service.PlanResult{
			Success: false,
			Message: "destination of p2 is walled off",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handlePlan(context.Background(), toolRequest("plan", map[string]interface{}{
		"session_id": "ab12",
	}))
	if err != nil {
		t.Fatalf("handlePlan failed: %v", err)
	}

	// A no-plan outcome is text for the caller, not a tool error
	if result.IsError {
		t.Error("Expected plain text result for no-plan outcome")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "No plan available") {
		t.Errorf("Expected no-plan message, got: %s", text)
	}
	if !strings.Contains(text, "walled off") {
		t.Errorf("Expected diagnostic detail in result, got: %s", text)
	}
}

func TestClient_handlePlan_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := service.PlanResult{
			Success:    true,
			Plan:       []string{"(move r2 zone_6_6 zone_5_6)", "(pickup r2 p2 zone_5_5)"},
			PlanLength: 2,
			DurationMs: 150,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handlePlan(context.Background(), toolRequest("plan", map[string]interface{}{
		"session_id": "ab12",
	}))
	if err != nil {
		t.Fatalf("handlePlan failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Plan found: 2 actions") {
		t.Errorf("Expected plan header, got: %s", text)
	}
	if !strings.Contains(text, "1. (move r2 zone_6_6 zone_5_6)") {
		t.Errorf("Expected numbered plan lines, got: %s", text)
	}
}

func TestClient_handleToggleObstacle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		json.NewDecoder(r.Body).Decode(&body)
		if body["x"] != 2 || body["y"] != 3 {
			t.Errorf("Expected coordinates (2,3), got (%d,%d)", body["x"], body["y"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.WorldSnapshot{Width: 7, Height: 7})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleToggleObstacle(context.Background(), toolRequest("toggle_obstacle", map[string]interface{}{
		"session_id": "ab12",
		"x":          float64(2),
		"y":          float64(3),
	}))
	if err != nil {
		t.Fatalf("handleToggleObstacle failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Obstacle toggled at (2,3)") {
		t.Errorf("Expected toggle confirmation, got: %s", text)
	}
}

func TestFormatSnapshot(t *testing.T) {
	state := &service.WorldSnapshot{
		Width:     7,
		Height:    7,
		Obstacles: []engine.Position{{X: 3, Y: 3}, {X: 3, Y: 4}},
		Delivered: 1,
		Total:     2,
		Grid:      []string{"*......", ".......", ".......", "...#...", "...#...", ".......", "......R"},
		Robots: []*engine.Robot{
			{ID: "r2", Position: engine.Position{X: 6, Y: 6}, Capacity: 1, CarryingIDs: []string{"p1"}},
		},
		Packages: []*engine.Package{
			{ID: "p1", Carried: true, CarrierID: "r2", Destination: engine.Position{X: 0, Y: 6}, State: engine.Transported},
			{ID: "p2", Position: engine.Position{X: 0, Y: 0}, Destination: engine.Position{X: 0, Y: 0}, State: engine.Delivered},
		},
	}

	result := formatSnapshot(state)

	expectedFields := []string{
		"Grid: 7x7 | Obstacles: 2 | Delivered: 1/2",
		"...#...",
		"r2 at (6,6) carrying 1/1",
		"p1 carried by r2",
		"p2 at (0,0)",
	}
	for _, field := range expectedFields {
		if !strings.Contains(result, field) {
			t.Errorf("Expected field '%s' in formatted output, got: %s", field, result)
		}
	}
}

func TestFormatSnapshot_Nil(t *testing.T) {
	if got := formatSnapshot(nil); !strings.Contains(got, "No world state") {
		t.Errorf("Expected placeholder for nil snapshot, got: %s", got)
	}
}

func TestFormatExecuteResult(t *testing.T) {
	result := &service.ExecuteResult{
		Success:   true,
		Mode:      service.ModeParallel,
		Message:   "all packages delivered",
		Applied:   12,
		Steps:     7,
		Delivered: 2,
		Records: []service.StepRecord{
			{Idx: 4, Action: "(move r1 zone_2_2 zone_3_2)", Applied: false, Reason: "destination cell occupied"},
		},
		State: &service.WorldSnapshot{Width: 7, Height: 7},
	}

	text := formatExecuteResult(result)

	expectedFields := []string{
		"Execution complete (parallel): all packages delivered",
		"Applied: 12 | Steps: 7 | Delivered: 2",
		"step 4: (move r1 zone_2_2 zone_3_2) (destination cell occupied)",
	}
	for _, field := range expectedFields {
		if !strings.Contains(text, field) {
			t.Errorf("Expected field '%s' in formatted output, got: %s", field, text)
		}
	}
}

func TestFormatExecuteResult_Failed(t *testing.T) {
	result := &service.ExecuteResult{
		Success: false,
		Mode:    service.ModeSequential,
		Message: "aborted at step 3",
		Aborted: true,
		State:   &service.WorldSnapshot{},
	}

	text := formatExecuteResult(result)

	if !strings.Contains(text, "Execution failed (sequential): aborted at step 3") {
		t.Errorf("Expected failure line, got: %s", text)
	}
}

func TestClient_Integration(t *testing.T) {
	client := NewClient("http://localhost:8080")

	if client == nil {
		t.Fatal("Failed to create client")
	}

	if client.mcpServer == nil {
		t.Fatal("MCP server not initialized")
	}

	if client.baseURL == "" {
		t.Error("Base URL not set")
	}

	if client.httpClient == nil {
		t.Error("HTTP client not initialized")
	}
}
