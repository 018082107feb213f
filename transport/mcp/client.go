package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"warehouseplanner/warehouse/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Planner invocations can run for minutes; leave headroom over
			// the default solver budget.
			Timeout: 3 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Warehouse Planner",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Warehouse Planner - MCP Interface

This is a thin client that proxies all requests to the REST API server.

WORKFLOW:
Robots deliver packages on a grid warehouse. The pipeline is:
1. create_session - build a world from a scenario
2. world_state - inspect the grid, robots, and packages
3. extract_state - encode the world as a planning problem
4. plan - invoke the external planner
5. execute_plan - apply the plan (sequential or parallel)

AVAILABLE TOOLS:
- create_session: Create new planning session
- list_sessions: List all active sessions
- world_state: Get the current world snapshot
- extract_state: Encode the planning problem
- plan: Run the external planner
- execute_plan: Execute the current plan
- reset: Rebuild the world (optionally randomized)
- toggle_obstacle: Add or remove an obstacle cell
- list_scenarios: List stored scenarios
- recent_runs: View run history

NOTE: "no plan available" from plan is an outcome, not an error - the
world is unchanged and you can toggle obstacles or reset and retry.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new planning session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to build the world from (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active planning sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Planning pipeline
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get the current world snapshot: grid, robots, and packages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "extract_state",
		Description: "Encode the session's world as a planning problem document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleExtractState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan",
		Description: "Invoke the external planner on the session's current world",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePlan)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "execute_plan",
		Description: "Execute the session's current plan against the world",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"sequential", "parallel"},
					"description": "Execution mode (default sequential)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleExecutePlan)

	// World mutation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Rebuild the session's world from its scenario",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"randomize": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-roll robot and package placements",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Seed for reproducible randomization (0 = time-based)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_obstacle",
		Description: "Toggle a cell between floor and obstacle. Cells holding a robot or a grounded package cannot be blocked.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleToggleObstacle)

	// Scenarios & history
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List stored warehouse scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "recent_runs",
		Description: "View recent planning and execution runs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Limit to one session (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum runs to return",
				},
			},
		},
	}, c.handleRecentRuns)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	scenarioID, _ := args["scenario_id"].(string)

	body := map[string]string{}
	if scenarioID != "" {
		body["scenario_id"] = scenarioID
	}

	var sess service.SessionInfo
	if err := c.apiCall("POST", "/api/sessions", body, &sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nScenario: %s\n\n%s",
		sess.ID, sess.ScenarioName, formatSnapshot(sess.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		delivered, total := 0, 0
		if s.State != nil {
			delivered, total = s.State.Delivered, s.State.Total
		}
		fmt.Fprintf(&b, "- %s (Scenario: %s, Delivered: %d/%d, Created: %s)\n",
			s.ID, s.ScenarioName, delivered, total, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var state service.WorldSnapshot
	if err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSnapshot(&state)), nil
}

func (c *Client) handleExtractState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.ExtractResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/extract", sessionID), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Problem written to %s:\n\n%s", result.File, result.Problem)), nil
}

func (c *Client) handlePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.PlanResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/plan", sessionID), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "Plan found: %d actions (%dms)\n\n", result.PlanLength, result.DurationMs)
		for i, line := range result.Plan {
			fmt.Fprintf(&b, "%d. %s\n", i+1, line)
		}
	} else {
		fmt.Fprintf(&b, "No plan available: %s\n", result.Message)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleExecutePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	mode, _ := args["mode"].(string)

	body := map[string]interface{}{}
	if mode != "" {
		body["mode"] = mode
	}

	var result service.ExecuteResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/execute", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatExecuteResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	randomize, _ := args["randomize"].(bool)
	seed := 0.0
	if v, ok := args["seed"].(float64); ok {
		seed = v
	}

	body := map[string]interface{}{
		"randomize": randomize,
		"seed":      int64(seed),
	}

	var response struct {
		Message string                 `json:"message"`
		State   *service.WorldSnapshot `json:"state"`
	}
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/reset", sessionID), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleToggleObstacle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	x := int(args["x"].(float64))
	y := int(args["y"].(float64))

	body := map[string]int{"x": x, "y": y}

	var state service.WorldSnapshot
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/obstacle", sessionID), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Obstacle toggled at (%d,%d)\n\n%s", x, y, formatSnapshot(&state))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	if err := c.apiCall("GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, sc := range scenarios {
		fmt.Fprintf(&b, "- %s: %s\n  Grid: %dx%d, Robots: %d, Packages: %d\n",
			sc.ScenarioID, sc.Description, sc.Width, sc.Height, sc.Robots, sc.Packages)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRecentRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	path := "/api/runs"
	if sessionID != "" {
		path = fmt.Sprintf("/api/sessions/%s/runs", sessionID)
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", int(limit))
	}

	var response struct {
		Count int                  `json:"count"`
		Runs  []service.RunSummary `json:"runs"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent Runs (%d):\n\n", response.Count)
	for _, r := range response.Runs {
		fmt.Fprintf(&b, "- %s session=%s scenario=%s outcome=%s plan=%d applied=%d %dms\n",
			r.StartedAt.Format("15:04:05"), r.SessionID, r.Scenario, r.Outcome,
			r.PlanLength, r.Applied, r.DurationMs)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

func formatSnapshot(state *service.WorldSnapshot) string {
	if state == nil {
		return "No world state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Grid: %dx%d | Obstacles: %d | Delivered: %d/%d\n\n",
		state.Width, state.Height, len(state.Obstacles), state.Delivered, state.Total)

	// Grid legend: R robot, P package, D destination, * delivered, # obstacle
	for _, row := range state.Grid {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if len(state.Robots) > 0 {
		b.WriteString("\nRobots:\n")
		for _, r := range state.Robots {
			fmt.Fprintf(&b, "- %s at (%d,%d) carrying %d/%d\n",
				r.ID, r.Position.X, r.Position.Y, len(r.CarryingIDs), r.Capacity)
		}
	}
	if len(state.Packages) > 0 {
		b.WriteString("\nPackages:\n")
		for _, p := range state.Packages {
			where := fmt.Sprintf("at (%d,%d)", p.Position.X, p.Position.Y)
			if p.Carried {
				where = fmt.Sprintf("carried by %s", p.CarrierID)
			}
			fmt.Fprintf(&b, "- %s %s -> (%d,%d) [%s]\n",
				p.ID, where, p.Destination.X, p.Destination.Y, p.State)
		}
	}
	return b.String()
}

func formatExecuteResult(result *service.ExecuteResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "Execution complete (%s): %s\n", result.Mode, result.Message)
	} else {
		fmt.Fprintf(&b, "Execution failed (%s): %s\n", result.Mode, result.Message)
	}
	fmt.Fprintf(&b, "Applied: %d | Steps: %d | Delivered: %d\n", result.Applied, result.Steps, result.Delivered)

	if len(result.Records) > 0 {
		b.WriteString("\nRejected actions:\n")
		for _, rec := range result.Records {
			fmt.Fprintf(&b, "- step %d: %s (%s)\n", rec.Idx, rec.Action, rec.Reason)
		}
	}
	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, ev := range result.Events {
			fmt.Fprintf(&b, "- %s\n", ev.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.State))
	return b.String()
}
