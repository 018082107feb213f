package service

import (
	"time"

	"warehouseplanner/warehouse/engine"
)

// SessionInfo provides information about a planning session
type SessionInfo struct {
	ID             string         `json:"id"`
	ScenarioName   string         `json:"scenario_name"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	State          *WorldSnapshot `json:"state"`
}

// WorldSnapshot is a read-only view of a session's world
type WorldSnapshot struct {
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Obstacles []engine.Position `json:"obstacles"`
	Robots    []*engine.Robot   `json:"robots"`
	Packages  []*engine.Package `json:"packages"`
	Delivered int               `json:"delivered"`
	Total     int               `json:"total_packages"`
	Grid      []string          `json:"grid"`
}

// ExtractResult carries the encoded planning problem
type ExtractResult struct {
	Problem string `json:"problem"`
	File    string `json:"file"`
}

// PlanResult contains the outcome of a planner invocation
type PlanResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Plan        []string `json:"plan,omitempty"`
	PlanLength  int      `json:"plan_length"`
	ProblemFile string   `json:"problem_file,omitempty"`
	PlanFile    string   `json:"plan_file,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	RunID       string   `json:"run_id,omitempty"`
}

// ExecuteRequest selects how a plan is executed
type ExecuteRequest struct {
	Mode     string `json:"mode"` // "sequential" or "parallel"
	PlanFile string `json:"plan_file,omitempty"`
}

// Execution modes
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// StepRecord is a compact per-action trace entry
type StepRecord struct {
	Idx     int    `json:"idx"`
	Action  string `json:"action"`
	Robot   string `json:"robot,omitempty"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// ExecuteResult contains the outcome of a plan execution
type ExecuteResult struct {
	Success    bool           `json:"success"`
	Mode       string         `json:"mode"`
	Message    string         `json:"message"`
	Applied    int            `json:"applied"`
	Steps      int            `json:"steps"`
	Aborted    bool           `json:"aborted"`
	Cancelled  bool           `json:"cancelled"`
	Delivered  int            `json:"delivered"`
	Records    []StepRecord   `json:"records,omitempty"`
	Events     []ExecEvent    `json:"events,omitempty"`
	State      *WorldSnapshot `json:"state"`
	DurationMs int64          `json:"duration_ms"`
	RunID      string         `json:"run_id,omitempty"`
}

// ExecEvent represents an event emitted during execution
type ExecEvent struct {
	Type      string    `json:"type"` // "status", "applied", "rejected", "aborted", "done"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ResetOptions controls how a session is rebuilt
type ResetOptions struct {
	Randomize bool  `json:"randomize"`
	Seed      int64 `json:"seed,omitempty"`
}

// ScenarioInfo provides information about a stored scenario
type ScenarioInfo struct {
	Filename    string `json:"filename"`
	ScenarioID  string `json:"scenario_id"` // The identifier to use for session creation
	Name        string `json:"name"`        // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Robots      int    `json:"robots"`
	Packages    int    `json:"packages"`
}

// Run outcomes
const (
	OutcomePlanned  = "planned"
	OutcomeNoPlan   = "no_plan"
	OutcomeTimeout  = "timeout"
	OutcomeExecuted = "executed"
	OutcomeAborted  = "aborted"
)

// RunRecord is a full run history entry including artifacts
type RunRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Scenario   string    `json:"scenario"`
	Outcome    string    `json:"outcome"`
	PlanLength int       `json:"plan_length"`
	Applied    int       `json:"applied"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Problem    []byte    `json:"-"`
	Plan       []byte    `json:"-"`
}

// RunSummary is a run history entry without artifacts
type RunSummary struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Scenario   string    `json:"scenario"`
	Outcome    string    `json:"outcome"`
	PlanLength int       `json:"plan_length"`
	Applied    int       `json:"applied"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
