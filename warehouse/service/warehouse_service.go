package service

import (
	"context"
	"time"

	"warehouseplanner/warehouse/engine"
)

// WarehouseService defines all planning and execution operations
type WarehouseService interface {
	// Session Management
	CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Planning Pipeline
	WorldState(ctx context.Context, sessionID string) (*WorldSnapshot, error)
	ExtractState(ctx context.Context, sessionID string) (*ExtractResult, error)
	Plan(ctx context.Context, sessionID string) (*PlanResult, error)
	ExecutePlan(ctx context.Context, sessionID string, req ExecuteRequest) (*ExecuteResult, error)

	// World Mutation
	Reset(ctx context.Context, sessionID string, opts ResetOptions) (*WorldSnapshot, error)
	ToggleObstacle(ctx context.Context, sessionID string, x, y int) (*WorldSnapshot, error)

	// Scenarios & History
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	SaveScenario(ctx context.Context, name string, raw []byte) error
	RecentRuns(ctx context.Context, sessionID string, limit int) ([]*RunSummary, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, scenarioName string, spec engine.ScenarioSpec) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, scenarioName string, spec engine.ScenarioSpec) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ScenarioManager hands out scenario specifications by name
type ScenarioManager interface {
	LoadSpec(name string) (engine.ScenarioSpec, error)
	DefaultSpec() (string, engine.ScenarioSpec)
	ListScenarios() ([]*ScenarioInfo, error)
	SaveRaw(name string, raw []byte) error
}

// PlanSolver is the external planner contract. Solve either leaves a plan
// artifact at outputFile or returns an error; it never touches world state.
type PlanSolver interface {
	Solve(ctx context.Context, domainFile, problemFile, outputFile string) error
}

// RunRecorder persists run history. Recording is best-effort: the service
// logs failures and carries on.
type RunRecorder interface {
	Record(ctx context.Context, rec *RunRecord) error
	RecentRuns(ctx context.Context, sessionID string, limit int) ([]*RunSummary, error)
}

// Session represents an active planning session
type Session struct {
	ID             string
	ScenarioName   string
	Spec           engine.ScenarioSpec
	Scenario       *engine.Scenario
	ProblemFile    string
	PlanFile       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
