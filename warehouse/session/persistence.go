package session

import (
	"time"

	"warehouseplanner/warehouse/engine"
	"warehouseplanner/warehouse/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(sess *service.Session) error

	// Load retrieves a session from storage by id
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session ids
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the JSON structure for persisted sessions. The
// scenario spec is stored alongside the live world because obstacles and
// entity positions drift from the spec as plans execute.
type PersistedSessionData struct {
	ID             string              `json:"id"`
	ScenarioName   string              `json:"scenario_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Spec           engine.ScenarioSpec `json:"spec"`
	Obstacles      []engine.Position   `json:"obstacles"`
	Robots         []*engine.Robot     `json:"robots"`
	Packages       []*engine.Package   `json:"packages"`
	ProblemFile    string              `json:"problem_file,omitempty"`
	PlanFile       string              `json:"plan_file,omitempty"`
}
