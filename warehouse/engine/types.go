package engine

import "fmt"

// PackageState tracks where a package is in its delivery lifecycle
type PackageState string

const (
	Waiting     PackageState = "waiting"
	Transported PackageState = "transported"
	Delivered   PackageState = "delivered"

	// Validation constants
	MinGridSize = 5
	MaxGridSize = 50
	MinCapacity = 1
)

// Position represents x,y coordinates on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Robot is a mobile agent that can carry packages up to its capacity
type Robot struct {
	ID       string     `json:"id"`
	Position Position   `json:"position"`
	Capacity int        `json:"capacity"`
	Carrying []*Package `json:"-"`

	// CarryingIDs mirrors Carrying for serialization; kept in sync by
	// the mutation methods in entities.go.
	CarryingIDs []string `json:"carrying"`
}

// Package is a movable item with a fixed destination
type Package struct {
	ID          string       `json:"id"`
	Position    Position     `json:"position"`
	Destination Position     `json:"destination"`
	Carried     bool         `json:"carried"`
	CarrierID   string       `json:"carrier_id,omitempty"`
	State       PackageState `json:"state"`

	// AssignedRobotID is a planning hint only; the executor never enforces it.
	AssignedRobotID string `json:"assigned_robot_id,omitempty"`
}

// ActionKind identifies the supported plan action types
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionPickup
	ActionDrop
)

// String returns the canonical action name
func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionPickup:
		return "pickup"
	case ActionDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Action is one step of a parsed plan. Move actions use From/To; pickup and
// drop use At. Name preserves the raw action token so unsupported actions can
// be reported by the executor.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Name    string     `json:"name"`
	Robot   string     `json:"robot"`
	Package string     `json:"package,omitempty"`
	From    Position   `json:"from,omitempty"`
	To      Position   `json:"to,omitempty"`
	At      Position   `json:"at,omitempty"`
}

// String renders the action in the plan artifact's parenthesized form
func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return "(" + a.Name + " " + a.Robot + " " + zoneLabel(a.From) + " " + zoneLabel(a.To) + ")"
	case ActionPickup, ActionDrop:
		return "(" + a.Name + " " + a.Robot + " " + a.Package + " " + zoneLabel(a.At) + ")"
	default:
		return "(" + a.Name + ")"
	}
}

// zoneLabel formats a position the way the encoding layer names zones.
// Duplicated here (rather than importing the pddl package) to keep the
// dependency direction codec -> engine.
func zoneLabel(p Position) string {
	return fmt.Sprintf("zone_%d_%d", p.X, p.Y)
}
