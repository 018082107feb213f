package engine

import (
	"fmt"
	"math/rand"
)

// RobotPlacement positions one robot in a scenario
type RobotPlacement struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Capacity int      `json:"capacity"`
}

// PackagePlacement positions one package and its destination in a scenario
type PackagePlacement struct {
	ID            string   `json:"id"`
	Position      Position `json:"position"`
	Destination   Position `json:"destination"`
	AssignedRobot string   `json:"assigned_robot,omitempty"`
}

// ScenarioSpec is a full description of a warehouse setup
type ScenarioSpec struct {
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Obstacles []Position         `json:"obstacles"`
	Robots    []RobotPlacement   `json:"robots"`
	Packages  []PackagePlacement `json:"packages"`
}

// Scenario is a live world built from a ScenarioSpec. Robots and Packages
// preserve the spec's declaration order, which the encoding layer relies on
// for deterministic output.
type Scenario struct {
	World    *GridWorld
	Robots   []*Robot
	Packages []*Package
}

// DefaultSpec returns the canonical 7x7 demo scenario: two obstacles, one
// robot of capacity 1, one package bound for the far corner.
func DefaultSpec() ScenarioSpec {
	return ScenarioSpec{
		Width:  7,
		Height: 7,
		Obstacles: []Position{
			{X: 3, Y: 3},
			{X: 3, Y: 4},
		},
		Robots: []RobotPlacement{
			{ID: "R2", Position: Position{X: 6, Y: 6}, Capacity: 1},
		},
		Packages: []PackagePlacement{
			{ID: "p2", Position: Position{X: 5, Y: 5}, Destination: Position{X: 0, Y: 0}},
		},
	}
}

// NewScenario builds a live world from the spec. Entities declared on an
// obstacle cell are relocated to the nearest valid cell; entity ids must be
// unique and capacities at least MinCapacity.
func NewScenario(spec ScenarioSpec) (*Scenario, error) {
	world, err := NewGridWorld(spec.Width, spec.Height)
	if err != nil {
		return nil, err
	}
	for _, o := range spec.Obstacles {
		if err := world.AddObstacle(o.X, o.Y); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	robots := make([]*Robot, 0, len(spec.Robots))
	for _, rp := range spec.Robots {
		if rp.ID == "" {
			return nil, fmt.Errorf("robot with empty id")
		}
		if seen[rp.ID] {
			return nil, fmt.Errorf("%w: robot %q", ErrDuplicateID, rp.ID)
		}
		seen[rp.ID] = true
		if rp.Capacity < MinCapacity {
			return nil, fmt.Errorf("robot %q: capacity must be at least %d, got %d",
				rp.ID, MinCapacity, rp.Capacity)
		}
		pos, err := placeEntity(world, rp.ID, rp.Position)
		if err != nil {
			return nil, err
		}
		robots = append(robots, &Robot{
			ID:          rp.ID,
			Position:    pos,
			Capacity:    rp.Capacity,
			CarryingIDs: []string{},
		})
	}

	packages := make([]*Package, 0, len(spec.Packages))
	for _, pp := range spec.Packages {
		if pp.ID == "" {
			return nil, fmt.Errorf("package with empty id")
		}
		if seen[pp.ID] {
			return nil, fmt.Errorf("%w: package %q", ErrDuplicateID, pp.ID)
		}
		seen[pp.ID] = true
		pos, err := placeEntity(world, pp.ID, pp.Position)
		if err != nil {
			return nil, err
		}
		dest, err := placeEntity(world, pp.ID+" (destination)", pp.Destination)
		if err != nil {
			return nil, err
		}
		packages = append(packages, &Package{
			ID:              pp.ID,
			Position:        pos,
			Destination:     dest,
			State:           Waiting,
			AssignedRobotID: pp.AssignedRobot,
		})
	}

	return &Scenario{World: world, Robots: robots, Packages: packages}, nil
}

// placeEntity resolves a declared position against the grid, relocating to
// the nearest valid cell when the declaration lands on an obstacle or out of
// bounds.
func placeEntity(w *GridWorld, id string, pos Position) (Position, error) {
	fixed, ok := NearestFree(w, pos)
	if !ok {
		return Position{}, fmt.Errorf("%w: %s at (%d,%d)", ErrUnplaceableEntity, id, pos.X, pos.Y)
	}
	return fixed, nil
}

// RandomScenario keeps the spec's grid and obstacles but re-rolls every robot
// position, package position, and package destination onto distinct free
// cells. The random source is threaded in explicitly so callers control
// reproducibility.
func RandomScenario(spec ScenarioSpec, rng *rand.Rand) (*Scenario, error) {
	world, err := NewGridWorld(spec.Width, spec.Height)
	if err != nil {
		return nil, err
	}
	for _, o := range spec.Obstacles {
		if err := world.AddObstacle(o.X, o.Y); err != nil {
			return nil, err
		}
	}

	free := world.Locations()
	needed := len(spec.Robots) + 2*len(spec.Packages)
	if len(free) < needed {
		return nil, fmt.Errorf("%w: need %d distinct free cells, have %d",
			ErrUnplaceableEntity, needed, len(free))
	}
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	next := 0
	take := func() Position {
		p := free[next]
		next++
		return p
	}

	randomized := spec
	randomized.Robots = append([]RobotPlacement(nil), spec.Robots...)
	randomized.Packages = append([]PackagePlacement(nil), spec.Packages...)
	for i := range randomized.Robots {
		randomized.Robots[i].Position = take()
	}
	for i := range randomized.Packages {
		randomized.Packages[i].Position = take()
		randomized.Packages[i].Destination = take()
	}
	return NewScenario(randomized)
}

// RobotByID finds a robot in the scenario, nil when absent
func (s *Scenario) RobotByID(id string) *Robot {
	for _, r := range s.Robots {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// PackageByID finds a package in the scenario, nil when absent
func (s *Scenario) PackageByID(id string) *Package {
	for _, p := range s.Packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// DeliveredCount returns how many packages currently sit on their destination
// without being carried.
func (s *Scenario) DeliveredCount() int {
	n := 0
	for _, p := range s.Packages {
		if !p.Carried && p.Position == p.Destination {
			n++
		}
	}
	return n
}
