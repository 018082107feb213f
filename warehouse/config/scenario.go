package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"warehouseplanner/warehouse/engine"
)

// Layout legend
const (
	FloorCell    = '.'
	ObstacleCell = '#'
)

// scenarioSchema is checked against the raw document before decoding, so
// type mismatches surface as schema violations rather than decode errors.
const scenarioSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "width", "height", "robots", "packages"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "width": {"type": "integer", "minimum": 5, "maximum": 50},
    "height": {"type": "integer", "minimum": 5, "maximum": 50},
    "layout": {"type": "array", "items": {"type": "string"}},
    "robots": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "x", "y", "capacity"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "x": {"type": "integer", "minimum": 0},
          "y": {"type": "integer", "minimum": 0},
          "capacity": {"type": "integer", "minimum": 1}
        }
      }
    },
    "packages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "x", "y", "dest_x", "dest_y"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "x": {"type": "integer", "minimum": 0},
          "y": {"type": "integer", "minimum": 0},
          "dest_x": {"type": "integer", "minimum": 0},
          "dest_y": {"type": "integer", "minimum": 0},
          "assigned_robot": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("scenario.schema.json", scenarioSchema)

// RobotConfig declares one robot in a scenario document
type RobotConfig struct {
	ID       string `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Capacity int    `json:"capacity"`
}

// PackageConfig declares one package and its destination
type PackageConfig struct {
	ID            string `json:"id"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	DestX         int    `json:"dest_x"`
	DestY         int    `json:"dest_y"`
	AssignedRobot string `json:"assigned_robot,omitempty"`
}

// ScenarioConfig is the on-disk scenario document. The layout encodes
// obstacles as rows of cells, row index = y, column index = x.
type ScenarioConfig struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Layout      []string        `json:"layout,omitempty"`
	Robots      []RobotConfig   `json:"robots"`
	Packages    []PackageConfig `json:"packages"`
}

// ParseScenario validates raw JSON against the schema and decodes it
func ParseScenario(data []byte) (*ScenarioConfig, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenario is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	var cfg ScenarioConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules the schema cannot express: layout
// consistency, in-bounds placements, placements off obstacle cells, and
// unique entity ids.
func (c *ScenarioConfig) Validate() error {
	if c.Width < engine.MinGridSize || c.Height < engine.MinGridSize {
		return fmt.Errorf("%w: grid must be at least %dx%d",
			ErrInvalidScenario, engine.MinGridSize, engine.MinGridSize)
	}
	if c.Width > engine.MaxGridSize || c.Height > engine.MaxGridSize {
		return fmt.Errorf("%w: grid must be at most %dx%d",
			ErrInvalidScenario, engine.MaxGridSize, engine.MaxGridSize)
	}

	if len(c.Layout) > 0 {
		if len(c.Layout) != c.Height {
			return fmt.Errorf("%w: layout has %d rows, height is %d",
				ErrInvalidScenario, len(c.Layout), c.Height)
		}
		for y, row := range c.Layout {
			if len(row) != c.Width {
				return fmt.Errorf("%w: layout row %d has %d cells, width is %d",
					ErrInvalidScenario, y, len(row), c.Width)
			}
			for x, ch := range row {
				if ch != FloorCell && ch != ObstacleCell {
					return fmt.Errorf("%w: layout row %d col %d: unknown cell %q",
						ErrInvalidScenario, y, x, string(ch))
				}
			}
		}
	}

	seen := make(map[string]bool)
	for _, r := range c.Robots {
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidScenario, r.ID)
		}
		seen[r.ID] = true
		if err := c.checkCell("robot "+r.ID, r.X, r.Y); err != nil {
			return err
		}
	}
	for _, p := range c.Packages {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidScenario, p.ID)
		}
		seen[p.ID] = true
		if err := c.checkCell("package "+p.ID, p.X, p.Y); err != nil {
			return err
		}
		if err := c.checkCell("package "+p.ID+" destination", p.DestX, p.DestY); err != nil {
			return err
		}
		if p.AssignedRobot != "" && !robotDeclared(c.Robots, p.AssignedRobot) {
			return fmt.Errorf("%w: package %q assigned to unknown robot %q",
				ErrInvalidScenario, p.ID, p.AssignedRobot)
		}
	}
	return nil
}

func (c *ScenarioConfig) checkCell(what string, x, y int) error {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return fmt.Errorf("%w: %s at (%d,%d) is out of bounds", ErrInvalidScenario, what, x, y)
	}
	if len(c.Layout) > 0 && c.Layout[y][x] == ObstacleCell {
		return fmt.Errorf("%w: %s at (%d,%d) sits on an obstacle", ErrInvalidScenario, what, x, y)
	}
	return nil
}

func robotDeclared(robots []RobotConfig, id string) bool {
	for _, r := range robots {
		if strings.EqualFold(r.ID, id) {
			return true
		}
	}
	return false
}

// Spec converts the document into the engine's scenario description
func (c *ScenarioConfig) Spec() engine.ScenarioSpec {
	spec := engine.ScenarioSpec{Width: c.Width, Height: c.Height}
	for y, row := range c.Layout {
		for x := 0; x < len(row); x++ {
			if row[x] == ObstacleCell {
				spec.Obstacles = append(spec.Obstacles, engine.Position{X: x, Y: y})
			}
		}
	}
	for _, r := range c.Robots {
		spec.Robots = append(spec.Robots, engine.RobotPlacement{
			ID:       r.ID,
			Position: engine.Position{X: r.X, Y: r.Y},
			Capacity: r.Capacity,
		})
	}
	for _, p := range c.Packages {
		spec.Packages = append(spec.Packages, engine.PackagePlacement{
			ID:            p.ID,
			Position:      engine.Position{X: p.X, Y: p.Y},
			Destination:   engine.Position{X: p.DestX, Y: p.DestY},
			AssignedRobot: p.AssignedRobot,
		})
	}
	return spec
}

// DefaultScenario returns the built-in 7x7 demo document
func DefaultScenario() *ScenarioConfig {
	return &ScenarioConfig{
		Name:        "default",
		Description: "7x7 warehouse with a two-cell wall",
		Width:       7,
		Height:      7,
		Layout: []string{
			".......",
			".......",
			".......",
			"...#...",
			"...#...",
			".......",
			".......",
		},
		Robots: []RobotConfig{
			{ID: "R2", X: 6, Y: 6, Capacity: 1},
		},
		Packages: []PackageConfig{
			{ID: "p2", X: 5, Y: 5, DestX: 0, DestY: 0},
		},
	}
}
