package engine

import "fmt"

// GridWorld is the warehouse floor: a bounded grid with a set of obstacle
// cells. A position is valid when it is in bounds and not an obstacle.
type GridWorld struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	obstacles map[Position]bool
}

// NewGridWorld creates a grid of the given dimensions. Dimensions below the
// minimum are rejected rather than clamped so a bad scenario fails loudly.
func NewGridWorld(width, height int) (*GridWorld, error) {
	if width < MinGridSize || height < MinGridSize {
		return nil, fmt.Errorf("%w: got %dx%d, minimum is %dx%d",
			ErrInvalidDimensions, width, height, MinGridSize, MinGridSize)
	}
	if width > MaxGridSize || height > MaxGridSize {
		return nil, fmt.Errorf("%w: got %dx%d, maximum is %dx%d",
			ErrInvalidDimensions, width, height, MaxGridSize, MaxGridSize)
	}
	return &GridWorld{
		Width:     width,
		Height:    height,
		obstacles: make(map[Position]bool),
	}, nil
}

// InBounds reports whether (x,y) lies inside the grid
func (w *GridWorld) InBounds(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// IsObstacle reports whether (x,y) is an obstacle cell
func (w *GridWorld) IsObstacle(x, y int) bool {
	return w.obstacles[Position{X: x, Y: y}]
}

// IsValidPosition reports whether (x,y) is in bounds and free of obstacles
func (w *GridWorld) IsValidPosition(x, y int) bool {
	return w.InBounds(x, y) && !w.IsObstacle(x, y)
}

// AddObstacle marks a cell as blocked. Out-of-bounds cells are rejected to
// uphold the invariant that every obstacle lies within the grid. Adding an
// existing obstacle is a no-op.
func (w *GridWorld) AddObstacle(x, y int) error {
	if !w.InBounds(x, y) {
		return fmt.Errorf("obstacle (%d,%d) outside %dx%d grid", x, y, w.Width, w.Height)
	}
	w.obstacles[Position{X: x, Y: y}] = true
	return nil
}

// RemoveObstacle clears a blocked cell. Removing a non-obstacle is a no-op.
func (w *GridWorld) RemoveObstacle(x, y int) {
	delete(w.obstacles, Position{X: x, Y: y})
}

// ObstacleCount returns the number of blocked cells
func (w *GridWorld) ObstacleCount() int {
	return len(w.obstacles)
}

// Obstacles returns the blocked cells in the grid's canonical order
// (x ascending, then y ascending).
func (w *GridWorld) Obstacles() []Position {
	out := make([]Position, 0, len(w.obstacles))
	for x := 0; x < w.Width; x++ {
		for y := 0; y < w.Height; y++ {
			if w.obstacles[Position{X: x, Y: y}] {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Locations returns every valid cell in a fixed deterministic order: outer
// iteration over x ascending, inner over y ascending. The encoding layer
// relies on this ordering to produce byte-identical output across runs, so
// it must never change.
func (w *GridWorld) Locations() []Position {
	out := make([]Position, 0, w.Width*w.Height-len(w.obstacles))
	for x := 0; x < w.Width; x++ {
		for y := 0; y < w.Height; y++ {
			if !w.obstacles[Position{X: x, Y: y}] {
				out = append(out, Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Clone returns a deep copy of the grid
func (w *GridWorld) Clone() *GridWorld {
	obstacles := make(map[Position]bool, len(w.obstacles))
	for p := range w.obstacles {
		obstacles[p] = true
	}
	return &GridWorld{Width: w.Width, Height: w.Height, obstacles: obstacles}
}
