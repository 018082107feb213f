package engine

// directions is the 4-connected neighborhood used for all movement
var directions = [4]Position{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
}

// Reachable reports whether a 4-connected path of valid cells exists between
// from and to. It returns false immediately when either endpoint is invalid.
func Reachable(w *GridWorld, from, to Position) bool {
	if !w.IsValidPosition(from.X, from.Y) || !w.IsValidPosition(to.X, to.Y) {
		return false
	}
	if from == to {
		return true
	}

	visited := map[Position]bool{from: true}
	queue := []Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			next := Position{X: cur.X + d.X, Y: cur.Y + d.Y}
			if visited[next] || !w.IsValidPosition(next.X, next.Y) {
				continue
			}
			if next == to {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// NearestFree finds the closest valid cell to the given position by
// breadth-first search, expanding through blocked cells so an entity stranded
// inside an obstacle cluster can still be relocated. The ok result is false
// only when the grid has no valid cell at all.
func NearestFree(w *GridWorld, from Position) (Position, bool) {
	if w.IsValidPosition(from.X, from.Y) {
		return from, true
	}

	start := clampToBounds(w, from)
	if w.IsValidPosition(start.X, start.Y) {
		return start, true
	}

	visited := map[Position]bool{start: true}
	queue := []Position{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			next := Position{X: cur.X + d.X, Y: cur.Y + d.Y}
			if visited[next] || !w.InBounds(next.X, next.Y) {
				continue
			}
			if !w.IsObstacle(next.X, next.Y) {
				return next, true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return Position{}, false
}

func clampToBounds(w *GridWorld, p Position) Position {
	if p.X < 0 {
		p.X = 0
	}
	if p.X >= w.Width {
		p.X = w.Width - 1
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y >= w.Height {
		p.Y = w.Height - 1
	}
	return p
}
