// Command analyze prints quick, human-readable heuristics about scenario
// files in the project's scenarios directory. It summarizes dimensions, robot
// and package counts, free floor area, and highlights undeliverable packages
// based on grid reachability and Manhattan-distance lower bounds. When a run
// history database is present it also summarizes recent run outcomes.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"warehouseplanner/runstore"
	"warehouseplanner/warehouse/config"
	"warehouseplanner/warehouse/engine"
)

func main() {
	dir := "scenarios"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	dbPath := "runs.db"
	if len(os.Args) > 2 {
		dbPath = os.Args[2]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeScenario(file)
	}

	summarizeRuns(dbPath)
}

// summarizeRuns prints the outcomes of the most recent planning runs. The
// database is only opened if it already exists so a plain scenario analysis
// does not create one.
func summarizeRuns(dbPath string) {
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	store, err := runstore.Open(dbPath)
	if err != nil {
		fmt.Printf("\nError opening run history: %v\n", err)
		return
	}
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), "", 10)
	if err != nil {
		fmt.Printf("\nError reading run history: %v\n", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	fmt.Printf("\n=== Recent runs (%s) ===\n", dbPath)
	byOutcome := make(map[string]int)
	for _, run := range runs {
		byOutcome[run.Outcome]++
		fmt.Printf("%s  session=%s scenario=%s outcome=%s plan=%d applied=%d %dms\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.SessionID, run.Scenario, run.Outcome, run.PlanLength, run.Applied, run.DurationMs)
	}

	outcomes := make([]string, 0, len(byOutcome))
	for outcome := range byOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Printf("  %s: %d\n", outcome, byOutcome[outcome])
	}
}

func analyzeScenario(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}

	scenario, err := config.ParseScenario(data)
	if err != nil {
		fmt.Printf("Error parsing scenario: %v\n", err)
		return
	}

	spec := scenario.Spec()
	world, err := engine.NewGridWorld(spec.Width, spec.Height)
	if err != nil {
		fmt.Printf("Error building world: %v\n", err)
		return
	}
	for _, obs := range spec.Obstacles {
		if err := world.AddObstacle(obs.X, obs.Y); err != nil {
			fmt.Printf("Error placing obstacle: %v\n", err)
			return
		}
	}

	freeCells := spec.Width*spec.Height - len(spec.Obstacles)
	fmt.Printf("Name: %s\n", scenario.Name)
	fmt.Printf("Grid Size: %d x %d\n", spec.Width, spec.Height)
	fmt.Printf("Obstacles: %d (%d free cells)\n", len(spec.Obstacles), freeCells)
	fmt.Printf("Robots: %d, Packages: %d\n", len(spec.Robots), len(spec.Packages))

	if len(spec.Robots) > 0 {
		ratio := float64(len(spec.Packages)) / float64(len(spec.Robots))
		fmt.Printf("Packages per robot: %.1f\n", ratio)
	}

	// A move action covers one cell, so the Manhattan distance from the
	// nearest robot to a package plus the package's distance to its
	// destination is a lower bound on the plan length for that delivery.
	totalLowerBound := 0
	var undeliverable []engine.PackagePlacement

	for _, pkg := range spec.Packages {
		pickupDist := -1
		for _, robot := range spec.Robots {
			d := manhattan(robot.Position, pkg.Position)
			if pickupDist < 0 || d < pickupDist {
				pickupDist = d
			}
		}
		deliverDist := manhattan(pkg.Position, pkg.Destination)
		if pickupDist >= 0 {
			// +2 for the pickup and drop actions themselves
			totalLowerBound += pickupDist + deliverDist + 2
		}

		reachable := false
		for _, robot := range spec.Robots {
			if engine.Reachable(world, robot.Position, pkg.Position) {
				reachable = true
				break
			}
		}
		if !reachable || !engine.Reachable(world, pkg.Position, pkg.Destination) {
			undeliverable = append(undeliverable, pkg)
		}
	}

	fmt.Printf("Plan length lower bound: %d actions\n", totalLowerBound)

	if len(undeliverable) > 0 {
		fmt.Printf("WARNING: %d packages cannot be delivered on this layout!\n", len(undeliverable))
		for i, pkg := range undeliverable {
			if i < 5 {
				fmt.Printf("   Undeliverable: %s at (%d, %d) -> (%d, %d)\n",
					pkg.ID, pkg.Position.X, pkg.Position.Y, pkg.Destination.X, pkg.Destination.Y)
			}
		}
		if len(undeliverable) > 5 {
			fmt.Printf("   ... and %d more\n", len(undeliverable)-5)
		}
	} else {
		fmt.Printf("All packages are deliverable\n")
	}
}

func manhattan(a, b engine.Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
