// Package engine provides the core world model for the warehouse planner.
//
// The engine package implements the simulation mechanics including:
//   - Grid world with obstacle management and validity queries
//   - Robot and package entities with capacity and delivery rules
//   - Breadth-first reachability over the 4-connected grid
//   - Scenario construction with placement repair and seeded randomization
//   - Plan execution in sequential and step-barrier parallel modes
//
// Core Types:
//
// GridWorld owns the grid bounds and obstacle set. Robot and Package carry
// the entity state mutated during execution. PlanExecutor is the state
// machine that validates and applies parsed plan actions.
//
// Usage:
//
//	scenario, err := engine.NewScenario(engine.DefaultSpec())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	exec := engine.NewPlanExecutor(scenario, func(msg string) { log.Println(msg) })
//	report, err := exec.ExecuteSequential(ctx, plan)
//
// Invariants:
//
// No robot or grounded package ever occupies an obstacle cell; declarations
// that violate this are repaired at construction by relocating the entity to
// the nearest valid cell. A package is carried if and only if its carrier id
// is set and its state is Transported. After any fully committed parallel
// step, no two robots share a cell.
package engine
