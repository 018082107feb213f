// Package config provides scenario management for the warehouse planner.
//
// The config package handles:
//   - Loading scenario documents from JSON files
//   - Schema and cross-field validation
//   - Default scenario management
//   - Scenario discovery and listing
//
// Scenario Format:
//
// Scenarios are stored as JSON files in the scenarios directory. Each
// document defines:
//   - Grid dimensions and an optional layout ('.' floor, '#' obstacle)
//   - Robots with starting positions and carrying capacity
//   - Packages with starting positions, destinations, and optional
//     robot assignment hints
//
// Usage:
//
//	manager, err := config.NewManager("scenarios")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadScenario("default")
//	spec := scenario.Spec()
//
// Documents are validated against a JSON schema before decoding, then
// checked for layout consistency, in-bounds placements, and unique ids.
package config
