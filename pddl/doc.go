// Package pddl is the state-encoding and plan-decoding layer between the
// simulated warehouse and the external planner.
//
// The encoder serializes a GridWorld plus its robots and packages into a
// planning-problem document: typed objects, initial-state facts (positions,
// spare capacity, cell occupancy, carried packages, assignment hints),
// optional bidirectional adjacency facts, and a goal conjunction of package
// destinations. Output is deterministic for a fixed world state.
//
// The parser performs the inverse for the planner's output: zone identifiers
// map back to coordinates, and the plan artifact's parenthesized action lines
// become a typed action sequence for the executor.
package pddl
