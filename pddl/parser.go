package pddl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"warehouseplanner/warehouse/engine"
)

// ErrPlanUnavailable is returned when the plan artifact is missing, empty,
// or cannot be parsed as a whole. Callers must treat it as "no plan": the
// parser never hands back a partially consumed sequence.
var ErrPlanUnavailable = errors.New("no plan available")

// ParsePlan reads a plan artifact: one parenthesized action per line,
// comment lines starting with ";" skipped, identifiers lowercased, emission
// order preserved.
func ParsePlan(r io.Reader) ([]engine.Action, error) {
	var plan []engine.Action
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		action, err := parseActionLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrPlanUnavailable, lineNo, err)
		}
		plan = append(plan, action)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, err)
	}
	if len(plan) == 0 {
		return nil, ErrPlanUnavailable
	}
	return plan, nil
}

// ParsePlanFile reads a plan artifact from disk. A missing file is reported
// as plan unavailability, not an I/O failure.
func ParsePlanFile(path string) ([]engine.Action, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, err)
	}
	defer f.Close()
	return ParsePlan(f)
}

func parseActionLine(line string) (engine.Action, error) {
	if !strings.HasPrefix(line, "(") || !strings.HasSuffix(line, ")") {
		return engine.Action{}, fmt.Errorf("not a parenthesized action: %q", line)
	}
	tokens := strings.Fields(strings.ToLower(strings.Trim(line, "()")))
	if len(tokens) == 0 {
		return engine.Action{}, fmt.Errorf("empty action: %q", line)
	}

	name := tokens[0]
	args := tokens[1:]
	switch name {
	case "move":
		if len(args) != 3 {
			return engine.Action{}, fmt.Errorf("move wants 3 arguments, got %d", len(args))
		}
		from, ok := ParseZone(args[1])
		if !ok {
			return engine.Action{}, fmt.Errorf("bad zone %q", args[1])
		}
		to, ok := ParseZone(args[2])
		if !ok {
			return engine.Action{}, fmt.Errorf("bad zone %q", args[2])
		}
		return engine.Action{
			Kind:  engine.ActionMove,
			Name:  name,
			Robot: args[0],
			From:  from,
			To:    to,
		}, nil

	case "pickup", "drop":
		if len(args) != 3 {
			return engine.Action{}, fmt.Errorf("%s wants 3 arguments, got %d", name, len(args))
		}
		at, ok := ParseZone(args[2])
		if !ok {
			return engine.Action{}, fmt.Errorf("bad zone %q", args[2])
		}
		kind := engine.ActionPickup
		if name == "drop" {
			kind = engine.ActionDrop
		}
		return engine.Action{
			Kind:    kind,
			Name:    name,
			Robot:   args[0],
			Package: args[1],
			At:      at,
		}, nil

	default:
		// Unknown actions parse so the executor can report exactly which
		// action is unsupported instead of losing the whole plan.
		a := engine.Action{Kind: engine.ActionUnknown, Name: name}
		if len(args) > 0 {
			a.Robot = args[0]
		}
		return a, nil
	}
}
