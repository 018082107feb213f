package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// NotifyFunc receives one human-readable status line per applied action and
// per terminal rejection. It is the executor's only side channel.
type NotifyFunc func(message string)

// RejectedAction records one action that failed its preconditions or lost a
// step conflict.
type RejectedAction struct {
	Action Action `json:"action"`
	Step   int    `json:"step"`
	Reason string `json:"reason"`
}

// ExecutionReport summarizes a plan execution
type ExecutionReport struct {
	Mode      string           `json:"mode"`
	Applied   int              `json:"applied"`
	Steps     int              `json:"steps"`
	Rejected  []RejectedAction `json:"rejected,omitempty"`
	Aborted   bool             `json:"aborted"`
	Cancelled bool             `json:"cancelled"`
}

// PlanExecutor validates and applies plan actions against a scenario. It is
// the single writer of world state while a plan runs; in parallel mode all
// mutations happen under the step barrier.
type PlanExecutor struct {
	world        *GridWorld
	robots       []*Robot
	robotsByID   map[string]*Robot
	packagesByID map[string]*Package
	notify       NotifyFunc
	stepDelay    time.Duration

	mu sync.Mutex
}

// NewPlanExecutor creates an executor over the scenario's world and entities.
// notify may be nil.
func NewPlanExecutor(s *Scenario, notify NotifyFunc) *PlanExecutor {
	e := &PlanExecutor{
		world:        s.World,
		robots:       s.Robots,
		robotsByID:   make(map[string]*Robot, len(s.Robots)),
		packagesByID: make(map[string]*Package, len(s.Packages)),
		notify:       notify,
	}
	// Plan identifiers are lowercased by the parser, so index entities the
	// same way.
	for _, r := range s.Robots {
		e.robotsByID[strings.ToLower(r.ID)] = r
	}
	for _, p := range s.Packages {
		e.packagesByID[strings.ToLower(p.ID)] = p
	}
	return e
}

// SetStepDelay sets the pause between parallel steps. The delay is a pacing
// hint for external renderers and carries no correctness meaning.
func (e *PlanExecutor) SetStepDelay(d time.Duration) {
	e.stepDelay = d
}

func (e *PlanExecutor) emit(format string, args ...interface{}) {
	if e.notify != nil {
		e.notify(fmt.Sprintf(format, args...))
	}
}

// apply checks one action's preconditions and mutates the world on success.
// Callers serialize access; apply itself never locks.
func (e *PlanExecutor) apply(a Action) *ActionError {
	robot, ok := e.robotsByID[a.Robot]
	if !ok {
		return &ActionError{Action: a, Reason: fmt.Sprintf("unknown robot %q", a.Robot)}
	}

	switch a.Kind {
	case ActionMove:
		if robot.Position != a.From {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"robot %s is at (%d,%d), not at (%d,%d)",
				robot.ID, robot.Position.X, robot.Position.Y, a.From.X, a.From.Y)}
		}
		if !e.world.IsValidPosition(a.To.X, a.To.Y) {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"destination (%d,%d) is not a valid cell", a.To.X, a.To.Y)}
		}
		if other := e.robotAt(a.To, robot); other != nil {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"destination (%d,%d) occupied by robot %s", a.To.X, a.To.Y, other.ID)}
		}
		robot.MoveTo(a.To)
		return nil

	case ActionPickup:
		pkg, ok := e.packagesByID[a.Package]
		if !ok {
			return &ActionError{Action: a, Reason: fmt.Sprintf("unknown package %q", a.Package)}
		}
		if robot.Position != a.At {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"robot %s is not at pickup zone (%d,%d)", robot.ID, a.At.X, a.At.Y)}
		}
		if pkg.Carried {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"package %s already carried by %s", pkg.ID, pkg.CarrierID)}
		}
		if pkg.Position != a.At {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"package %s is at (%d,%d), not at (%d,%d)",
				pkg.ID, pkg.Position.X, pkg.Position.Y, a.At.X, a.At.Y)}
		}
		if !robot.CanCarryMore() {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"robot %s is at capacity (%d)", robot.ID, robot.Capacity)}
		}
		robot.Pickup(pkg)
		return nil

	case ActionDrop:
		pkg, ok := e.packagesByID[a.Package]
		if !ok {
			return &ActionError{Action: a, Reason: fmt.Sprintf("unknown package %q", a.Package)}
		}
		if !robot.IsCarrying(pkg) {
			return &ActionError{Action: a, Reason: fmt.Sprintf(
				"robot %s is not carrying package %s", robot.ID, pkg.ID)}
		}
		robot.Drop(pkg)
		return nil

	default:
		return &ActionError{Action: a, Reason: fmt.Sprintf("unsupported action %q", a.Name)}
	}
}

// robotAt returns the robot occupying pos, excluding the given one
func (e *PlanExecutor) robotAt(pos Position, except *Robot) *Robot {
	for _, r := range e.robots {
		if r != except && r.Position == pos {
			return r
		}
	}
	return nil
}

func (e *PlanExecutor) describe(a Action) string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("Robot %s moved to (%d,%d)", a.Robot, a.To.X, a.To.Y)
	case ActionPickup:
		return fmt.Sprintf("Robot %s picked up %s at (%d,%d)", a.Robot, a.Package, a.At.X, a.At.Y)
	case ActionDrop:
		pkg := e.packagesByID[a.Package]
		if pkg != nil && pkg.State == Delivered {
			return fmt.Sprintf("Robot %s delivered %s at (%d,%d)", a.Robot, a.Package, a.At.X, a.At.Y)
		}
		return fmt.Sprintf("Robot %s dropped %s at (%d,%d)", a.Robot, a.Package, a.At.X, a.At.Y)
	default:
		return fmt.Sprintf("Action %s", a)
	}
}

// ExecuteSequential applies the plan strictly in file order. The first
// precondition failure aborts the remaining actions and is returned to the
// caller; it is never silently skipped.
func (e *PlanExecutor) ExecuteSequential(ctx context.Context, plan []Action) (*ExecutionReport, error) {
	report := &ExecutionReport{Mode: "sequential"}
	for i, a := range plan {
		select {
		case <-ctx.Done():
			report.Cancelled = true
			e.emit("Execution cancelled after %d of %d actions", report.Applied, len(plan))
			return report, ErrExecutionCancelled
		default:
		}

		if err := e.apply(a); err != nil {
			report.Aborted = true
			report.Rejected = append(report.Rejected, RejectedAction{
				Action: a,
				Step:   i,
				Reason: err.Reason,
			})
			e.emit("Execution aborted at action %d/%d: %s", i+1, len(plan), err.Reason)
			return report, fmt.Errorf("%w: %v", ErrExecutionAborted, err)
		}
		report.Applied++
		e.emit("%s", e.describe(a))
	}
	report.Steps = len(plan)
	e.emit("Plan executed: %d actions applied", report.Applied)
	return report, nil
}

type stepAttempt struct {
	lane   string
	action Action
	err    *ActionError
}

// ExecuteParallel partitions the plan into per-robot sub-sequences and
// executes them step by step: at step i every robot's i-th action is
// attempted, and no robot advances to step i+1 until all attempts at step i
// have resolved. Moves targeting the same cell within a step are all
// rejected, as are moves into a cell held by another robot at the step
// boundary; the remaining actions in the step still commit. A rejected
// robot's sub-sequence is halted, since its later actions presuppose the
// rejected one.
func (e *PlanExecutor) ExecuteParallel(ctx context.Context, plan []Action) (*ExecutionReport, error) {
	report := &ExecutionReport{Mode: "parallel"}

	lanes := make(map[string][]Action)
	var laneOrder []string
	for _, a := range plan {
		if _, seen := lanes[a.Robot]; !seen {
			laneOrder = append(laneOrder, a.Robot)
		}
		lanes[a.Robot] = append(lanes[a.Robot], a)
	}

	halted := make(map[string]bool)
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			report.Cancelled = true
			e.emit("Execution cancelled after step %d", step)
			return report, ErrExecutionCancelled
		default:
		}

		var attempts []*stepAttempt
		for _, lane := range laneOrder {
			if halted[lane] || step >= len(lanes[lane]) {
				continue
			}
			attempts = append(attempts, &stepAttempt{lane: lane, action: lanes[lane][step]})
		}
		if len(attempts) == 0 {
			break
		}

		e.resolveStepConflicts(step, attempts, report, halted)

		// Barrier: every surviving attempt resolves before the step ends.
		var wg sync.WaitGroup
		for _, at := range attempts {
			if at.err != nil {
				continue
			}
			wg.Add(1)
			go func(at *stepAttempt) {
				defer wg.Done()
				e.mu.Lock()
				at.err = e.apply(at.action)
				e.mu.Unlock()
			}(at)
		}
		wg.Wait()

		for _, at := range attempts {
			if at.err != nil {
				if !containsRejection(report.Rejected, at.action, step) {
					report.Rejected = append(report.Rejected, RejectedAction{
						Action: at.action,
						Step:   step,
						Reason: at.err.Reason,
					})
					e.emit("Step %d: rejected %s: %s", step, at.action, at.err.Reason)
				}
				halted[at.lane] = true
				continue
			}
			report.Applied++
			e.emit("Step %d: %s", step, e.describe(at.action))
		}
		report.Steps++

		if e.stepDelay > 0 {
			select {
			case <-ctx.Done():
				report.Cancelled = true
				e.emit("Execution cancelled after step %d", step)
				return report, ErrExecutionCancelled
			case <-time.After(e.stepDelay):
			}
		}
	}

	e.emit("Plan executed in %d steps: %d applied, %d rejected",
		report.Steps, report.Applied, len(report.Rejected))
	return report, nil
}

// resolveStepConflicts rejects, before anything commits, every move whose
// destination collides with another attempt in the same step or with a robot
// parked on that cell at the step boundary. This holds even if the encoder's
// occupancy facts failed upstream: the executor never corrupts world state.
func (e *PlanExecutor) resolveStepConflicts(step int, attempts []*stepAttempt, report *ExecutionReport, halted map[string]bool) {
	byDest := make(map[Position][]*stepAttempt)
	for _, at := range attempts {
		if at.action.Kind == ActionMove {
			byDest[at.action.To] = append(byDest[at.action.To], at)
		}
	}

	for dest, group := range byDest {
		if len(group) > 1 {
			robots := make([]string, 0, len(group))
			for _, at := range group {
				robots = append(robots, at.action.Robot)
			}
			conflict := &StepConflictError{Step: step, Zone: dest, Robots: robots}
			e.emit("Step conflict: %s", conflict)
			for _, at := range group {
				at.err = &ActionError{Action: at.action, Reason: conflict.Error()}
				report.Rejected = append(report.Rejected, RejectedAction{
					Action: at.action,
					Step:   step,
					Reason: conflict.Error(),
				})
				halted[at.lane] = true
			}
			continue
		}

		at := group[0]
		mover := e.robotsByID[at.action.Robot]
		if other := e.robotAt(dest, mover); other != nil {
			at.err = &ActionError{Action: at.action, Reason: fmt.Sprintf(
				"destination (%d,%d) held by robot %s at step %d",
				dest.X, dest.Y, other.ID, step)}
			report.Rejected = append(report.Rejected, RejectedAction{
				Action: at.action,
				Step:   step,
				Reason: at.err.Reason,
			})
			e.emit("Step %d: rejected %s: %s", step, at.action, at.err.Reason)
			halted[at.lane] = true
		}
	}
}

func containsRejection(rejected []RejectedAction, a Action, step int) bool {
	for _, r := range rejected {
		if r.Step == step && r.Action == a {
			return true
		}
	}
	return false
}
