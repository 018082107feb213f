package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"warehouseplanner/pddl"
	"warehouseplanner/planner"
	"warehouseplanner/warehouse/engine"
)

// Options configures the warehouse service
type Options struct {
	// DomainFile is the planning domain definition handed to the solver and
	// scanned for externally authored connectivity facts.
	DomainFile string

	// WorkDir holds per-session problem and plan files
	WorkDir string

	// StepDelay paces parallel execution steps
	StepDelay time.Duration

	// Notify, when set, receives one callback per session event. It must not
	// block.
	Notify func(sessionID, event string, data any)
}

// warehouseServiceImpl implements the WarehouseService interface
type warehouseServiceImpl struct {
	sessions  SessionManager
	scenarios ScenarioManager
	solver    PlanSolver
	recorder  RunRecorder
	opts      Options
	mu        sync.RWMutex
}

// NewWarehouseService creates a new warehouse service instance
func NewWarehouseService(sessions SessionManager, scenarios ScenarioManager, solver PlanSolver, recorder RunRecorder, opts Options) WarehouseService {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	return &warehouseServiceImpl{
		sessions:  sessions,
		scenarios: scenarios,
		solver:    solver,
		recorder:  recorder,
		opts:      opts,
	}
}

// CreateSession creates a new planning session
func (s *warehouseServiceImpl) CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spec engine.ScenarioSpec
	var err error
	if scenarioName != "" {
		spec, err = s.scenarios.LoadSpec(scenarioName)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				infos, listErr := s.scenarios.ListScenarios()
				if listErr == nil && len(infos) > 0 {
					var ids []string
					for _, info := range infos {
						ids = append(ids, info.ScenarioID)
					}
					return nil, fmt.Errorf("scenario '%s' not found. Available scenarios: %v", scenarioName, ids)
				}
				return nil, fmt.Errorf("scenario '%s' not found. Use /api/scenarios to list available scenarios", scenarioName)
			}
			return nil, fmt.Errorf("failed to load scenario %s: %w", scenarioName, err)
		}
	} else {
		scenarioName, spec = s.scenarios.DefaultSpec()
	}

	// Let the session manager generate a proper 4-character id
	sess, err := s.sessions.Create("", scenarioName, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *warehouseServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *warehouseServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *warehouseServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Delete(sessionID)
}

// WorldState returns a snapshot of the session's world
func (s *warehouseServiceImpl) WorldState(ctx context.Context, sessionID string) (*WorldSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return Snapshot(sess.Scenario), nil
}

// ExtractState encodes the session's world as a planning problem, writes it
// to the session's problem file, and returns the text.
func (s *warehouseServiceImpl) ExtractState(ctx context.Context, sessionID string) (*ExtractResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sc := sess.Scenario
	data, err := pddl.EncodeProblem(sc.World, sc.Robots, sc.Packages, pddl.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to encode problem: %w", err)
	}

	problemFile := s.problemPath(sess.ID)
	if err := os.WriteFile(problemFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write problem file: %w", err)
	}
	sess.ProblemFile = problemFile
	s.saveSession(sessionID, "extract")

	return &ExtractResult{Problem: string(data), File: problemFile}, nil
}

// Plan encodes the session's world and invokes the external planner. Planner
// failures come back as unsuccessful results, not errors: "no plan available"
// is an outcome, and the world is left untouched.
func (s *warehouseServiceImpl) Plan(ctx context.Context, sessionID string) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	sc := sess.Scenario

	// Cheap reachability gate before burning a planner invocation: BFS gives
	// the specific unreachable entity, which the planner's opaque "no plan"
	// cannot.
	if diag := unreachableDiagnostic(sc); diag != "" {
		s.notify(sessionID, "plan", diag)
		return &PlanResult{Success: false, Message: diag}, nil
	}

	problem, err := pddl.EncodeProblem(sc.World, sc.Robots, sc.Packages, pddl.EncodeOptions{
		IncludeConnectivity: true,
		DomainPath:          s.opts.DomainFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode problem: %w", err)
	}
	problemFile := s.problemPath(sess.ID)
	if err := os.WriteFile(problemFile, problem, 0644); err != nil {
		return nil, fmt.Errorf("failed to write problem file: %w", err)
	}
	planFile := s.planPath(sess.ID)

	rec := &RunRecord{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Scenario:  sess.ScenarioName,
		StartedAt: time.Now(),
		Problem:   problem,
	}

	start := time.Now()
	solveErr := s.solver.Solve(ctx, s.opts.DomainFile, problemFile, planFile)
	duration := time.Since(start).Milliseconds()

	if solveErr != nil {
		rec.Outcome = OutcomeNoPlan
		if errors.Is(solveErr, planner.ErrPlannerTimeout) {
			rec.Outcome = OutcomeTimeout
		}
		rec.FinishedAt = time.Now()
		rec.DurationMs = duration
		s.record(ctx, rec)
		s.notify(sessionID, "plan", solveErr.Error())
		return &PlanResult{
			Success:    false,
			Message:    solveErr.Error(),
			DurationMs: duration,
			RunID:      rec.ID,
		}, nil
	}

	actions, err := pddl.ParsePlanFile(planFile)
	if err != nil {
		rec.Outcome = OutcomeNoPlan
		rec.FinishedAt = time.Now()
		rec.DurationMs = duration
		s.record(ctx, rec)
		return &PlanResult{
			Success:    false,
			Message:    err.Error(),
			DurationMs: duration,
			RunID:      rec.ID,
		}, nil
	}

	rendered := make([]string, len(actions))
	for i, a := range actions {
		rendered[i] = a.String()
	}

	if planText, err := os.ReadFile(planFile); err == nil {
		rec.Plan = planText
	}
	rec.Outcome = OutcomePlanned
	rec.PlanLength = len(actions)
	rec.FinishedAt = time.Now()
	rec.DurationMs = duration
	s.record(ctx, rec)

	sess.ProblemFile = problemFile
	sess.PlanFile = planFile
	s.saveSession(sessionID, "plan")
	s.notify(sessionID, "plan", fmt.Sprintf("plan found: %d actions", len(actions)))

	return &PlanResult{
		Success:     true,
		Message:     fmt.Sprintf("plan found: %d actions", len(actions)),
		Plan:        rendered,
		PlanLength:  len(actions),
		ProblemFile: problemFile,
		PlanFile:    planFile,
		DurationMs:  duration,
		RunID:       rec.ID,
	}, nil
}

// ExecutePlan runs a previously produced plan against the session's world
func (s *warehouseServiceImpl) ExecutePlan(ctx context.Context, sessionID string, req ExecuteRequest) (*ExecuteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	mode := req.Mode
	if mode == "" {
		mode = ModeSequential
	}
	if mode != ModeSequential && mode != ModeParallel {
		return nil, fmt.Errorf("unknown execution mode %q (want %q or %q)", mode, ModeSequential, ModeParallel)
	}

	planFile := req.PlanFile
	if planFile == "" {
		planFile = sess.PlanFile
	}
	if planFile == "" {
		return nil, fmt.Errorf("session %s has no plan: call plan first or supply plan_file", sess.ID)
	}

	actions, err := pddl.ParsePlanFile(planFile)
	if err != nil {
		return &ExecuteResult{
			Success: false,
			Mode:    mode,
			Message: err.Error(),
			State:   Snapshot(sess.Scenario),
		}, nil
	}

	var events []ExecEvent
	exec := engine.NewPlanExecutor(sess.Scenario, func(msg string) {
		events = append(events, ExecEvent{Type: "status", Message: msg, Timestamp: time.Now()})
		s.notify(sessionID, "status", msg)
	})
	exec.SetStepDelay(s.opts.StepDelay)

	rec := &RunRecord{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		Scenario:   sess.ScenarioName,
		StartedAt:  time.Now(),
		PlanLength: len(actions),
	}

	start := time.Now()
	var report *engine.ExecutionReport
	var execErr error
	if mode == ModeParallel {
		report, execErr = exec.ExecuteParallel(ctx, actions)
	} else {
		report, execErr = exec.ExecuteSequential(ctx, actions)
	}
	duration := time.Since(start).Milliseconds()

	records := make([]StepRecord, 0, len(report.Rejected))
	for _, rej := range report.Rejected {
		records = append(records, StepRecord{
			Idx:    rej.Step,
			Action: rej.Action.String(),
			Robot:  rej.Action.Robot,
			Reason: rej.Reason,
		})
	}

	delivered := sess.Scenario.DeliveredCount()
	result := &ExecuteResult{
		Success:    execErr == nil,
		Mode:       mode,
		Applied:    report.Applied,
		Steps:      report.Steps,
		Aborted:    report.Aborted,
		Cancelled:  report.Cancelled,
		Delivered:  delivered,
		Records:    records,
		Events:     events,
		State:      Snapshot(sess.Scenario),
		DurationMs: duration,
		RunID:      rec.ID,
	}
	switch {
	case execErr != nil:
		result.Message = execErr.Error()
	default:
		result.Message = fmt.Sprintf("%d/%d actions applied, %d/%d packages delivered",
			report.Applied, len(actions), delivered, len(sess.Scenario.Packages))
	}

	rec.Outcome = OutcomeExecuted
	if execErr != nil {
		rec.Outcome = OutcomeAborted
	}
	rec.Applied = report.Applied
	rec.FinishedAt = time.Now()
	rec.DurationMs = duration
	s.record(ctx, rec)

	s.saveSession(sessionID, "execute")
	s.notify(sessionID, "execute", result.Message)
	return result, nil
}

// Reset rebuilds the session's world from its scenario, optionally re-rolling
// entity placements.
func (s *warehouseServiceImpl) Reset(ctx context.Context, sessionID string, opts ResetOptions) (*WorldSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var sc *engine.Scenario
	if opts.Randomize {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		sc, err = engine.RandomScenario(sess.Spec, rand.New(rand.NewSource(seed)))
	} else {
		sc, err = engine.NewScenario(sess.Spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild scenario: %w", err)
	}

	sess.Scenario = sc
	sess.ProblemFile = ""
	sess.PlanFile = ""
	s.saveSession(sessionID, "reset")
	s.notify(sessionID, "reset", "world reset")
	return Snapshot(sc), nil
}

// ToggleObstacle flips one cell between floor and obstacle. A cell holding a
// robot or a grounded package cannot be blocked: entity relocation only
// happens at scenario construction, never mid-session.
func (s *warehouseServiceImpl) ToggleObstacle(ctx context.Context, sessionID string, x, y int) (*WorldSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sc := sess.Scenario
	if !sc.World.InBounds(x, y) {
		return nil, fmt.Errorf("cell (%d,%d) is outside the %dx%d grid", x, y, sc.World.Width, sc.World.Height)
	}

	if sc.World.IsObstacle(x, y) {
		sc.World.RemoveObstacle(x, y)
	} else {
		pos := engine.Position{X: x, Y: y}
		for _, r := range sc.Robots {
			if r.Position == pos {
				return nil, fmt.Errorf("cell (%d,%d) holds robot %s", x, y, r.ID)
			}
		}
		for _, p := range sc.Packages {
			if !p.Carried && p.Position == pos {
				return nil, fmt.Errorf("cell (%d,%d) holds package %s", x, y, p.ID)
			}
		}
		if err := sc.World.AddObstacle(x, y); err != nil {
			return nil, err
		}
	}

	s.saveSession(sessionID, "obstacle")
	s.notify(sessionID, "obstacle", fmt.Sprintf("obstacle toggled at (%d,%d)", x, y))
	return Snapshot(sc), nil
}

// ListScenarios returns available scenarios
func (s *warehouseServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// SaveScenario validates and stores a raw scenario document
func (s *warehouseServiceImpl) SaveScenario(ctx context.Context, name string, raw []byte) error {
	return s.scenarios.SaveRaw(name, raw)
}

// RecentRuns returns run history, newest first
func (s *warehouseServiceImpl) RecentRuns(ctx context.Context, sessionID string, limit int) ([]*RunSummary, error) {
	if s.recorder == nil {
		return []*RunSummary{}, nil
	}
	return s.recorder.RecentRuns(ctx, sessionID, limit)
}

func (s *warehouseServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ScenarioName:   sess.ScenarioName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          Snapshot(sess.Scenario),
	}
}

func (s *warehouseServiceImpl) problemPath(sessionID string) string {
	return filepath.Join(s.opts.WorkDir, fmt.Sprintf("problem_%s.pddl", sessionID))
}

func (s *warehouseServiceImpl) planPath(sessionID string) string {
	return filepath.Join(s.opts.WorkDir, fmt.Sprintf("plan_%s.txt", sessionID))
}

func (s *warehouseServiceImpl) notify(sessionID, event string, data any) {
	if s.opts.Notify != nil {
		s.opts.Notify(sessionID, event, data)
	}
}

func (s *warehouseServiceImpl) record(ctx context.Context, rec *RunRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		log.Printf("warning: failed to record run %s: %v", rec.ID, err)
	}
}

func (s *warehouseServiceImpl) saveSession(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("warning: failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

// unreachableDiagnostic names the first entity the goal cannot be satisfied
// for, or "" when the pre-gate passes.
func unreachableDiagnostic(sc *engine.Scenario) string {
	for _, p := range sc.Packages {
		if p.State == engine.Delivered && p.Position == p.Destination {
			continue
		}
		if p.Carried {
			carrier := sc.RobotByID(p.CarrierID)
			if carrier != nil && !engine.Reachable(sc.World, carrier.Position, p.Destination) {
				return fmt.Sprintf("destination (%d,%d) of carried package %s is unreachable from robot %s",
					p.Destination.X, p.Destination.Y, p.ID, carrier.ID)
			}
			continue
		}

		reachedBy := false
		for _, r := range sc.Robots {
			if engine.Reachable(sc.World, r.Position, p.Position) {
				reachedBy = true
				break
			}
		}
		if !reachedBy {
			return fmt.Sprintf("no robot can reach package %s at (%d,%d)",
				p.ID, p.Position.X, p.Position.Y)
		}
		if !engine.Reachable(sc.World, p.Position, p.Destination) {
			return fmt.Sprintf("destination (%d,%d) of package %s is unreachable from (%d,%d)",
				p.Destination.X, p.Destination.Y, p.ID, p.Position.X, p.Position.Y)
		}
	}
	return ""
}

// Snapshot builds a read-only view of a scenario, including an ascii
// rendering of the grid. Render precedence per cell: robot, grounded package,
// destination, obstacle, floor.
func Snapshot(sc *engine.Scenario) *WorldSnapshot {
	w := sc.World
	grid := make([]string, w.Height)
	for y := 0; y < w.Height; y++ {
		row := make([]byte, w.Width)
		for x := 0; x < w.Width; x++ {
			row[x] = cellChar(sc, engine.Position{X: x, Y: y})
		}
		grid[y] = string(row)
	}

	return &WorldSnapshot{
		Width:     w.Width,
		Height:    w.Height,
		Obstacles: w.Obstacles(),
		Robots:    sc.Robots,
		Packages:  sc.Packages,
		Delivered: sc.DeliveredCount(),
		Total:     len(sc.Packages),
		Grid:      grid,
	}
}

func cellChar(sc *engine.Scenario, pos engine.Position) byte {
	for _, r := range sc.Robots {
		if r.Position == pos {
			return 'R'
		}
	}
	for _, p := range sc.Packages {
		if !p.Carried && p.Position == pos {
			if p.Position == p.Destination {
				return '*'
			}
			return 'P'
		}
	}
	for _, p := range sc.Packages {
		if p.Destination == pos {
			return 'D'
		}
	}
	if sc.World.IsObstacle(pos.X, pos.Y) {
		return '#'
	}
	return '.'
}
