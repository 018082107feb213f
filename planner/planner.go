// Package planner invokes the external Fast Downward planner. The planner is
// an opaque oracle: given a domain and problem file it either produces a plan
// artifact within the time budget or fails. All failure modes collapse to
// "no plan available" for callers, with distinguishable diagnostics, and
// never touch world state.
package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrPlannerNotFound = errors.New("planner script not found")
	ErrPlannerNotBuilt = errors.New("planner build not found")
	ErrPlannerTimeout  = errors.New("planner timed out")
	ErrNoPlanFound     = errors.New("planner found no plan")
)

// DefaultTimeout bounds a single planner invocation
const DefaultTimeout = 120 * time.Second

// DefaultSearch is the search configuration handed to Fast Downward
const DefaultSearch = "astar(lmcut())"

// sasPlanFile is where Fast Downward writes its result
const sasPlanFile = "sas_plan"

// FastDownward runs the Fast Downward planner as a subprocess
type FastDownward struct {
	ScriptPath string
	BuildDir   string
	PythonExec string
	Search     string
	Timeout    time.Duration
	WorkDir    string
}

// NewFastDownward configures a planner rooted at dir, expecting the usual
// downward/fast-downward.py checkout layout.
func NewFastDownward(dir string) *FastDownward {
	return &FastDownward{
		ScriptPath: filepath.Join(dir, "downward", "fast-downward.py"),
		BuildDir:   filepath.Join(dir, "downward", "builds", "release", "bin"),
		PythonExec: "python3",
		Search:     DefaultSearch,
		Timeout:    DefaultTimeout,
		WorkDir:    dir,
	}
}

// IsUnavailable reports whether err is one of the planner's "no plan
// available" outcomes.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrPlannerNotFound) ||
		errors.Is(err, ErrPlannerNotBuilt) ||
		errors.Is(err, ErrPlannerTimeout) ||
		errors.Is(err, ErrNoPlanFound)
}

// Solve runs the planner over the given domain and problem files. On success
// the plan artifact is moved to outputFile. The context bounds the run in
// addition to the configured timeout.
func (p *FastDownward) Solve(ctx context.Context, domainFile, problemFile, outputFile string) error {
	if _, err := os.Stat(p.ScriptPath); err != nil {
		return fmt.Errorf("%w: %s (clone the Fast Downward checkout into the working directory)",
			ErrPlannerNotFound, p.ScriptPath)
	}
	if info, err := os.Stat(p.BuildDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: expected %s; build with `cd downward && python build.py release`",
			ErrPlannerNotBuilt, p.BuildDir)
	}

	domainAbs, err := filepath.Abs(domainFile)
	if err != nil {
		return fmt.Errorf("resolve domain file: %w", err)
	}
	problemAbs, err := filepath.Abs(problemFile)
	if err != nil {
		return fmt.Errorf("resolve problem file: %w", err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.PythonExec, p.ScriptPath,
		domainAbs, problemAbs, "--search", p.Search)
	cmd.Dir = p.WorkDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrPlannerTimeout, timeout)
	}

	// Fast Downward does not reliably signal success through its exit code
	// or output; the presence of the plan file is the contract.
	planPath := filepath.Join(p.WorkDir, sasPlanFile)
	if _, err := os.Stat(planPath); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w: %v: %s", ErrNoPlanFound, runErr, tail(output.String(), 10))
		}
		return fmt.Errorf("%w: %s", ErrNoPlanFound, tail(output.String(), 10))
	}

	if outputFile != "" && outputFile != planPath {
		os.Remove(outputFile)
		if err := os.Rename(planPath, outputFile); err != nil {
			return fmt.Errorf("move plan artifact: %w", err)
		}
	}
	return nil
}

// tail returns the last n non-empty lines of s for compact diagnostics
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
