package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewFastDownward(t *testing.T) {
	fd := NewFastDownward("/opt/planning")

	if fd.ScriptPath != filepath.Join("/opt/planning", "downward", "fast-downward.py") {
		t.Errorf("Unexpected script path: %s", fd.ScriptPath)
	}
	if fd.BuildDir != filepath.Join("/opt/planning", "downward", "builds", "release", "bin") {
		t.Errorf("Unexpected build dir: %s", fd.BuildDir)
	}
	if fd.Search != DefaultSearch {
		t.Errorf("Expected default search %q, got %q", DefaultSearch, fd.Search)
	}
	if fd.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %s, got %s", DefaultTimeout, fd.Timeout)
	}
	if fd.WorkDir != "/opt/planning" {
		t.Errorf("Unexpected work dir: %s", fd.WorkDir)
	}
}

func TestSolve_ScriptMissing(t *testing.T) {
	fd := NewFastDownward(t.TempDir())

	err := fd.Solve(context.Background(), "domain.pddl", "problem.pddl", "")
	if !errors.Is(err, ErrPlannerNotFound) {
		t.Errorf("Expected ErrPlannerNotFound, got %v", err)
	}
}

func TestSolve_BuildMissing(t *testing.T) {
	dir := t.TempDir()
	scriptDir := filepath.Join(dir, "downward")
	if err := os.MkdirAll(scriptDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(scriptDir, "fast-downward.py"), []byte("#"), 0755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fd := NewFastDownward(dir)
	err := fd.Solve(context.Background(), "domain.pddl", "problem.pddl", "")
	if !errors.Is(err, ErrPlannerNotBuilt) {
		t.Errorf("Expected ErrPlannerNotBuilt, got %v", err)
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Planner not found", ErrPlannerNotFound, true},
		{"Planner not built", ErrPlannerNotBuilt, true},
		{"Timeout", ErrPlannerTimeout, true},
		{"No plan found", ErrNoPlanFound, true},
		{"Wrapped timeout", fmt.Errorf("%w after 2m", ErrPlannerTimeout), true},
		{"Other error", errors.New("disk full"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSolve_ZeroTimeoutUsesDefault(t *testing.T) {
	fd := NewFastDownward(t.TempDir())
	fd.Timeout = 0

	// The script check fires before the timeout is applied, so the call must
	// still fail fast rather than validating the zero value.
	start := time.Now()
	err := fd.Solve(context.Background(), "domain.pddl", "problem.pddl", "")
	if !errors.Is(err, ErrPlannerNotFound) {
		t.Errorf("Expected ErrPlannerNotFound, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Preflight check should fail immediately")
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"Short output", "a\nb", 10, "a | b"},
		{"Trims blanks", "a\n\n  \nb\n", 10, "a | b"},
		{"Keeps last n", "1\n2\n3\n4", 2, "3 | 4"},
		{"Empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tail(tt.in, tt.n); got != tt.want {
				t.Errorf("tail(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
