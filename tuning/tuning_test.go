package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTuning(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	d := Default()

	if d.PlannerTimeoutSeconds != 120 {
		t.Errorf("Expected 120s planner timeout, got %d", d.PlannerTimeoutSeconds)
	}
	if d.PlannerSearch != "astar(lmcut())" {
		t.Errorf("Unexpected default search: %s", d.PlannerSearch)
	}
	if d.SessionRetentionHours != 24 {
		t.Errorf("Expected 24h session retention, got %d", d.SessionRetentionHours)
	}
	if d.RunRetention != 200 {
		t.Errorf("Expected run retention 200, got %d", d.RunRetention)
	}
	if d.StepDelayMs != 0 {
		t.Errorf("Expected no step delay by default, got %d", d.StepDelayMs)
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != Default() {
		t.Errorf("Expected defaults for missing file, got %+v", got)
	}
}

func TestLoad(t *testing.T) {
	path := writeTuning(t, `
planner_timeout_seconds: 30
planner_search: "lazy_greedy([ff()])"
step_delay_ms: 250
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.PlannerTimeoutSeconds != 30 {
		t.Errorf("Expected 30s timeout, got %d", got.PlannerTimeoutSeconds)
	}
	if got.PlannerSearch != "lazy_greedy([ff()])" {
		t.Errorf("Unexpected search: %s", got.PlannerSearch)
	}
	if got.StepDelayMs != 250 {
		t.Errorf("Expected 250ms step delay, got %d", got.StepDelayMs)
	}
	// Absent fields keep their defaults
	if got.SessionRetentionHours != 24 {
		t.Errorf("Expected default session retention, got %d", got.SessionRetentionHours)
	}
	if got.RunRetention != 200 {
		t.Errorf("Expected default run retention, got %d", got.RunRetention)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeTuning(t, ":\nnot yaml: [")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestLoad_ClampsNonPositiveValues(t *testing.T) {
	path := writeTuning(t, `
planner_timeout_seconds: -5
session_retention_hours: 0
run_retention: -1
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.PlannerTimeoutSeconds != 120 {
		t.Errorf("Expected clamped timeout 120, got %d", got.PlannerTimeoutSeconds)
	}
	if got.SessionRetentionHours != 24 {
		t.Errorf("Expected clamped retention 24, got %d", got.SessionRetentionHours)
	}
	if got.RunRetention != 200 {
		t.Errorf("Expected clamped run retention 200, got %d", got.RunRetention)
	}
}

func TestDurationHelpers(t *testing.T) {
	tn := Tuning{
		PlannerTimeoutSeconds: 45,
		StepDelayMs:           100,
		SessionRetentionHours: 2,
	}

	if tn.PlannerTimeout() != 45*time.Second {
		t.Errorf("Unexpected planner timeout: %s", tn.PlannerTimeout())
	}
	if tn.StepDelay() != 100*time.Millisecond {
		t.Errorf("Unexpected step delay: %s", tn.StepDelay())
	}
	if tn.SessionRetention() != 2*time.Hour {
		t.Errorf("Unexpected session retention: %s", tn.SessionRetention())
	}
}
