// Package tuning loads runtime knobs from a yaml file. Every knob has a
// default so a missing file is not an error.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	PlannerTimeoutSeconds int    `yaml:"planner_timeout_seconds"`
	PlannerSearch         string `yaml:"planner_search"`
	PlannerDir            string `yaml:"planner_dir"`

	StepDelayMs int `yaml:"step_delay_ms"`

	SessionRetentionHours int `yaml:"session_retention_hours"`
	RunRetention          int `yaml:"run_retention"`
}

// Default returns the knobs used when no tuning file is present
func Default() Tuning {
	return Tuning{
		PlannerTimeoutSeconds: 120,
		PlannerSearch:         "astar(lmcut())",
		PlannerDir:            ".",
		StepDelayMs:           0,
		SessionRetentionHours: 24,
		RunRetention:          200,
	}
}

// Load reads knobs from path, filling absent fields from Default. A missing
// file yields the defaults; a malformed file is an error.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning: %s: %w", path, err)
	}
	if t.PlannerTimeoutSeconds <= 0 {
		t.PlannerTimeoutSeconds = Default().PlannerTimeoutSeconds
	}
	if t.PlannerSearch == "" {
		t.PlannerSearch = Default().PlannerSearch
	}
	if t.PlannerDir == "" {
		t.PlannerDir = "."
	}
	if t.SessionRetentionHours <= 0 {
		t.SessionRetentionHours = Default().SessionRetentionHours
	}
	if t.RunRetention <= 0 {
		t.RunRetention = Default().RunRetention
	}
	return t, nil
}

// PlannerTimeout returns the planner budget as a duration
func (t Tuning) PlannerTimeout() time.Duration {
	return time.Duration(t.PlannerTimeoutSeconds) * time.Second
}

// StepDelay returns the executor pacing delay as a duration
func (t Tuning) StepDelay() time.Duration {
	return time.Duration(t.StepDelayMs) * time.Millisecond
}

// SessionRetention returns the idle-session lifetime as a duration
func (t Tuning) SessionRetention() time.Duration {
	return time.Duration(t.SessionRetentionHours) * time.Hour
}
