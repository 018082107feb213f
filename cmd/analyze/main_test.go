package main

import (
	"os"
	"path/filepath"
	"testing"

	"warehouseplanner/warehouse/engine"
)

func TestAbs(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{5, 5},
		{-5, 5},
		{0, 0},
		{-10, 10},
		{100, 100},
	}

	for _, test := range tests {
		result := abs(test.input)
		if result != test.expected {
			t.Errorf("abs(%d) = %d, expected %d", test.input, result, test.expected)
		}
	}
}

func TestManhattan(t *testing.T) {
	a := engine.Position{X: 1, Y: 2}
	b := engine.Position{X: 4, Y: 6}
	if d := manhattan(a, b); d != 7 {
		t.Errorf("manhattan((1,2),(4,6)) = %d, expected 7", d)
	}
	if d := manhattan(a, a); d != 0 {
		t.Errorf("manhattan of equal points = %d, expected 0", d)
	}
}

func TestAnalyzeScenario_ValidFile(t *testing.T) {
	validScenario := `{
		"name": "test",
		"description": "Test scenario",
		"width": 5,
		"height": 5,
		"layout": [
			".....",
			".....",
			"..#..",
			".....",
			"....."
		],
		"robots": [
			{"id": "R1", "x": 0, "y": 0, "capacity": 1}
		],
		"packages": [
			{"id": "p1", "x": 2, "y": 0, "dest_x": 4, "dest_y": 4}
		]
	}`

	tmpfile := writeTempScenario(t, validScenario)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("analyzeScenario panicked: %v", r)
		}
	}()
	analyzeScenario(tmpfile)
}

func TestAnalyzeScenario_InvalidFile(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("analyzeScenario panicked with invalid file: %v", r)
		}
	}()
	analyzeScenario("/non/existent/file.json")
}

func TestAnalyzeScenario_InvalidJSON(t *testing.T) {
	tmpfile := writeTempScenario(t, `{"name": "test", invalid json}`)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("analyzeScenario panicked with invalid JSON: %v", r)
		}
	}()
	analyzeScenario(tmpfile)
}

func TestAnalyzeScenario_UndeliverablePackage(t *testing.T) {
	// The package destination sits in a walled-off corner.
	walled := `{
		"name": "walled",
		"description": "Destination sealed behind obstacles",
		"width": 5,
		"height": 5,
		"layout": [
			"...#.",
			"...#.",
			"####.",
			".....",
			"....."
		],
		"robots": [
			{"id": "R1", "x": 0, "y": 4, "capacity": 1}
		],
		"packages": [
			{"id": "p1", "x": 1, "y": 4, "dest_x": 0, "dest_y": 0}
		]
	}`

	tmpfile := writeTempScenario(t, walled)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("analyzeScenario panicked with undeliverable package: %v", r)
		}
	}()
	analyzeScenario(tmpfile)
}

func writeTempScenario(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write scenario: %v", err)
	}
	return path
}
