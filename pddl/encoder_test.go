package pddl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"warehouseplanner/warehouse/engine"
)

func TestZoneName(t *testing.T) {
	if got := ZoneName(3, 5); got != "zone_3_5" {
		t.Errorf("ZoneName(3,5) = %q, want zone_3_5", got)
	}
	if got := ZoneFor(engine.Position{X: 0, Y: 0}); got != "zone_0_0" {
		t.Errorf("ZoneFor((0,0)) = %q, want zone_0_0", got)
	}
}

func TestParseZone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want engine.Position
		ok   bool
	}{
		{"Valid zone", "zone_3_5", engine.Position{X: 3, Y: 5}, true},
		{"Origin", "zone_0_0", engine.Position{X: 0, Y: 0}, true},
		{"Wrong prefix", "cell_3_5", engine.Position{}, false},
		{"Missing part", "zone_3", engine.Position{}, false},
		{"Extra part", "zone_3_5_7", engine.Position{}, false},
		{"Non-numeric", "zone_a_b", engine.Position{}, false},
		{"Empty", "", engine.Position{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseZone(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseZone(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseZone(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func defaultWorld(t *testing.T) (*engine.GridWorld, []*engine.Robot, []*engine.Package) {
	t.Helper()
	scenario, err := engine.NewScenario(engine.DefaultSpec())
	if err != nil {
		t.Fatalf("NewScenario failed: %v", err)
	}
	return scenario.World, scenario.Robots, scenario.Packages
}

func TestEncodeProblem(t *testing.T) {
	world, robots, packages := defaultWorld(t)

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}
	problem := string(data)

	expectedLines := []string{
		"(define (problem warehouse-delivery)",
		" (:domain warehouse)",
		"  r2 - robot",
		"  p2 - package",
		"  (at-robot r2 zone_6_6)",
		"  (robot-free r2)",
		"  (occupied zone_6_6)",
		"  (at-package p2 zone_5_5)",
		"  (at-package p2 zone_0_0)", // goal
	}
	for _, line := range expectedLines {
		if !strings.Contains(problem, line) {
			t.Errorf("Expected line %q in problem:\n%s", line, problem)
		}
	}

	// 47 free cells on the 7x7 grid with two obstacles
	if !strings.Contains(problem, "zone_0_0 zone_0_1") {
		t.Error("Expected zone objects in canonical order")
	}
	if strings.Contains(problem, "zone_3_3") || strings.Contains(problem, "zone_3_4") {
		t.Error("Obstacle cells must not appear as zone objects")
	}
	if strings.Contains(problem, "(connected ") {
		t.Error("Connectivity facts must be omitted unless requested")
	}
}

func TestEncodeProblem_Deterministic(t *testing.T) {
	world, robots, packages := defaultWorld(t)

	a, err := EncodeProblem(world, robots, packages, EncodeOptions{IncludeConnectivity: true})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}
	b, err := EncodeProblem(world, robots, packages, EncodeOptions{IncludeConnectivity: true})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("Re-encoding an unchanged world must be byte-identical")
	}
}

func TestEncodeProblem_Connectivity(t *testing.T) {
	world, robots, packages := defaultWorld(t)

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{IncludeConnectivity: true})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}
	problem := string(data)

	if !strings.Contains(problem, "(connected zone_0_0 zone_0_1)") {
		t.Error("Expected adjacency fact for (0,0)-(0,1)")
	}
	if !strings.Contains(problem, "(connected zone_0_0 zone_1_0)") {
		t.Error("Expected adjacency fact for (0,0)-(1,0)")
	}
	// No adjacency into the obstacle at (3,3)
	if strings.Contains(problem, "(connected zone_2_3 zone_3_3)") {
		t.Error("Adjacency into an obstacle cell must not be emitted")
	}
}

func TestEncodeProblem_CarriedPackage(t *testing.T) {
	world, robots, packages := defaultWorld(t)
	packages[0].Carried = true
	packages[0].CarrierID = robots[0].ID

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}
	problem := string(data)

	if !strings.Contains(problem, "(carrying r2 p2)") {
		t.Errorf("Expected carrying fact, got:\n%s", problem)
	}
	if strings.Contains(problem, "(at-package p2 zone_5_5)") {
		t.Error("Carried package must not have an at-package init fact")
	}
}

func TestEncodeProblem_FullRobotNotFree(t *testing.T) {
	world, robots, packages := defaultWorld(t)
	robots[0].Position = packages[0].Position
	robots[0].Pickup(packages[0])

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}

	if strings.Contains(string(data), "(robot-free r2)") {
		t.Error("Robot at capacity must not be robot-free")
	}
}

func TestEncodeProblem_AssignedRobot(t *testing.T) {
	world, robots, packages := defaultWorld(t)
	packages[0].AssignedRobotID = "R2"

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}

	if !strings.Contains(string(data), "(assigned p2 r2)") {
		t.Error("Expected lowercased assignment fact")
	}
}

func TestWriteProblemFile(t *testing.T) {
	world, robots, packages := defaultWorld(t)
	path := filepath.Join(t.TempDir(), "problem.pddl")

	if err := WriteProblemFile(path, world, robots, packages, EncodeOptions{}); err != nil {
		t.Fatalf("WriteProblemFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "(define (problem warehouse-delivery)") {
		t.Error("Problem file missing header")
	}
}

func TestParseConnectivity(t *testing.T) {
	world, _, _ := defaultWorld(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "domain.pddl")
	content := `(define (domain warehouse)
;; (connected zone_0_0 zone_0_1)
(connected zone_1_0 zone_1_1)
;; (connected zone_3_3 zone_3_4)
;; (connected zone_99_0 zone_0_0)
;; (connected badzone zone_0_0)
)`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	conns := ParseConnectivity(path, world)

	want := [][2]string{
		{"zone_0_0", "zone_0_1"},
		{"zone_1_0", "zone_1_1"},
	}
	if len(conns) != len(want) {
		t.Fatalf("Expected %d connections, got %d: %v", len(want), len(conns), conns)
	}
	for i := range want {
		if conns[i] != want[i] {
			t.Errorf("conns[%d] = %v, want %v", i, conns[i], want[i])
		}
	}
}

func TestParseConnectivity_MissingFile(t *testing.T) {
	world, _, _ := defaultWorld(t)

	if conns := ParseConnectivity("/nonexistent/domain.pddl", world); conns != nil {
		t.Errorf("Expected nil for missing file, got %v", conns)
	}
}

func TestParseConnectivity_OverridesGridAdjacency(t *testing.T) {
	world, robots, packages := defaultWorld(t)

	path := filepath.Join(t.TempDir(), "domain.pddl")
	content := ";; (connected zone_0_0 zone_0_1)\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := EncodeProblem(world, robots, packages, EncodeOptions{
		IncludeConnectivity: true,
		DomainPath:          path,
	})
	if err != nil {
		t.Fatalf("EncodeProblem failed: %v", err)
	}
	problem := string(data)

	if !strings.Contains(problem, "(connected zone_0_0 zone_0_1)") {
		t.Error("Expected the authored connectivity fact")
	}
	if strings.Contains(problem, "(connected zone_0_0 zone_1_0)") {
		t.Error("Grid adjacency must be suppressed when the domain file provides facts")
	}
}
