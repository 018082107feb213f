package pddl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"warehouseplanner/warehouse/engine"
)

// ZoneName returns the canonical zone identifier for a cell
func ZoneName(x, y int) string {
	return fmt.Sprintf("zone_%d_%d", x, y)
}

// ZoneFor returns the zone identifier for a position
func ZoneFor(p engine.Position) string {
	return ZoneName(p.X, p.Y)
}

// ParseZone is the inverse of ZoneName. Malformed identifiers report
// ok=false instead of failing, so callers can skip bad entries.
func ParseZone(name string) (engine.Position, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 || parts[0] != "zone" {
		return engine.Position{}, false
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return engine.Position{}, false
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return engine.Position{}, false
	}
	return engine.Position{X: x, Y: y}, true
}

// EncodeOptions controls problem emission
type EncodeOptions struct {
	// IncludeConnectivity adds (connected ...) facts. The repository
	// template extraction omits them; planner invocations include them.
	IncludeConnectivity bool

	// DomainPath, when set, is scanned for externally authored connectivity
	// facts which take precedence over grid-computed adjacency.
	DomainPath string
}

// WriteProblem emits the planning problem for the current world state. The
// output is fully deterministic: object and fact order follow the grid's
// canonical cell order and the scenario's entity declaration order, so
// re-encoding an unchanged world is byte-identical.
//
// Every robot's cell is emitted as an (occupied ...) fact. Together with the
// adjacency facts this lets the planner's move rule forbid two robots from
// occupying or targeting the same cell, pushing collision avoidance into the
// encoding rather than leaving it to the executor alone.
func WriteProblem(w io.Writer, world *engine.GridWorld, robots []*engine.Robot, packages []*engine.Package, opts EncodeOptions) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "(define (problem warehouse-delivery)\n")
	fmt.Fprintf(bw, " (:domain warehouse)\n\n")

	// Objects. Identifiers are lowercased to match the parser's
	// normalization of planner output.
	fmt.Fprintf(bw, " (:objects\n")
	robotNames := make([]string, len(robots))
	for i, r := range robots {
		robotNames[i] = strings.ToLower(r.ID)
	}
	fmt.Fprintf(bw, "  %s - robot\n", strings.Join(robotNames, " "))

	pkgNames := make([]string, len(packages))
	for i, p := range packages {
		pkgNames[i] = strings.ToLower(p.ID)
	}
	fmt.Fprintf(bw, "  %s - package\n", strings.Join(pkgNames, " "))

	locations := world.Locations()
	zoneNames := make([]string, len(locations))
	for i, loc := range locations {
		zoneNames[i] = ZoneFor(loc)
	}
	fmt.Fprintf(bw, "  %s - location\n", strings.Join(zoneNames, " "))
	fmt.Fprintf(bw, " )\n\n")

	// Initial state
	fmt.Fprintf(bw, " (:init\n")
	for _, r := range robots {
		id := strings.ToLower(r.ID)
		zone := ZoneFor(r.Position)
		fmt.Fprintf(bw, "  (at-robot %s %s)\n", id, zone)
		if r.CanCarryMore() {
			fmt.Fprintf(bw, "  (robot-free %s)\n", id)
		}
		fmt.Fprintf(bw, "  (occupied %s)\n", zone)
	}

	for _, p := range packages {
		id := strings.ToLower(p.ID)
		if p.Carried {
			fmt.Fprintf(bw, "  (carrying %s %s)\n", strings.ToLower(p.CarrierID), id)
		} else {
			fmt.Fprintf(bw, "  (at-package %s %s)\n", id, ZoneFor(p.Position))
		}
	}

	for _, p := range packages {
		if p.AssignedRobotID != "" {
			fmt.Fprintf(bw, "  (assigned %s %s)\n",
				strings.ToLower(p.ID), strings.ToLower(p.AssignedRobotID))
		}
	}

	if opts.IncludeConnectivity {
		conns := [][2]string(nil)
		if opts.DomainPath != "" {
			conns = ParseConnectivity(opts.DomainPath, world)
		}
		if len(conns) > 0 {
			for _, c := range conns {
				fmt.Fprintf(bw, "  (connected %s %s)\n", c[0], c[1])
			}
		} else {
			for _, loc := range locations {
				zone := ZoneFor(loc)
				for _, d := range [4]engine.Position{{Y: 1}, {Y: -1}, {X: 1}, {X: -1}} {
					nx, ny := loc.X+d.X, loc.Y+d.Y
					if world.IsValidPosition(nx, ny) {
						fmt.Fprintf(bw, "  (connected %s %s)\n", zone, ZoneName(nx, ny))
					}
				}
			}
		}
	}
	fmt.Fprintf(bw, " )\n\n")

	// Goal conjunction
	fmt.Fprintf(bw, " (:goal (and\n")
	for _, p := range packages {
		fmt.Fprintf(bw, "  (at-package %s %s)\n", strings.ToLower(p.ID), ZoneFor(p.Destination))
	}
	fmt.Fprintf(bw, " ))\n")
	fmt.Fprintf(bw, ")\n")

	return bw.Flush()
}

// EncodeProblem renders the problem to a byte slice
func EncodeProblem(world *engine.GridWorld, robots []*engine.Robot, packages []*engine.Package, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteProblem(&buf, world, robots, packages, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteProblemFile writes the encoded problem to path
func WriteProblemFile(path string, world *engine.GridWorld, robots []*engine.Robot, packages []*engine.Package, opts EncodeOptions) error {
	data, err := EncodeProblem(world, robots, packages, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ParseConnectivity scans a domain file for connectivity facts, either raw or
// embedded in ";;" comment lines, and returns the pairs that are still valid
// under the current grid. Malformed entries and pairs touching an
// out-of-bounds or obstacle cell are skipped; a missing file yields nil.
// This keeps a static hand-authored topology consistent with a dynamically
// changing obstacle layout.
func ParseConnectivity(domainPath string, world *engine.GridWorld) [][2]string {
	f, err := os.Open(domainPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var conns [][2]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSpace(strings.TrimPrefix(line, ";;"))
		if !strings.HasPrefix(line, "(connected ") {
			continue
		}
		tokens := strings.Fields(strings.Trim(line, "()"))
		if len(tokens) < 3 {
			continue
		}
		a, b := tokens[1], tokens[2]
		pa, okA := ParseZone(a)
		pb, okB := ParseZone(b)
		if !okA || !okB {
			continue
		}
		if world != nil {
			if !world.IsValidPosition(pa.X, pa.Y) || !world.IsValidPosition(pb.X, pb.Y) {
				continue
			}
		}
		conns = append(conns, [2]string{a, b})
	}
	return conns
}
