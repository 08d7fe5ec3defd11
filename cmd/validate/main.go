// Command validate checks a territories JSON export for schema and geometry
// integrity before it is loaded into the database. It runs the same
// validation the service applies on write, plus a geometry probe that
// catches territories the matcher would silently exclude.
//
// Usage:
//
//	go run ./cmd/validate -territories data/territories.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	territoriesPath := flag.String("territories", "", "path to territories JSON file")
	flag.Parse()

	if *territoriesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*territoriesPath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Territory Integrity Validation ===")
	fmt.Println()

	territories, err := loadTerritories(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load territories: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(territories),
		validateGeometry(territories),
		validatePolicies(territories),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d territories\n", len(territories))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadTerritories(path string) ([]domain.Territory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var territories []domain.Territory
	if err := json.Unmarshal(data, &territories); err != nil {
		return nil, err
	}
	return territories, nil
}

// ── Phase 1: Schema ──
// Runs the same validation the write path applies.

func validateSchema(territories []domain.Territory) *phase {
	p := &phase{name: "Phase 1: Schema (field validation)"}

	for i := range territories {
		t := &territories[i]
		if err := t.Validate(); err != nil {
			p.errorf("territory %d (%q): %v", i, t.Name, err)
		}
	}
	return p
}

// ── Phase 2: Geometry ──
// Probes each territory with a tiny footprint at its own reference point.
// A territory that cannot match its own location would be silently excluded
// by the matcher at runtime; better to catch it here.

func validateGeometry(territories []domain.Territory) *phase {
	p := &phase{name: "Phase 2: Geometry (self-probe)"}

	for i := range territories {
		t := &territories[i]

		probe := domain.Circle(referencePoint(t.Geometry), 0.1)
		hit, err := domain.Intersects(t.Geometry, probe)
		if err != nil {
			p.errorf("territory %d (%q): geometry not evaluable: %v", i, t.Name, err)
			continue
		}
		if !hit {
			p.errorf("territory %d (%q): does not contain its own reference point", i, t.Name)
		}
	}
	return p
}

func referencePoint(g domain.Geometry) domain.Geo {
	if g.Kind == domain.GeometryCircle {
		return g.Center
	}
	// Vertex mean is inside for convex rings, and for concave ones a miss
	// just flags the territory for a manual look.
	var lat, lon float64
	for _, v := range g.Vertices {
		lat += v.Lat
		lon += v.Lon
	}
	n := float64(len(g.Vertices))
	if n == 0 {
		return domain.Geo{}
	}
	return domain.Geo{Lat: lat / n, Lon: lon / n}
}

// ── Phase 3: Policies ──
// Flags territories that would never alert or alert into the void.

func validatePolicies(territories []domain.Territory) *phase {
	p := &phase{name: "Phase 3: Policies (reachability)"}

	for i := range territories {
		t := &territories[i]
		if !t.Policy.AlertHail && !t.Policy.AlertSevere {
			p.errorf("territory %d (%q): no alert types enabled, will never match", i, t.Name)
		}
		if !t.Policy.EmailEnabled && !t.Policy.SMSEnabled && !t.Policy.PushEnabled {
			p.errorf("territory %d (%q): no channels enabled, alerts would only land in history", i, t.Name)
		}
	}
	return p
}
