// Command genevents generates synthetic hail event fixtures in the feed's
// JSON format. It round-trips every record through the actual parsing code
// so the fixtures are guaranteed to be consumable by the alerting pipeline.
//
// Usage:
//
//	go run ./cmd/genevents \
//	  -out data/mock/hail_events.json \
//	  -count 50 -center-lat 39.10 -center-lon -94.58 -spread 0.5 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
)

var baseDate = time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

// feedEvent mirrors the upstream ETL's sink topic JSON.
type feedEvent struct {
	ID        string     `json:"id"`
	EventType string     `json:"type"`
	Geo       domain.Geo `json:"geo"`
	Magnitude float64    `json:"magnitude"`
	Unit      string     `json:"unit"`
	Severity  *string    `json:"severity"`
	BeginTime time.Time  `json:"begin_time"`

	FootprintRadiusMiles float64      `json:"footprint_radius_miles,omitempty"`
	FootprintPolygon     []domain.Geo `json:"footprint_polygon,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON fixture")
	count := flag.Int("count", 50, "number of hail events to generate")
	centerLat := flag.Float64("center-lat", 39.10, "latitude the events cluster around")
	centerLon := flag.Float64("center-lon", -94.58, "longitude the events cluster around")
	spread := flag.Float64("spread", 0.5, "max degree offset from the cluster center")
	seed := flag.Int64("seed", 1, "random seed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewSource(*seed))

	events := make([]feedEvent, 0, *count)
	for i := 0; i < *count; i++ {
		events = append(events, generateEvent(rng, i, *centerLat, *centerLon, *spread))
	}

	// Round-trip through the real parser so a bad fixture never ships.
	parsed, err := parseAll(events)
	if err != nil {
		return err
	}

	if err := writeJSON(*out, events); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d events: %s", len(events), *out)

	printStats(parsed)
	return nil
}

func generateEvent(rng *rand.Rand, i int, centerLat, centerLon, spread float64) feedEvent {
	// Magnitudes skew small, like real hail reports.
	magnitude := 0.25 + rng.Float64()*rng.Float64()*3.25
	magnitude = float64(int(magnitude*100)) / 100

	severity := severityFor(magnitude)

	ev := feedEvent{
		ID:        fmt.Sprintf("hail-%08x", rng.Uint32()),
		EventType: "hail",
		Geo: domain.Geo{
			Lat: centerLat + (rng.Float64()*2-1)*spread,
			Lon: centerLon + (rng.Float64()*2-1)*spread,
		},
		Magnitude: magnitude,
		Unit:      "in",
		Severity:  &severity,
		BeginTime: baseDate.Add(time.Duration(i) * time.Minute),
	}

	// Mix in explicit footprints: some circles, some polygons, and some
	// that leave it to the consumer's default radius.
	switch rng.Intn(3) {
	case 0:
		ev.FootprintRadiusMiles = 1 + rng.Float64()*9
	case 1:
		ev.FootprintPolygon = triangleAround(ev.Geo, 0.05+rng.Float64()*0.15)
	}
	return ev
}

func severityFor(magnitude float64) string {
	switch {
	case magnitude < 0.75:
		return "minor"
	case magnitude < 1.75:
		return "moderate"
	case magnitude < 2.5:
		return "severe"
	default:
		return "extreme"
	}
}

func triangleAround(center domain.Geo, size float64) []domain.Geo {
	return []domain.Geo{
		{Lat: center.Lat + size, Lon: center.Lon},
		{Lat: center.Lat - size, Lon: center.Lon - size},
		{Lat: center.Lat - size, Lon: center.Lon + size},
	}
}

func parseAll(events []feedEvent) ([]domain.HailEvent, error) {
	parsed := make([]domain.HailEvent, 0, len(events))
	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal event %d: %w", i, err)
		}
		he, err := domain.ParseHailEvent(domain.RawEvent{Value: payload, Timestamp: baseDate}, 5)
		if err != nil {
			return nil, fmt.Errorf("event %d does not parse: %w", i, err)
		}
		parsed = append(parsed, he)
	}
	return parsed, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(events []domain.HailEvent) {
	severityCounts := map[string]int{}
	var severe int
	var maxSize float64
	var circles, polygons int

	for i := range events {
		e := &events[i]
		severityCounts[e.Severity]++
		if e.Severe {
			severe++
		}
		if e.SizeInches > maxSize {
			maxSize = e.SizeInches
		}
		switch e.Footprint.Kind {
		case domain.GeometryCircle:
			circles++
		case domain.GeometryPolygon:
			polygons++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(events))
	fmt.Printf("By severity: minor=%d, moderate=%d, severe=%d, extreme=%d\n",
		severityCounts["minor"], severityCounts["moderate"],
		severityCounts["severe"], severityCounts["extreme"])
	fmt.Printf("Severe (severe+extreme): %d\n", severe)
	fmt.Printf("Max size: %g in\n", maxSize)
	fmt.Printf("Footprints: circle=%d, polygon=%d\n", circles, polygons)
}
