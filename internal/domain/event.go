package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the event feed topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// feedRecord mirrors the storm event JSON published by the upstream ETL
// service on its sink topic. Footprint fields are optional extensions; the
// remaining fields are the ETL's standard output.
type feedRecord struct {
	ID        string    `json:"id"`
	EventType string    `json:"type"`
	Geo       Geo       `json:"geo"`
	Magnitude float64   `json:"magnitude"`
	Unit      string    `json:"unit"`
	Severity  *string   `json:"severity"`
	BeginTime time.Time `json:"begin_time"`

	FootprintRadiusMiles float64 `json:"footprint_radius_miles"`
	FootprintPolygon     []Geo   `json:"footprint_polygon"`
}

// HailEvent is the immutable, alertable view of an upstream storm event.
type HailEvent struct {
	ID         string
	Time       time.Time
	Footprint  Geometry
	SizeInches float64
	Severity   string
	Severe     bool
}

// ParseHailEvent deserializes a feed message into a HailEvent. Events whose
// type is not "hail" fail with ErrEventIgnored. When the feed carries no
// explicit footprint, a circle of defaultRadiusMiles around the event
// coordinates applies.
func ParseHailEvent(raw RawEvent, defaultRadiusMiles float64) (HailEvent, error) {
	var rec feedRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return HailEvent{}, fmt.Errorf("parse feed event: %w", err)
	}

	if rec.EventType != "hail" {
		return HailEvent{}, fmt.Errorf("event type %q: %w", rec.EventType, ErrEventIgnored)
	}
	if rec.ID == "" {
		return HailEvent{}, fmt.Errorf("parse feed event: missing id")
	}

	severity := ""
	if rec.Severity != nil {
		severity = *rec.Severity
	}

	eventTime := rec.BeginTime
	if eventTime.IsZero() {
		eventTime = raw.Timestamp
	}

	return HailEvent{
		ID:         rec.ID,
		Time:       eventTime,
		Footprint:  footprintOf(rec, defaultRadiusMiles),
		SizeInches: rec.Magnitude,
		Severity:   severity,
		Severe:     severity == "severe" || severity == "extreme",
	}, nil
}

func footprintOf(rec feedRecord, defaultRadiusMiles float64) Geometry {
	if len(rec.FootprintPolygon) >= 3 {
		return Polygon(rec.FootprintPolygon)
	}
	radius := rec.FootprintRadiusMiles
	if radius <= 0 {
		radius = defaultRadiusMiles
	}
	return Circle(rec.Geo, radius)
}
