package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEventIgnored marks a feed record that parsed cleanly but is not
// alertable (wrong event type). Callers commit and move on.
var ErrEventIgnored = errors.New("event type not alertable")

// GeometryError reports degenerate territory or footprint geometry, such as
// a zero radius or a polygon with fewer than three vertices.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "geometry: " + e.Reason
}

// FieldViolation names a single invalid field on a territory.
type FieldViolation struct {
	Field  string
	Reason string
}

// ValidationError collects every violated field from a territory create or
// update, not just the first, so callers can surface all of them at once.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Reason: reason})
}

// orNil returns the error only if violations were recorded, so callers can
// write `return v.orNil()` without a nil-interface trap.
func (e *ValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
