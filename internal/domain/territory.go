package domain

import (
	"strings"
	"time"
)

// AlertPolicy controls which events a territory alerts on and over which
// channels the alerts go out.
type AlertPolicy struct {
	AlertHail         bool    `json:"alert_hail"`
	AlertSevere       bool    `json:"alert_severe"`
	MinHailSizeInches float64 `json:"min_hail_size_inches"`

	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

// Territory is a user-defined geographic area watched for hail. Inactive
// territories are excluded from matching but never deleted, so historical
// alerts keep a valid reference.
type Territory struct {
	ID       int64       `json:"id"`
	UserID   int64       `json:"user_id"`
	Name     string      `json:"name"`
	Geometry Geometry    `json:"geometry"`
	Policy   AlertPolicy `json:"policy"`
	Active   bool        `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the territory's invariants and reports every violated
// field in a single *ValidationError.
func (t Territory) Validate() error {
	var v ValidationError

	if t.UserID <= 0 {
		v.add("user_id", "must reference an owning user")
	}
	if strings.TrimSpace(t.Name) == "" {
		v.add("name", "must not be empty")
	}
	if t.Policy.MinHailSizeInches < 0 {
		v.add("min_hail_size_inches", "must not be negative")
	}

	switch t.Geometry.Kind {
	case GeometryCircle:
		if len(t.Geometry.Vertices) > 0 {
			v.add("geometry", "exactly one geometry mode may be set")
		}
		if t.Geometry.RadiusMiles <= 0 {
			v.add("radius_miles", "must be positive for circle territories")
		}
		v.checkCoordinate("center", t.Geometry.Center)
	case GeometryPolygon:
		if t.Geometry.RadiusMiles != 0 {
			v.add("geometry", "exactly one geometry mode may be set")
		}
		if len(t.Geometry.Vertices) < 3 {
			v.add("vertices", "polygon territories need at least 3 vertices")
		}
		for _, vert := range t.Geometry.Vertices {
			v.checkCoordinate("vertices", vert)
		}
	default:
		v.add("geometry", "one of circle or polygon mode must be set")
	}

	return v.orNil()
}

func (e *ValidationError) checkCoordinate(field string, g Geo) {
	if g.Lat < -90 || g.Lat > 90 {
		e.add(field, "latitude out of range")
	}
	if g.Lon < -180 || g.Lon > 180 {
		e.add(field, "longitude out of range")
	}
}
