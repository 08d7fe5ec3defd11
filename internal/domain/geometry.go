package domain

import (
	"fmt"
	"math"
)

// earthRadiusMiles is the mean Earth radius in statute miles.
const earthRadiusMiles = 3958.8

// milesPerDegreeLat is the north-south distance of one degree of latitude.
const milesPerDegreeLat = earthRadiusMiles * math.Pi / 180

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeometryKind tags which of the two geometry modes a Geometry carries.
type GeometryKind string

const (
	GeometryCircle  GeometryKind = "circle"
	GeometryPolygon GeometryKind = "polygon"
)

// Geometry is a tagged variant: a circle (Center + RadiusMiles) or a closed
// polygon ring (Vertices, no repeated closing vertex). Exactly one mode is
// populated; Validate enforces it.
type Geometry struct {
	Kind        GeometryKind `json:"kind"`
	Center      Geo          `json:"center,omitempty"`
	RadiusMiles float64      `json:"radius_miles,omitempty"`
	Vertices    []Geo        `json:"vertices,omitempty"`
}

// Circle builds a circle geometry.
func Circle(center Geo, radiusMiles float64) Geometry {
	return Geometry{Kind: GeometryCircle, Center: center, RadiusMiles: radiusMiles}
}

// Polygon builds a polygon geometry from an ordered vertex ring.
func Polygon(vertices []Geo) Geometry {
	return Geometry{Kind: GeometryPolygon, Vertices: vertices}
}

// Validate rejects degenerate geometry with a *GeometryError.
func (g Geometry) Validate() error {
	switch g.Kind {
	case GeometryCircle:
		if len(g.Vertices) > 0 {
			return &GeometryError{Reason: "circle geometry carries polygon vertices"}
		}
		if g.RadiusMiles <= 0 {
			return &GeometryError{Reason: fmt.Sprintf("radius must be positive, got %g", g.RadiusMiles)}
		}
	case GeometryPolygon:
		if g.RadiusMiles != 0 {
			return &GeometryError{Reason: "polygon geometry carries a radius"}
		}
		if len(g.Vertices) < 3 {
			return &GeometryError{Reason: fmt.Sprintf("polygon needs at least 3 vertices, got %d", len(g.Vertices))}
		}
	default:
		return &GeometryError{Reason: "geometry mode not set"}
	}
	return nil
}

// HaversineMiles returns the great-circle distance between two coordinates.
func HaversineMiles(a, b Geo) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Intersects reports whether an event footprint overlaps a territory.
// Both geometries are validated first; degenerate input fails with
// *GeometryError rather than being silently skipped.
//
// Circle territories use the haversine distance between centers against the
// sum of the radii. Polygon territories test the footprint centroid with ray
// casting and, because a storm can overlap a territory without its center
// falling inside, also compare the centroid's distance to the nearest
// polygon edge against the footprint radius.
func Intersects(territory, footprint Geometry) (bool, error) {
	if err := territory.Validate(); err != nil {
		return false, fmt.Errorf("territory: %w", err)
	}
	if err := footprint.Validate(); err != nil {
		return false, fmt.Errorf("footprint: %w", err)
	}

	center, radius := footprint.enclosingCircle()

	switch territory.Kind {
	case GeometryCircle:
		return HaversineMiles(territory.Center, center) <= territory.RadiusMiles+radius, nil
	default:
		if pointInPolygon(center, territory.Vertices) {
			return true, nil
		}
		return minEdgeDistanceMiles(center, territory.Vertices) <= radius, nil
	}
}

// enclosingCircle reduces a geometry to a center point and radius. Circles
// map to themselves; polygons reduce to their vertex centroid plus the
// largest centroid-to-vertex distance.
func (g Geometry) enclosingCircle() (Geo, float64) {
	if g.Kind == GeometryCircle {
		return g.Center, g.RadiusMiles
	}

	var c Geo
	for _, v := range g.Vertices {
		c.Lat += v.Lat
		c.Lon += v.Lon
	}
	c.Lat /= float64(len(g.Vertices))
	c.Lon /= float64(len(g.Vertices))

	var radius float64
	for _, v := range g.Vertices {
		radius = math.Max(radius, HaversineMiles(c, v))
	}
	return c, radius
}

// pointInPolygon runs a ray cast over the vertex ring. Winding order does
// not matter. Boundary policy: a point equal to a vertex is inside.
func pointInPolygon(p Geo, vertices []Geo) bool {
	for _, v := range vertices {
		if v == p {
			return true
		}
	}

	inside := false
	j := len(vertices) - 1
	for i := range vertices {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLon := vi.Lon + (p.Lat-vi.Lat)/(vj.Lat-vi.Lat)*(vj.Lon-vi.Lon)
			if p.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// minEdgeDistanceMiles returns the smallest distance from p to any polygon
// edge, using a local equirectangular projection around p. The projection
// error is negligible at the footprint scales involved (well under storm
// footprint radii for segments spanning tens of miles).
func minEdgeDistanceMiles(p Geo, vertices []Geo) float64 {
	milesPerDegreeLon := milesPerDegreeLat * math.Cos(p.Lat*math.Pi/180)

	project := func(g Geo) (x, y float64) {
		return (g.Lon - p.Lon) * milesPerDegreeLon, (g.Lat - p.Lat) * milesPerDegreeLat
	}

	minDist := math.Inf(1)
	j := len(vertices) - 1
	for i := range vertices {
		ax, ay := project(vertices[j])
		bx, by := project(vertices[i])
		minDist = math.Min(minDist, pointToSegment(ax, ay, bx, by))
		j = i
	}
	return minDist
}

// pointToSegment returns the distance from the origin to segment (a, b) in
// the projected plane.
func pointToSegment(ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(ax, ay)
	}
	t := -(ax*dx + ay*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(ax+t*dx, ay+t*dy)
}
