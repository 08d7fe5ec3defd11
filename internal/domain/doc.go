// Package domain models user territories, hail events, and the alerts that
// connect them.
//
// # Upstream Feed
//
// Hail events arrive on the transformed-weather-data Kafka topic produced by
// the storm-data-etl service. Each message is a JSON storm event with a
// deterministic id, WGS-84 coordinates, a magnitude in inches, and a derived
// severity label on the four-level scale (minor, moderate, severe, extreme).
// Only events of type "hail" are alertable; other event types are skipped
// with [ErrEventIgnored].
//
// An event's footprint is the area the storm cell is assumed to cover. The
// feed may carry an explicit footprint_radius_miles or footprint_polygon;
// when both are absent the configured default radius applies. Polygon
// footprints are reduced to their centroid plus an enclosing radius before
// intersection testing.
//
// # Severity
//
// An event counts as severe when its feed severity is "severe" or "extreme".
// This drives the severe-only territory policy and the alert-type tie-break:
// a territory subscribed to both hail and severe alerts produces a "severe"
// alert for a severe event, never "hail".
//
// # Geometry
//
// Territories are either a circle (center + radius in statute miles) or a
// closed polygon ring of at least three vertices. Distances between
// coordinates use the haversine formula with an Earth radius of 3958.8
// miles; flat Euclidean distance drifts noticeably at the tens-of-miles
// radii territories use. Polygon containment uses ray casting with the
// boundary policy that a point equal to a vertex is inside.
//
// Degenerate geometry (zero radius, fewer than three vertices, unset mode)
// is rejected with [GeometryError] at validation and again at intersection
// time; matching never silently skips a malformed territory.
package domain
