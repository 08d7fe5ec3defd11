package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
)

// TerritoryStore provides CRUD over user_territories. There is no
// in-process caching: the territory count is small and correctness of the
// matching read matters more than read latency.
type TerritoryStore struct {
	db *DB
}

// NewTerritoryStore returns a TerritoryStore bound to the database.
func NewTerritoryStore(db *DB) *TerritoryStore {
	return &TerritoryStore{db: db}
}

const territoryColumns = `
    id, user_id, name, geometry_kind, center_lat, center_lon, radius_miles,
    polygon_vertices, alert_hail, alert_severe, min_hail_size_inches,
    email_enabled, sms_enabled, push_enabled, active, created_at, updated_at
`

const createTerritorySQL = `
    INSERT INTO user_territories (
        user_id, name, geometry_kind, center_lat, center_lon, radius_miles,
        polygon_vertices, alert_hail, alert_severe, min_hail_size_inches,
        email_enabled, sms_enabled, push_enabled, active
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE)
    RETURNING id, active, created_at, updated_at
`

// Create validates and persists a new territory, filling in the generated
// id and timestamps. Invalid input fails with *domain.ValidationError
// before any write happens.
func (s *TerritoryStore) Create(ctx context.Context, t *domain.Territory) error {
	if err := t.Validate(); err != nil {
		return err
	}

	centerLat, centerLon, radius, vertices, err := geometryColumns(t.Geometry)
	if err != nil {
		return err
	}

	row := s.db.pool.QueryRow(ctx, createTerritorySQL,
		t.UserID, t.Name, string(t.Geometry.Kind), centerLat, centerLon, radius,
		vertices, t.Policy.AlertHail, t.Policy.AlertSevere, t.Policy.MinHailSizeInches,
		t.Policy.EmailEnabled, t.Policy.SMSEnabled, t.Policy.PushEnabled,
	)
	if err := row.Scan(&t.ID, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create territory: %w", err)
	}
	return nil
}

const getTerritorySQL = `
    SELECT ` + territoryColumns + `
    FROM user_territories
    WHERE id = $1 AND user_id = $2
`

// Get fetches one territory scoped to its owning user.
func (s *TerritoryStore) Get(ctx context.Context, id, userID int64) (domain.Territory, error) {
	row := s.db.pool.QueryRow(ctx, getTerritorySQL, id, userID)
	t, err := scanTerritory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Territory{}, ErrNotFound
	}
	if err != nil {
		return domain.Territory{}, fmt.Errorf("get territory: %w", err)
	}
	return t, nil
}

const updateTerritorySQL = `
    UPDATE user_territories
    SET name = $3, geometry_kind = $4, center_lat = $5, center_lon = $6,
        radius_miles = $7, polygon_vertices = $8, alert_hail = $9,
        alert_severe = $10, min_hail_size_inches = $11, email_enabled = $12,
        sms_enabled = $13, push_enabled = $14, updated_at = now()
    WHERE id = $1 AND user_id = $2
    RETURNING updated_at
`

// Update validates and rewrites the territory's geometry, thresholds, and
// channel flags. The active flag is not touched here; Deactivate owns it.
func (s *TerritoryStore) Update(ctx context.Context, t *domain.Territory) error {
	if err := t.Validate(); err != nil {
		return err
	}

	centerLat, centerLon, radius, vertices, err := geometryColumns(t.Geometry)
	if err != nil {
		return err
	}

	row := s.db.pool.QueryRow(ctx, updateTerritorySQL,
		t.ID, t.UserID, t.Name, string(t.Geometry.Kind), centerLat, centerLon, radius,
		vertices, t.Policy.AlertHail, t.Policy.AlertSevere, t.Policy.MinHailSizeInches,
		t.Policy.EmailEnabled, t.Policy.SMSEnabled, t.Policy.PushEnabled,
	)
	if err := row.Scan(&t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update territory: %w", err)
	}
	return nil
}

const deactivateTerritorySQL = `
    UPDATE user_territories
    SET active = FALSE, updated_at = now()
    WHERE id = $1 AND user_id = $2
`

// Deactivate soft-deletes a territory. The row stays so historical alerts
// keep a valid reference; it simply stops matching.
func (s *TerritoryStore) Deactivate(ctx context.Context, id, userID int64) error {
	tag, err := s.db.pool.Exec(ctx, deactivateTerritorySQL, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate territory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listActiveTerritoriesSQL = `
    SELECT ` + territoryColumns + `
    FROM user_territories
    WHERE active
    ORDER BY id
`

// ListActive returns every active territory system-wide in id order. The
// matcher consumes this; an event applies globally so there is no per-user
// filter.
func (s *TerritoryStore) ListActive(ctx context.Context) ([]domain.Territory, error) {
	rows, err := s.db.pool.Query(ctx, listActiveTerritoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list active territories: %w", err)
	}
	defer rows.Close()

	territories := make([]domain.Territory, 0)
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		territories = append(territories, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active territories: %w", err)
	}
	return territories, nil
}

// geometryColumns flattens the tagged geometry variant into the nullable
// column set of the single-table layout.
func geometryColumns(g domain.Geometry) (centerLat, centerLon, radius *float64, vertices []byte, err error) {
	switch g.Kind {
	case domain.GeometryCircle:
		lat, lon, r := g.Center.Lat, g.Center.Lon, g.RadiusMiles
		return &lat, &lon, &r, nil, nil
	case domain.GeometryPolygon:
		vertices, err = json.Marshal(g.Vertices)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode polygon vertices: %w", err)
		}
		return nil, nil, nil, vertices, nil
	default:
		return nil, nil, nil, nil, &domain.GeometryError{Reason: "geometry mode not set"}
	}
}

func scanTerritory(row pgx.Row) (domain.Territory, error) {
	var (
		t           domain.Territory
		kind        string
		centerLat   *float64
		centerLon   *float64
		radiusMiles *float64
		vertices    []byte
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&kind,
		&centerLat,
		&centerLon,
		&radiusMiles,
		&vertices,
		&t.Policy.AlertHail,
		&t.Policy.AlertSevere,
		&t.Policy.MinHailSizeInches,
		&t.Policy.EmailEnabled,
		&t.Policy.SMSEnabled,
		&t.Policy.PushEnabled,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Territory{}, err
	}

	switch domain.GeometryKind(kind) {
	case domain.GeometryCircle:
		if centerLat == nil || centerLon == nil || radiusMiles == nil {
			return domain.Territory{}, fmt.Errorf("territory %d: circle columns are null", t.ID)
		}
		t.Geometry = domain.Circle(domain.Geo{Lat: *centerLat, Lon: *centerLon}, *radiusMiles)
	case domain.GeometryPolygon:
		var ring []domain.Geo
		if err := json.Unmarshal(vertices, &ring); err != nil {
			return domain.Territory{}, fmt.Errorf("territory %d: decode polygon vertices: %w", t.ID, err)
		}
		t.Geometry = domain.Polygon(ring)
	default:
		return domain.Territory{}, fmt.Errorf("territory %d: unknown geometry kind %q", t.ID, kind)
	}

	return t, nil
}
