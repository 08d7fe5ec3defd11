// Package store persists territories and alerts in Postgres via pgx.
// It owns the two tables this service writes: user_territories and
// territory_alerts. Hail events themselves belong to the upstream ingestion
// system; alerts hold only the event id.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a territory or alert lookup matches no row
// for the given id and owner. Callers translate it to their own not-found
// handling; it never wraps a storage failure.
var ErrNotFound = errors.New("not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_territories (
    id                   BIGSERIAL PRIMARY KEY,
    user_id              BIGINT NOT NULL,
    name                 TEXT NOT NULL,
    geometry_kind        TEXT NOT NULL,
    center_lat           DOUBLE PRECISION,
    center_lon           DOUBLE PRECISION,
    radius_miles         DOUBLE PRECISION,
    polygon_vertices     JSONB,
    alert_hail           BOOLEAN NOT NULL DEFAULT FALSE,
    alert_severe         BOOLEAN NOT NULL DEFAULT FALSE,
    min_hail_size_inches DOUBLE PRECISION NOT NULL DEFAULT 0,
    email_enabled        BOOLEAN NOT NULL DEFAULT FALSE,
    sms_enabled          BOOLEAN NOT NULL DEFAULT FALSE,
    push_enabled         BOOLEAN NOT NULL DEFAULT FALSE,
    active               BOOLEAN NOT NULL DEFAULT TRUE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_user_territories_active
    ON user_territories (active);

CREATE TABLE IF NOT EXISTS territory_alerts (
    id            BIGSERIAL PRIMARY KEY,
    territory_id  BIGINT NOT NULL REFERENCES user_territories (id),
    hail_event_id TEXT NOT NULL,
    alert_type    TEXT NOT NULL,
    message       TEXT NOT NULL,
    read          BOOLEAN NOT NULL DEFAULT FALSE,
    read_at       TIMESTAMPTZ,
    sent_at       TIMESTAMPTZ NOT NULL,
    CONSTRAINT territory_alerts_pair_key UNIQUE (territory_id, hail_event_id)
);

CREATE INDEX IF NOT EXISTS idx_territory_alerts_territory
    ON territory_alerts (territory_id);
`

// DB wraps a pgx connection pool shared by the stores.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist. The
// UNIQUE (territory_id, hail_event_id) constraint it installs is the
// dedup guarantee the dispatcher relies on.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool resources.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
