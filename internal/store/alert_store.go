package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
)

// AlertStore persists territory alerts. The unique constraint over
// (territory_id, hail_event_id) lives in the database, not here: a
// duplicate check in application code alone would not survive two
// concurrent matching passes.
type AlertStore struct {
	db *DB
}

// NewAlertStore returns an AlertStore bound to the database.
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db}
}

const insertAlertSQL = `
    INSERT INTO territory_alerts (territory_id, hail_event_id, alert_type, message, sent_at)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (territory_id, hail_event_id) DO NOTHING
    RETURNING id
`

// Insert creates the alert row unless one already exists for the
// (territory, event) pair. The duplicate case returns false with no error;
// it means another pass already handled the pair. Any other failure is a
// real storage error.
func (s *AlertStore) Insert(ctx context.Context, alert *domain.TerritoryAlert) (bool, error) {
	row := s.db.pool.QueryRow(ctx, insertAlertSQL,
		alert.TerritoryID, alert.HailEventID, string(alert.AlertType), alert.Message, alert.SentAt,
	)
	if err := row.Scan(&alert.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returned no row: duplicate pair.
			return false, nil
		}
		return false, fmt.Errorf("insert alert: %w", err)
	}
	return true, nil
}

const markReadSQL = `
    UPDATE territory_alerts
    SET read = TRUE, read_at = now()
    WHERE id = $1 AND NOT read
`

// MarkRead flips an alert to read. Already-read alerts keep their original
// read_at stamp; rows never mutate otherwise.
func (s *AlertStore) MarkRead(ctx context.Context, id int64) error {
	tag, err := s.db.pool.Exec(ctx, markReadSQL, id)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listAlertsByTerritorySQL = `
    SELECT id, territory_id, hail_event_id, alert_type, message, read, read_at, sent_at
    FROM territory_alerts
    WHERE territory_id = $1
    ORDER BY sent_at DESC, id DESC
`

// ListByTerritory returns a territory's alert history, newest first.
func (s *AlertStore) ListByTerritory(ctx context.Context, territoryID int64) ([]domain.TerritoryAlert, error) {
	rows, err := s.db.pool.Query(ctx, listAlertsByTerritorySQL, territoryID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.TerritoryAlert, 0)
	for rows.Next() {
		var (
			a         domain.TerritoryAlert
			alertType string
		)
		if err := rows.Scan(&a.ID, &a.TerritoryID, &a.HailEventID, &alertType, &a.Message, &a.Read, &a.ReadAt, &a.SentAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.AlertType = domain.AlertType(alertType)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
