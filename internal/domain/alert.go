package domain

import "time"

// AlertType labels which territory policy an alert matched on. Severe wins
// when a territory is subscribed to both.
type AlertType string

const (
	AlertTypeHail   AlertType = "hail"
	AlertTypeSevere AlertType = "severe"
)

// TerritoryAlert records one alert for one (territory, event) pair. At most
// one row exists per pair; the storage layer enforces that with a unique
// constraint, which is the sole deduplication mechanism. Rows are never
// deleted (audit trail) and mutate only to flip the read flag.
type TerritoryAlert struct {
	ID          int64     `json:"id"`
	TerritoryID int64     `json:"territory_id"`
	HailEventID string    `json:"hail_event_id"`
	AlertType   AlertType `json:"alert_type"`
	Message     string    `json:"message"`

	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
	SentAt time.Time  `json:"sent_at"`
}
