package alerting

import (
	"fmt"

	"github.com/couchcryptid/storm-alert-service/internal/domain"
)

// renderMessage produces the user-facing alert text for one match.
func renderMessage(t domain.Territory, event domain.HailEvent, alertType domain.AlertType) string {
	if alertType == domain.AlertTypeSevere {
		return fmt.Sprintf("Severe hail alert for %s: %.2f in. hail reported in your area (severity: %s).",
			t.Name, event.SizeInches, event.Severity)
	}
	return fmt.Sprintf("Hail alert for %s: %.2f in. hail reported in your area.",
		t.Name, event.SizeInches)
}

func subjectFor(alertType domain.AlertType) string {
	if alertType == domain.AlertTypeSevere {
		return "Severe hail alert"
	}
	return "Hail alert"
}
