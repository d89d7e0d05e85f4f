package domain

import "time"

// Alert notifies downstream dispatch (SMS, pagers) that an individual has
// entered the CRITICAL category. It deliberately carries no medical detail.
type Alert struct {
	IndividualID ID           `json:"individual_id"`
	Name         string       `json:"name"`
	Category     RiskCategory `json:"risk_category"`
	UrgencyScore float64      `json:"urgency_score"`
	Position     Coordinates  `json:"position"`
	RaisedAt     time.Time    `json:"raised_at"`
}

// NewAlert builds an alert for a ranked individual, stamped with the package clock.
func NewAlert(ind Individual) Alert {
	return Alert{
		IndividualID: ind.ID,
		Name:         ind.FullName(),
		Category:     ind.RiskCategory,
		UrgencyScore: ind.UrgencyScore,
		Position:     ind.Coordinates(),
		RaisedAt:     clock.Now().UTC(),
	}
}

// NewCriticalAlerts returns alerts for individuals that are CRITICAL in
// ranked but were not CRITICAL in previous. Individuals without an ID are
// skipped because dispatch cannot address them.
func NewCriticalAlerts(previous, ranked []Individual) []Alert {
	wasCritical := make(map[ID]struct{}, len(previous))
	for _, ind := range previous {
		if ind.RiskCategory == Critical && ind.ID != None {
			wasCritical[ind.ID] = struct{}{}
		}
	}

	var alerts []Alert
	for _, ind := range ranked {
		if ind.RiskCategory != Critical || ind.ID == None {
			continue
		}
		if _, ok := wasCritical[ind.ID]; ok {
			continue
		}
		alerts = append(alerts, NewAlert(ind))
	}
	return alerts
}
