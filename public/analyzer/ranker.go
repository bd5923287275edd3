package analyzer

import (
	"sort"

	"github.com/awion/cryon-soc/model"
	"github.com/google/uuid"
)

// Rank returns a copy of alerts ordered Critical first. The sort is stable so
// alerts of equal severity keep their relative order; unrecognised severities
// sort after Low.
func Rank(alerts []model.AlertRecord) []model.AlertRecord {
	ranked := make([]model.AlertRecord, len(alerts))
	copy(ranked, alerts)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity.Rank() < ranked[j].Severity.Rank()
	})
	return ranked
}

// DeriveAlerts turns every flagged event into an alert record, in event order.
// CRITICAL maps to Critical and HIGH to High.
func DeriveAlerts(events []model.ClassifiedEvent) []model.AlertRecord {
	alerts := make([]model.AlertRecord, 0)

	for _, event := range events {
		var severity model.Severity
		switch event.Priority {
		case model.PriorityCritical:
			severity = model.SeverityCritical
		case model.PriorityHigh:
			severity = model.SeverityHigh
		default:
			continue
		}

		description := ""
		if event.Description != nil {
			description = *event.Description
		}

		alerts = append(alerts, model.AlertRecord{
			ID:          uuid.NewString(),
			Timestamp:   event.Record.Common().Timestamp,
			Type:        event.Rule,
			Description: description,
			Severity:    severity,
		})
	}

	return alerts
}
