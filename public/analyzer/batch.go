package analyzer

import (
	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
)

// ProcessBatch classifies records in input order with a fresh counter table
// and computes the aggregate stats of the raw batch. CriticalAlerts is left at
// zero; it depends on the alert list and is filled by CountCritical.
func ProcessBatch(records []model.Activity, thresholds config.Thresholds) ([]model.ClassifiedEvent, model.Stats) {
	counters := NewCounterTable()
	events := make([]model.ClassifiedEvent, 0, len(records))

	for _, record := range records {
		verdict := Classify(record, counters, thresholds)
		events = append(events, model.ClassifiedEvent{
			Record:      record,
			Priority:    verdict.Priority,
			Rule:        verdict.Rule,
			Description: verdict.Description,
		})
	}

	return events, Summarize(records)
}

// Summarize counts how many events of each kind occurred in a batch,
// independent of how they were classified
func Summarize(records []model.Activity) model.Stats {
	var stats model.Stats

	for _, record := range records {
		switch rec := record.(type) {
		case model.LoginAttempt:
			stats.TotalLogins++
			if rec.Failed() {
				stats.FailedAttempts++
			}
		case model.DataDownload:
			stats.DataDownloads++
			if rec.Status == model.StatusFailed {
				stats.FailedAttempts++
			}
		case model.DataUpload:
			if rec.Status == model.StatusFailed {
				stats.FailedAttempts++
			}
		case model.GenericActivity:
			if rec.Status == model.StatusFailed {
				stats.FailedAttempts++
			}
		}
	}

	return stats
}

// CountCritical returns the number of Critical alerts
func CountCritical(alerts []model.AlertRecord) int {
	count := 0
	for _, alert := range alerts {
		if alert.Severity == model.SeverityCritical {
			count++
		}
	}
	return count
}

// CountByPriority tallies classified events per priority
func CountByPriority(events []model.ClassifiedEvent) map[model.Priority]int {
	counts := map[model.Priority]int{
		model.PriorityCritical: 0,
		model.PriorityHigh:     0,
		model.PriorityNormal:   0,
	}
	for _, event := range events {
		counts[event.Priority]++
	}
	return counts
}
