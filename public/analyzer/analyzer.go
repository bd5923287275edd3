package analyzer

import (
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/metrics"
	"github.com/sirupsen/logrus"
)

// Analyzer runs full classification passes against the active thresholds
type Analyzer struct {
	thresholds *config.ThresholdsHolder
	metrics    *metrics.Recorder
	logger     *logrus.Logger
	now        func() time.Time
}

// NewAnalyzer creates a new security event analyzer
func NewAnalyzer(thresholds *config.ThresholdsHolder, recorder *metrics.Recorder, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		thresholds: thresholds,
		metrics:    recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze classifies one batch and builds the snapshot consumers render.
// The thresholds snapshot is taken once so a concurrent settings save cannot
// change rules halfway through the batch. When derive is set the alert list
// is built from the flagged events instead of the supplied alerts.
func (a *Analyzer) Analyze(records []model.Activity, alerts []model.AlertRecord, derive bool) model.Snapshot {
	start := a.now()
	thresholds := a.thresholds.Snapshot()

	if records == nil {
		records = []model.Activity{}
	}

	events, stats := ProcessBatch(records, thresholds)

	if derive {
		alerts = DeriveAlerts(events)
	}
	ranked := Rank(alerts)
	stats.CriticalAlerts = CountCritical(ranked)

	counts := CountByPriority(events)
	a.metrics.ObservePass(a.now().Sub(start), counts, stats)

	a.logger.WithFields(logrus.Fields{
		"records":  len(records),
		"critical": counts[model.PriorityCritical],
		"high":     counts[model.PriorityHigh],
		"alerts":   len(ranked),
	}).Debug("classification pass complete")

	return model.Snapshot{
		GeneratedAt: start,
		Records:     records,
		Events:      events,
		Alerts:      ranked,
		Stats:       stats,
	}
}

// Thresholds returns the snapshot the next pass will use
func (a *Analyzer) Thresholds() config.Thresholds {
	return a.thresholds.Snapshot()
}
