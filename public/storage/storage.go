package storage

import (
	"sync"

	"github.com/awion/cryon-soc/model"
)

// Storage keeps the most recently published classification snapshot
type Storage struct {
	snapshot  model.Snapshot
	published bool
	mutex     sync.RWMutex
}

// NewStorage creates an empty snapshot store
func NewStorage() *Storage {
	return &Storage{
		snapshot: emptySnapshot(),
	}
}

func emptySnapshot() model.Snapshot {
	return model.Snapshot{
		Records: []model.Activity{},
		Events:  []model.ClassifiedEvent{},
		Alerts:  []model.AlertRecord{},
	}
}

// Publish replaces the stored snapshot
func (s *Storage) Publish(snapshot model.Snapshot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = snapshot
	s.published = true
}

// Snapshot returns the latest snapshot and whether one has been published
func (s *Storage) Snapshot() (model.Snapshot, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.snapshot, s.published
}

// GetEvents returns up to limit classified events; limit <= 0 means all
func (s *Storage) GetEvents(limit int) []model.ClassifiedEvent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return head(s.snapshot.Events, limit)
}

// GetAlerts returns up to limit ranked alerts; limit <= 0 means all
func (s *Storage) GetAlerts(limit int) []model.AlertRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return head(s.snapshot.Alerts, limit)
}

// GetAlertsBySeverity returns the alerts of one severity, in rank order
func (s *Storage) GetAlertsBySeverity(severity model.Severity) []model.AlertRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	alerts := make([]model.AlertRecord, 0)
	for _, alert := range s.snapshot.Alerts {
		if alert.Severity == severity {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// GetRecords returns the raw records of the latest batch
func (s *Storage) GetRecords() []model.Activity {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return head(s.snapshot.Records, 0)
}

// GetStats returns the stats of the latest pass
func (s *Storage) GetStats() model.Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.snapshot.Stats
}

func head[T any](items []T, limit int) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]T, limit)
	copy(out, items[:limit])
	return out
}
