package analyzer

import (
	"testing"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() []model.Activity {
	return []model.Activity{
		login("10.0.0.1", "alice", model.StatusFailed),
		login("10.0.0.1", "alice", model.StatusFailed),
		login("192.168.1.2", "bob", model.StatusSuccess),
		download("192.168.1.3", 250),
		login("10.0.0.1", "alice", model.StatusFailed),
		upload("192.168.1.4", "198.51.100.7", 600),
		download("192.168.1.3", 20),
		model.GenericActivity{Envelope: model.Envelope{EventType: "logout", IPAddress: "192.168.1.2"}},
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	events, stats := ProcessBatch(nil, config.DefaultThresholds())
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Equal(t, model.Stats{}, stats)

	events, stats = ProcessBatch([]model.Activity{}, config.DefaultThresholds())
	assert.Empty(t, events)
	assert.Equal(t, 0, stats.TotalLogins)
	assert.Equal(t, 0, stats.FailedAttempts)
	assert.Equal(t, 0, stats.DataDownloads)
}

func TestProcessBatch_OrderAndPriorities(t *testing.T) {
	records := sampleBatch()
	events, stats := ProcessBatch(records, config.DefaultThresholds())

	require.Len(t, events, len(records))
	for i := range records {
		assert.Equal(t, records[i], events[i].Record)
	}

	expected := []model.Priority{
		model.PriorityHigh,     // external, below limit
		model.PriorityHigh,     // external, below limit
		model.PriorityNormal,   // internal success
		model.PriorityHigh,     // large download
		model.PriorityCritical, // third failure from 10.0.0.1
		model.PriorityCritical, // exfiltration at or above threshold
		model.PriorityNormal,   // small download
		model.PriorityNormal,   // logout
	}
	for i, priority := range expected {
		assert.Equal(t, priority, events[i].Priority, "event %d", i)
	}

	assert.Equal(t, model.Stats{TotalLogins: 4, FailedAttempts: 3, DataDownloads: 2}, stats)
}

func TestProcessBatch_OrderMatters(t *testing.T) {
	thresholds := config.Thresholds{FailedLoginLimit: 2, LargeDownloadThreshold: 100, DataUploadThreshold: 500}
	records := []model.Activity{
		login("192.168.1.1", "a", model.StatusFailed),
		login("192.168.1.1", "a", model.StatusFailed),
	}

	events, _ := ProcessBatch(records, thresholds)
	assert.Equal(t, model.PriorityNormal, events[0].Priority)
	assert.Equal(t, model.PriorityCritical, events[1].Priority)
}

func TestProcessBatch_Idempotent(t *testing.T) {
	records := sampleBatch()

	first, firstStats := ProcessBatch(records, config.DefaultThresholds())
	second, secondStats := ProcessBatch(records, config.DefaultThresholds())

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

func TestProcessBatch_CountersDoNotCarryAcrossBatches(t *testing.T) {
	thresholds := config.DefaultThresholds()
	batch := []model.Activity{
		login("192.168.1.50", "a", model.StatusFailed),
		login("192.168.1.50", "a", model.StatusFailed),
	}

	for i := 0; i < 3; i++ {
		events, _ := ProcessBatch(batch, thresholds)
		for _, event := range events {
			assert.Equal(t, model.PriorityNormal, event.Priority)
		}
	}
}

func TestCountCritical(t *testing.T) {
	alerts := []model.AlertRecord{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityHigh},
		{Severity: model.SeverityCritical},
	}
	assert.Equal(t, 2, CountCritical(alerts))
	assert.Equal(t, 0, CountCritical(nil))
}

func TestCountByPriority(t *testing.T) {
	events, _ := ProcessBatch(sampleBatch(), config.DefaultThresholds())
	counts := CountByPriority(events)
	assert.Equal(t, 2, counts[model.PriorityCritical])
	assert.Equal(t, 3, counts[model.PriorityHigh])
	assert.Equal(t, 3, counts[model.PriorityNormal])
}

func TestSummarize_FailedStatusOnEveryKind(t *testing.T) {
	records, err := model.DecodeActivities([]byte(`[
		{"timestamp":"t","event_type":"data_download","status":"failed","user_id":"a","ip_address":"192.168.1.4","size_mb":5},
		{"timestamp":"t","event_type":"data_upload","status":"failed","user_id":"a","ip_address":"192.168.1.4","size_mb":5},
		{"timestamp":"t","event_type":"logout","status":"failed","user_id":"a","ip_address":"192.168.1.4"}
	]`))
	require.NoError(t, err)

	stats := Summarize(records)
	assert.Equal(t, 3, stats.FailedAttempts)
	assert.Equal(t, 0, stats.TotalLogins)
	assert.Equal(t, 1, stats.DataDownloads)
}
