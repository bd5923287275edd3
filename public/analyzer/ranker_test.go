package analyzer

import (
	"testing"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func severities(alerts []model.AlertRecord) []model.Severity {
	out := make([]model.Severity, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, alert.Severity)
	}
	return out
}

func TestRank(t *testing.T) {
	alerts := []model.AlertRecord{
		{Severity: model.SeverityLow},
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityHigh},
	}

	ranked := Rank(alerts)
	assert.Equal(t, []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityLow}, severities(ranked))

	// Input untouched
	assert.Equal(t, []model.Severity{model.SeverityLow, model.SeverityCritical, model.SeverityHigh}, severities(alerts))
}

func TestRank_Stable(t *testing.T) {
	alerts := []model.AlertRecord{
		{Description: "h1", Severity: model.SeverityHigh},
		{Description: "c1", Severity: model.SeverityCritical},
		{Description: "h2", Severity: model.SeverityHigh},
		{Description: "m1", Severity: model.SeverityMedium},
		{Description: "c2", Severity: model.SeverityCritical},
		{Description: "x1", Severity: "Informational"},
		{Description: "l1", Severity: model.SeverityLow},
	}

	ranked := Rank(alerts)
	order := make([]string, 0, len(ranked))
	for _, alert := range ranked {
		order = append(order, alert.Description)
	}
	assert.Equal(t, []string{"c1", "c2", "h1", "h2", "m1", "l1", "x1"}, order)
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(nil)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestDeriveAlerts(t *testing.T) {
	events, _ := ProcessBatch(sampleBatch(), config.DefaultThresholds())
	alerts := DeriveAlerts(events)

	require.Len(t, alerts, 5)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, RuleExternalOrigin, alerts[0].Type)
	assert.Equal(t, RuleBruteForce, alerts[3].Type)
	assert.Equal(t, model.SeverityCritical, alerts[3].Severity)
	assert.NotEmpty(t, alerts[3].ID)
	assert.NotEqual(t, alerts[3].ID, alerts[4].ID)
	assert.Equal(t, "2026-02-26T10:25:00Z", alerts[4].Timestamp)

	assert.Empty(t, DeriveAlerts(nil))
}
