package model

import (
	"strings"
	"time"
)

// Severity represents the severity level of a pre-classified alert record
type Severity string

// Severity levels
const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ParseSeverity converts a string to a Severity type. Unrecognised values are
// returned unchanged so that ranking can place them after Low.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return Severity(s)
	}
}

// Rank returns the sort position of the severity, Critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Known reports whether the severity is one of the four recognised levels
func (s Severity) Known() bool {
	return s.Rank() < 4
}

// Priority is the output of live classification
type Priority string

// Priority levels
const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
)

// Rank returns the sort position of the priority, CRITICAL first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

// Higher reports whether p is more urgent than other
func (p Priority) Higher(other Priority) bool {
	return p.Rank() < other.Rank()
}

// AlertRecord is an alert produced by an external alert source or derived
// from classified events.
type AlertRecord struct {
	ID          string   `json:"id,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// ClassifiedEvent pairs a record with the priority assigned to it during a pass.
// Rule and Description are empty for NORMAL events.
type ClassifiedEvent struct {
	Record      Activity `json:"record"`
	Priority    Priority `json:"priority"`
	Rule        string   `json:"rule,omitempty"`
	Description *string  `json:"description"`
}

// Stats holds the aggregate counters shown on the dashboard
type Stats struct {
	TotalLogins    int `json:"totalLogins"`
	FailedAttempts int `json:"failedAttempts"`
	DataDownloads  int `json:"dataDownloads"`
	CriticalAlerts int `json:"criticalAlerts"`
}

// Snapshot is the result of one classification pass, ready for rendering
type Snapshot struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Records     []Activity        `json:"records"`
	Events      []ClassifiedEvent `json:"events"`
	Alerts      []AlertRecord     `json:"alerts"`
	Stats       Stats             `json:"stats"`
}
