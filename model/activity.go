package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType identifies the kind of an activity record
type EventType string

// Event types interpreted by the classifier. Anything else passes through as
// a GenericActivity.
const (
	EventLoginAttempt EventType = "login_attempt"
	EventDataDownload EventType = "data_download"
	EventDataUpload   EventType = "data_upload"
)

// LoginStatus is the outcome of a login attempt
type LoginStatus string

// Login statuses
const (
	StatusSuccess LoginStatus = "success"
	StatusFailed  LoginStatus = "failed"
)

// Activity is one record from the log source. Each event type has its own
// variant carrying only the fields it needs.
type Activity interface {
	Kind() EventType
	Common() Envelope
}

// Envelope holds the fields shared by every activity record
type Envelope struct {
	Timestamp string    `json:"timestamp"`
	EventType EventType `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// Common returns the shared fields
func (e Envelope) Common() Envelope { return e }

// Kind returns the record's event type
func (e Envelope) Kind() EventType { return e.EventType }

// LoginAttempt is a login_attempt record
type LoginAttempt struct {
	Envelope
	Status LoginStatus `json:"status,omitempty"`
}

// Failed reports whether the attempt failed
func (l LoginAttempt) Failed() bool { return l.Status == StatusFailed }

// DataDownload is a data_download record
type DataDownload struct {
	Envelope
	SizeMB   float64     `json:"size_mb"`
	Resource string      `json:"resource,omitempty"`
	Status   LoginStatus `json:"status,omitempty"`
}

// DataUpload is a data_upload record
type DataUpload struct {
	Envelope
	SizeMB        float64     `json:"size_mb"`
	DestinationIP string      `json:"destination_ip,omitempty"`
	Status        LoginStatus `json:"status,omitempty"`
}

// GenericActivity is any record whose event type the classifier does not interpret
type GenericActivity struct {
	Envelope
	Status LoginStatus `json:"status,omitempty"`
}

// activityWire is the loose JSON shape produced by the log source
type activityWire struct {
	Timestamp     string   `json:"timestamp"`
	EventType     string   `json:"event_type"`
	Status        string   `json:"status"`
	UserID        string   `json:"user_id"`
	IPAddress     string   `json:"ip_address"`
	DestinationIP string   `json:"destination_ip"`
	SizeMB        *float64 `json:"size_mb"`
	Resource      string   `json:"resource"`
}

func (w activityWire) toActivity() Activity {
	env := Envelope{
		Timestamp: w.Timestamp,
		EventType: EventType(w.EventType),
		UserID:    w.UserID,
		IPAddress: strings.TrimSpace(w.IPAddress),
	}

	// A transfer without size_mb is treated as zero-sized
	var size float64
	if w.SizeMB != nil {
		size = *w.SizeMB
	}

	switch env.EventType {
	case EventLoginAttempt:
		return LoginAttempt{Envelope: env, Status: LoginStatus(w.Status)}
	case EventDataDownload:
		return DataDownload{Envelope: env, SizeMB: size, Resource: w.Resource, Status: LoginStatus(w.Status)}
	case EventDataUpload:
		return DataUpload{
			Envelope:      env,
			SizeMB:        size,
			DestinationIP: strings.TrimSpace(w.DestinationIP),
			Status:        LoginStatus(w.Status),
		}
	default:
		return GenericActivity{Envelope: env, Status: LoginStatus(w.Status)}
	}
}

// DecodeActivities parses a JSON array of activity records, preserving order
func DecodeActivities(data []byte) ([]Activity, error) {
	var wire []activityWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode activity records: %w", err)
	}

	records := make([]Activity, 0, len(wire))
	for _, w := range wire {
		records = append(records, w.toActivity())
	}
	return records, nil
}

// DecodeAlerts parses a JSON array of alert records and normalises severities
func DecodeAlerts(data []byte) ([]AlertRecord, error) {
	var alerts []AlertRecord
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alert records: %w", err)
	}

	for i := range alerts {
		alerts[i].Severity = ParseSeverity(string(alerts[i].Severity))
	}
	if alerts == nil {
		alerts = []AlertRecord{}
	}
	return alerts, nil
}
