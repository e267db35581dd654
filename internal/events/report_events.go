package events

import (
	"time"
)

type EventType string

const (
	EventReportGenerated     EventType = "report.generated"
	EventReportRefreshFailed EventType = "report.refresh_failed"
)

// ReportEvent is published whenever a report generation finishes, so
// downstream consumers (notification sender, activity feed) can react
// without coupling to this service.
type ReportEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	UserID      string     `json:"user_id"`
	ReportID    uint       `json:"report_id,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	// Readiness lets the notification consumer build its message without a
	// second lookup.
	CertificationReadiness int `json:"certification_readiness,omitempty"`

	// Error carries the short failure description for refresh_failed events.
	Error string `json:"error,omitempty"`
}
