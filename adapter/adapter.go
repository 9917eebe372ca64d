// Package adapter defines the notification adapter boundary.
//
// Adapters publish export completion notifications to downstream systems
// (dashboards, chat hooks, queue consumers). They run after a file's
// strategy finishes and never influence export results: a failed publish is
// logged and dropped.
package adapter

import "context"

// ExportCompletedEvent is the payload published when one file's export run
// finishes.
type ExportCompletedEvent struct {
	EventType     string   `json:"event_type"` // always "export_completed"
	SessionID     string   `json:"session_identifier"`
	InstrumentPID string   `json:"instrument_pid"`
	FilePath      string   `json:"file_path"`
	Strategy      string   `json:"strategy"`
	Succeeded     bool     `json:"succeeded"`
	Destinations  []string `json:"destinations"`
	SuccessCount  int      `json:"success_count"`
	FailureCount  int      `json:"failure_count"`
	Timestamp     string   `json:"timestamp"` // ISO 8601
}

// EventTypeExportCompleted is the EventType value for ExportCompletedEvent.
const EventTypeExportCompleted = "export_completed"

// Adapter publishes export completion events to a downstream system.
// Implementations must be safe for reuse across export runs.
type Adapter interface {
	// Publish sends an export completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ExportCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
