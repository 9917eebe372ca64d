package types

import "time"

// SessionMeta describes one instrument session produced by the record
// building pipeline. It is the upstream collaborator contract: the exporter
// consumes these, it never creates them.
type SessionMeta struct {
	// SessionID is the canonical session identifier, e.g. the harvester's
	// reservation id.
	SessionID string `json:"session_identifier" yaml:"session_identifier"`
	// InstrumentPID is the persistent identifier of the instrument the
	// session ran on.
	InstrumentPID string `json:"instrument_pid" yaml:"instrument_pid"`
	// Start and End bound the session's time range.
	Start time.Time `json:"time_range_start" yaml:"time_range_start"`
	End   time.Time `json:"time_range_end" yaml:"time_range_end"`
	// User is the operator identifier, when known.
	User *string `json:"user,omitempty" yaml:"user,omitempty"`
}
