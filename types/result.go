// Package types defines core domain types for the export runtime.
//
//nolint:revive // types is a common Go package naming convention
package types

import "time"

// ExportResult is the immutable outcome of one destination attempt.
// Exactly one of the two channels is populated: a success carries the
// optional record id/url, a failure carries an error message. Values are
// never mutated after construction; treat all fields as read-only.
type ExportResult struct {
	// Success reports whether the destination accepted the record.
	Success bool `json:"success"`
	// Destination is the owning destination's stable name.
	Destination string `json:"destination_name"`
	// RecordID is the destination-assigned identifier (success only).
	RecordID *string `json:"record_id,omitempty"`
	// RecordURL is a direct link to the exported artifact (success only).
	RecordURL *string `json:"record_url,omitempty"`
	// ErrorMessage describes the failure (failure only).
	ErrorMessage *string `json:"error_message,omitempty"`
	// Timestamp is when the result was constructed.
	Timestamp time.Time `json:"timestamp"`
	// Metadata holds destination-specific extra facts, e.g. whether a
	// cross-link to another destination was embedded.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSuccess builds a successful result for the named destination.
// recordID and recordURL may be empty; empty values are stored as nil.
func NewSuccess(destination, recordID, recordURL string) *ExportResult {
	r := &ExportResult{
		Success:     true,
		Destination: destination,
		Timestamp:   time.Now().UTC(),
	}
	if recordID != "" {
		r.RecordID = &recordID
	}
	if recordURL != "" {
		r.RecordURL = &recordURL
	}
	return r
}

// NewFailure builds a failed result for the named destination.
func NewFailure(destination, errorMessage string) *ExportResult {
	return &ExportResult{
		Success:      false,
		Destination:  destination,
		ErrorMessage: &errorMessage,
		Timestamp:    time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the result carrying the given metadata map.
// The receiver is left untouched; results stay immutable after they are
// handed to the strategy executor.
func (r *ExportResult) WithMetadata(metadata map[string]any) *ExportResult {
	clone := *r
	clone.Metadata = make(map[string]any, len(metadata))
	for k, v := range metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// Error returns the failure message, or "" for a successful result.
func (r *ExportResult) Error() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}
