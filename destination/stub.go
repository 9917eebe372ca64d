package destination

import (
	"context"

	"github.com/datasophos/NexusLIMS-sub001/types"
)

// StubDestination is a test destination with scripted behavior.
// Tracks call statistics for test assertions.
type StubDestination struct {
	// DestName is returned by Name.
	DestName string
	// DestPriority is returned by Priority.
	DestPriority int
	// Disabled inverts Enabled (zero value means enabled).
	Disabled bool
	// ValidateErr, if non-nil, is returned by Validate.
	ValidateErr error

	// Fail makes Export return a failed result with FailMessage.
	Fail bool
	// FailMessage is the error message for failed results.
	FailMessage string
	// RecordID / RecordURL populate successful results.
	RecordID  string
	RecordURL string

	// ExportFunc, if set, replaces the scripted Export behavior entirely.
	ExportFunc func(ctx context.Context, ectx *types.ExportContext) *types.ExportResult

	// ExportCalls counts Export invocations.
	ExportCalls int
	// VisibleAtCall records, per Export call, the destination names already
	// present in the context when this destination ran. Used to assert the
	// result-visibility ordering guarantee.
	VisibleAtCall [][]string
}

// NewStubDestination creates an enabled stub that succeeds.
func NewStubDestination(name string, priority int) *StubDestination {
	return &StubDestination{
		DestName:     name,
		DestPriority: priority,
		RecordID:     name + "-record",
		RecordURL:    "http://stub.example/" + name,
	}
}

// Name implements Destination.
func (s *StubDestination) Name() string { return s.DestName }

// Priority implements Destination.
func (s *StubDestination) Priority() int { return s.DestPriority }

// Enabled implements Destination.
func (s *StubDestination) Enabled() bool { return !s.Disabled }

// Validate implements Destination.
func (s *StubDestination) Validate(_ context.Context) error { return s.ValidateErr }

// Export implements Destination with the scripted outcome.
func (s *StubDestination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	s.ExportCalls++

	var visible []string
	for _, r := range ectx.PreviousResults() {
		visible = append(visible, r.Destination)
	}
	s.VisibleAtCall = append(s.VisibleAtCall, visible)

	if s.ExportFunc != nil {
		return s.ExportFunc(ctx, ectx)
	}
	if s.Fail {
		msg := s.FailMessage
		if msg == "" {
			msg = "stub failure"
		}
		return types.NewFailure(s.DestName, msg)
	}
	return types.NewSuccess(s.DestName, s.RecordID, s.RecordURL)
}

// Verify StubDestination implements the destination interface.
var _ Destination = (*StubDestination)(nil)
