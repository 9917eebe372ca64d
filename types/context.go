package types

// ExportContext is the mutable per-record state shared across destinations
// during one export run. It accumulates results as destinations execute so
// that a lower-priority destination can observe what higher-priority ones
// already did (e.g. embed a cross-link to an earlier repository record).
//
// A context is owned exclusively by one export run: created immediately
// before dispatch, discarded after the orchestrator persists its results.
// It must not be shared or reused across runs.
type ExportContext struct {
	// FilePath is the record file being exported.
	FilePath string
	// SessionID identifies the session the record describes.
	SessionID string
	// InstrumentPID is the persistent instrument identifier.
	InstrumentPID string
	// TimeRangeStart / TimeRangeEnd bound the session.
	TimeRangeStart string
	TimeRangeEnd   string
	// User is the operator identifier, when known.
	User *string
	// Metadata holds caller-supplied extra facts.
	Metadata map[string]any

	// results is append-only for the lifetime of the run. order preserves
	// insertion order; byName gives last-write-wins lookup per destination.
	order  []*ExportResult
	byName map[string]*ExportResult
}

// NewExportContext builds a fresh context for one (file, session) pair.
func NewExportContext(filePath string, session SessionMeta) *ExportContext {
	return &ExportContext{
		FilePath:       filePath,
		SessionID:      session.SessionID,
		InstrumentPID:  session.InstrumentPID,
		TimeRangeStart: session.Start.UTC().Format("2006-01-02T15:04:05Z07:00"),
		TimeRangeEnd:   session.End.UTC().Format("2006-01-02T15:04:05Z07:00"),
		User:           session.User,
		Metadata:       make(map[string]any),
		byName:         make(map[string]*ExportResult),
	}
}

// RecordResult appends a result under its destination name. A second result
// for the same destination replaces the lookup entry (last write wins) but
// the ordered history keeps both; the collection never shrinks during a run.
func (c *ExportContext) RecordResult(r *ExportResult) {
	if r == nil {
		return
	}
	c.order = append(c.order, r)
	if c.byName == nil {
		c.byName = make(map[string]*ExportResult)
	}
	c.byName[r.Destination] = r
}

// PreviousResult returns the result recorded for the named destination, if
// any. Destinations use this to observe what ran before them; a destination
// never sees its own entry because results are recorded only after Export
// returns.
func (c *ExportContext) PreviousResult(destination string) (*ExportResult, bool) {
	r, ok := c.byName[destination]
	return r, ok
}

// PreviousResults returns all recorded results in execution order.
// The returned slice is a copy; the context's history cannot be altered
// through it.
func (c *ExportContext) PreviousResults() []*ExportResult {
	out := make([]*ExportResult, len(c.order))
	copy(out, c.order)
	return out
}

// ResultCount returns how many results have been recorded so far.
func (c *ExportContext) ResultCount() int { return len(c.order) }
