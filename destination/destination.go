// Package destination defines the export destination boundary.
//
// A destination exports one finished record to one external repository.
// The runtime owns destination lifecycle; users provide configuration only.
package destination

import (
	"context"

	"github.com/datasophos/NexusLIMS-sub001/types"
)

// Priority bounds. Higher priority runs earlier; a destination at priority P
// can observe the results of every destination with priority > P through the
// export context.
const (
	MinPriority = 0
	MaxPriority = 1000
)

// Destination exports one record to one external repository.
//
// Implementations are resolved once at startup and reused across export
// runs; all per-run state lives in the ExportContext, never on the
// destination value.
type Destination interface {
	// Name is the stable, unique identifier (e.g. "cdcs").
	Name() string

	// Priority orders execution, MinPriority..MaxPriority, higher first.
	Priority() int

	// Enabled reports whether all required configuration (credentials,
	// URLs) is present. Re-evaluated per call; a disabled destination is
	// excluded from every run without being treated as a failure.
	Enabled() bool

	// Validate performs deeper, possibly expensive preflight checks
	// (reachability, credentials). Invoked by preflight tooling, not by
	// the orchestrator. nil means valid.
	Validate(ctx context.Context) error

	// Export sends the record described by ectx to the repository.
	// It must not fail by panic or hang: every failure (I/O, auth,
	// malformed response) is folded into ExportResult{Success:false}.
	// Callers are entitled to assume a non-nil result always comes back
	// in bounded time; implementations own their network timeouts.
	Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult
}

// Factory constructs a destination from process configuration.
// Factories run once during registry discovery; a factory error skips that
// destination and discovery continues.
type Factory func() (Destination, error)
