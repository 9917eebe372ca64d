// Package export orchestrates record export runs.
//
// For each (file, session) pair the orchestrator builds a fresh export
// context, dispatches the registry's enabled destinations under the
// configured strategy, persists every result to the outcome log, and
// notifies any configured adapters. Dispatch is single-threaded and
// synchronous: pairs run to completion in input order, destinations in
// priority order within a pair.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datasophos/NexusLIMS-sub001/adapter"
	"github.com/datasophos/NexusLIMS-sub001/log"
	"github.com/datasophos/NexusLIMS-sub001/strategy"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// ErrLengthMismatch is returned when the file and session lists differ in
// length. This is a precondition violation: nothing is dispatched and
// nothing is written.
var ErrLengthMismatch = errors.New("file and session lists must have equal length")

// Store is the outcome log surface the orchestrator writes to.
// *outcome.Store satisfies it; tests substitute a recorder.
type Store interface {
	InsertResult(ctx context.Context, sessionID string, r *types.ExportResult) error
}

// Dispatcher hands an export context to the ordered enabled destinations.
// *destination.Registry satisfies it.
type Dispatcher interface {
	ExportToAll(ctx context.Context, ectx *types.ExportContext, strat strategy.Strategy) ([]*types.ExportResult, error)
}

// Orchestrator runs export batches.
type Orchestrator struct {
	registry Dispatcher
	store    Store
	strategy strategy.Strategy
	logger   *log.Logger
	adapters []adapter.Adapter
}

// New creates an orchestrator. Adapters are optional; a nil store disables
// persistence (useful for dry runs).
func New(registry Dispatcher, store Store, strat strategy.Strategy, logger *log.Logger, adapters ...adapter.Adapter) *Orchestrator {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		strategy: strat,
		logger:   logger,
		adapters: adapters,
	}
}

// ExportRecords exports each (file, session) pair in input order and returns
// a per-file result list.
//
// Mismatched list lengths and an unknown strategy name are precondition
// violations raised before any destination runs. A failed outcome write
// propagates immediately with the results accumulated so far; losing an
// audit row silently is worse than failing loudly. Already-returned results
// are never retroactively changed.
func (o *Orchestrator) ExportRecords(ctx context.Context, files []string, sessions []types.SessionMeta) (map[string][]*types.ExportResult, error) {
	if len(files) != len(sessions) {
		return nil, fmt.Errorf("%w: %d files, %d sessions", ErrLengthMismatch, len(files), len(sessions))
	}
	if _, err := strategy.Parse(string(o.strategy)); err != nil {
		return nil, err
	}

	results := make(map[string][]*types.ExportResult, len(files))
	for i, file := range files {
		session := sessions[i]
		sessionLog := o.logger.ForSession(session.SessionID, session.InstrumentPID)

		ectx := types.NewExportContext(file, session)
		fileResults, err := o.registry.ExportToAll(ctx, ectx, o.strategy)
		if err != nil {
			return results, err
		}
		results[file] = fileResults

		if o.store != nil {
			for _, r := range fileResults {
				if err := o.store.InsertResult(ctx, session.SessionID, r); err != nil {
					return results, fmt.Errorf("persist outcome for %s: %w", file, err)
				}
			}
		}

		succeeded := strategy.Succeeded(o.strategy, fileResults)
		sessionLog.Info("export run finished", map[string]any{
			"file":         file,
			"strategy":     string(o.strategy),
			"destinations": len(fileResults),
			"succeeded":    succeeded,
		})

		o.notify(ctx, sessionLog, file, session, fileResults, succeeded)
	}
	return results, nil
}

// notify publishes an export-completed event to every adapter. Adapter
// failures are logged and dropped; they never affect results.
func (o *Orchestrator) notify(ctx context.Context, logger *log.Logger, file string, session types.SessionMeta, results []*types.ExportResult, succeeded bool) {
	if len(o.adapters) == 0 {
		return
	}

	event := &adapter.ExportCompletedEvent{
		EventType:     adapter.EventTypeExportCompleted,
		SessionID:     session.SessionID,
		InstrumentPID: session.InstrumentPID,
		FilePath:      file,
		Strategy:      string(o.strategy),
		Succeeded:     succeeded,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		event.Destinations = append(event.Destinations, r.Destination)
		if r.Success {
			event.SuccessCount++
		} else {
			event.FailureCount++
		}
	}

	for _, a := range o.adapters {
		if err := a.Publish(ctx, event); err != nil {
			logger.Warn("export notification failed", map[string]any{
				"file":  file,
				"error": err.Error(),
			})
		}
	}
}

// WasSuccessfullyExported reports whether the given file has at least one
// successful result in the map returned by ExportRecords. A file absent
// from the map answers false.
func WasSuccessfullyExported(file string, results map[string][]*types.ExportResult) bool {
	for _, r := range results[file] {
		if r.Success {
			return true
		}
	}
	return false
}
