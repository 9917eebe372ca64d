// Package strategy implements the completion strategies for an export run.
//
// A strategy decides how far down the ordered destination list an export run
// proceeds and how the batch outcome is interpreted. Dispatch is strictly
// sequential: each destination's result is recorded into the export context
// before the next destination runs, so later (lower-priority) destinations
// can observe earlier results.
package strategy

import (
	"context"
	"fmt"

	"github.com/datasophos/NexusLIMS-sub001/types"
)

// Strategy names a completion policy.
type Strategy string

const (
	// All invokes every destination regardless of individual failures.
	// The batch counts as successful only if every result succeeded.
	All Strategy = "all"
	// FirstSuccess invokes destinations in order and stops immediately
	// after the first successful result.
	FirstSuccess Strategy = "firstSuccess"
	// BestEffort dispatches identically to All; the batch counts as
	// successful if at least one result succeeded.
	BestEffort Strategy = "bestEffort"
)

// ErrUnknownStrategy is returned for strategy names outside the known set.
// This is a programming error: it aborts the whole batch before any
// destination runs.
var ErrUnknownStrategy = fmt.Errorf("unknown export strategy")

// Parse validates a strategy name from configuration.
func Parse(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case All, FirstSuccess, BestEffort:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q (want all, firstSuccess, or bestEffort)", ErrUnknownStrategy, name)
	}
}

// Destination is the capability the executor needs from a destination.
// It is a subset of the destination package's interface, declared here so
// the executor depends only on what it calls.
type Destination interface {
	Name() string
	Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult
}

// Execute runs the ordered destination list under the given strategy and
// returns the results produced, in dispatch order. Destinations are visited
// strictly in the supplied order; no reordering happens here.
//
// After each destination returns, its result is recorded into ectx before
// the next destination is invoked. An unknown strategy returns
// ErrUnknownStrategy before any destination runs.
func Execute(ctx context.Context, strat Strategy, dests []Destination, ectx *types.ExportContext) ([]*types.ExportResult, error) {
	switch strat {
	case All, FirstSuccess, BestEffort:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strat)
	}

	results := make([]*types.ExportResult, 0, len(dests))
	for _, d := range dests {
		r := d.Export(ctx, ectx)
		if r == nil {
			// A destination must always return a result; treat a nil as a
			// destination-local failure rather than dropping the slot.
			r = types.NewFailure(d.Name(), "destination returned no result")
		}
		ectx.RecordResult(r)
		results = append(results, r)

		if strat == FirstSuccess && r.Success {
			break
		}
	}
	return results, nil
}

// Succeeded interprets a batch of results under the given strategy.
// This is caller-side interpretation only; it never turns a destination
// failure into an error.
func Succeeded(strat Strategy, results []*types.ExportResult) bool {
	if len(results) == 0 {
		return false
	}
	switch strat {
	case All:
		for _, r := range results {
			if !r.Success {
				return false
			}
		}
		return true
	default:
		// FirstSuccess and BestEffort: one success carries the batch.
		for _, r := range results {
			if r.Success {
				return true
			}
		}
		return false
	}
}
