package destination

import (
	"context"
	"sort"
	"sync"

	"github.com/datasophos/NexusLIMS-sub001/log"
	"github.com/datasophos/NexusLIMS-sub001/strategy"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// Registry holds the destinations available to one process.
//
// It is an explicit value constructed at startup and handed to the
// orchestrator; build independent registries freely in tests. Factories are
// queued with AddFactory and run exactly once on first use (Discover is
// idempotent). The surrounding application uses a registry single-threaded;
// only discovery itself is guarded.
type Registry struct {
	logger *log.Logger

	discoverOnce sync.Once
	factories    []Factory

	entries map[string]registration
	nextSeq int
}

// registration pairs a destination with its registration sequence number.
// The sequence is the stable tie-break between equal priorities: earlier
// registration runs first.
type registration struct {
	dest Destination
	seq  int
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Registry{
		logger:  logger,
		entries: make(map[string]registration),
	}
}

// AddFactory queues a destination factory for discovery.
// Must be called before the first Discover / EnabledDestinations call;
// factories added later are never run.
func (r *Registry) AddFactory(f Factory) {
	r.factories = append(r.factories, f)
}

// Register adds a destination directly, bypassing factory discovery.
// A duplicate name overwrites the earlier registration (last wins) with a
// warning; the overwriting destination also takes a fresh sequence number.
func (r *Registry) Register(d Destination) {
	name := d.Name()
	if prev, ok := r.entries[name]; ok {
		r.logger.Warn("destination name collision, later registration wins", map[string]any{
			"destination":       name,
			"previous_priority": prev.dest.Priority(),
			"new_priority":      d.Priority(),
		})
	}
	if d.Priority() < MinPriority || d.Priority() > MaxPriority {
		r.logger.Warn("destination priority outside documented range", map[string]any{
			"destination": name,
			"priority":    d.Priority(),
		})
	}
	r.entries[name] = registration{dest: d, seq: r.nextSeq}
	r.nextSeq++
}

// Discover runs all queued factories exactly once. Repeated calls are
// no-ops. A factory that fails is skipped with a warning and discovery
// continues; zero queued factories is a warning, not an error.
func (r *Registry) Discover() {
	r.discoverOnce.Do(func() {
		if len(r.factories) == 0 {
			r.logger.Warn("no destination factories registered, exports will be no-ops", nil)
			return
		}
		for _, f := range r.factories {
			d, err := f()
			if err != nil {
				r.logger.Warn("destination factory failed, skipping", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			r.Register(d)
		}
	})
}

// Destinations returns every registered destination, enabled or not,
// in dispatch order.
func (r *Registry) Destinations() []Destination {
	r.Discover()
	return r.ordered(false)
}

// EnabledDestinations returns the destinations that are currently enabled,
// sorted by descending priority with registration order as the stable
// tie-break. Output order is deterministic for identical configuration.
func (r *Registry) EnabledDestinations() []Destination {
	r.Discover()
	return r.ordered(true)
}

func (r *Registry) ordered(enabledOnly bool) []Destination {
	regs := make([]registration, 0, len(r.entries))
	for _, reg := range r.entries {
		if enabledOnly && !reg.dest.Enabled() {
			continue
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].dest.Priority() != regs[j].dest.Priority() {
			return regs[i].dest.Priority() > regs[j].dest.Priority()
		}
		return regs[i].seq < regs[j].seq
	})
	out := make([]Destination, len(regs))
	for i, reg := range regs {
		out[i] = reg.dest
	}
	return out
}

// ExportToAll dispatches the enabled, ordered destinations under the given
// strategy. Returns the results produced, or an error for an unknown
// strategy name (raised before any destination runs).
func (r *Registry) ExportToAll(ctx context.Context, ectx *types.ExportContext, strat strategy.Strategy) ([]*types.ExportResult, error) {
	dests := r.EnabledDestinations()
	targets := make([]strategy.Destination, len(dests))
	for i, d := range dests {
		targets[i] = d
	}
	return strategy.Execute(ctx, strat, targets, ectx)
}
