// Package visibility tracks whether renderable regions overlap a viewport.
//
// An Engine owns one observation context (one Config) over many targets and
// turns raw intersection events into per-target boolean state under one of
// two policies: latch-once (true forever after the first intersection, then
// the observation is released) or continuous (state mirrors every event).
// A Group is the continuous multi-target variant used for section
// highlighting; see group.go.
//
// The engine never computes geometry itself. It wraps a Platform, owns the
// records, and guarantees lifecycle safety: unregister is idempotent,
// events after teardown are no-ops, and a missing platform degrades to
// always-visible rather than failing the caller.
package visibility

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Record is a read-only copy of a target's tracked state.
type Record struct {
	Intersecting bool
	Triggered    bool
}

type record struct {
	intersecting bool
	triggered    bool
}

// Engine observes targets under a single Config.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	sub      Subscription
	records  map[string]*record
	handles  map[string]*Handle
	degraded bool
	closed   bool
	logger   *zap.Logger
}

// Handle is the caller's view of one registration. The zero of its
// lifecycle: Visible reports the current (or final, after release)
// intersection state; Released reports whether the underlying
// observation is gone.
type Handle struct {
	eng    *Engine
	target string

	// inert handles come from registering an unattached target; always
	// handles come from a degraded engine. Neither holds a record.
	inert  bool
	always bool

	// final holds the last known state once the record is released.
	final    bool
	detached bool
}

// Visible reports the current intersection state for the handle's target.
func (h *Handle) Visible() bool {
	if h == nil || h.inert {
		return false
	}
	if h.always {
		return true
	}
	h.eng.mu.Lock()
	defer h.eng.mu.Unlock()
	if rec, ok := h.eng.records[h.target]; ok {
		return rec.intersecting
	}
	return h.final
}

// Released reports whether the underlying observation has been torn down,
// either by Unregister or by a latch-once trigger.
func (h *Handle) Released() bool {
	if h == nil || h.inert || h.always {
		return true
	}
	h.eng.mu.Lock()
	defer h.eng.mu.Unlock()
	return h.detached
}

// New creates an engine over the given platform. A platform reporting
// ErrUnavailable yields a degraded engine whose registrations are
// permanently visible; any other subscribe error is returned.
func New(platform Platform, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:     cfg.normalized(),
		records: make(map[string]*record),
		handles: make(map[string]*Handle),
		logger:  logger,
	}

	sub, err := platform.Subscribe(e.cfg, e.apply)
	if errors.Is(err, ErrUnavailable) {
		e.degraded = true
		logger.Warn("visibility: platform unavailable, degrading to always-visible")
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("visibility: subscribe: %w", err)
	}
	e.sub = sub
	return e, nil
}

// Register begins observing a target. An empty target id means the region
// is not attached yet; the returned handle is inert (never visible) and the
// caller re-registers once attachment happens. Registering a target that is
// already observed returns the existing handle.
func (e *Engine) Register(target string) (*Handle, error) {
	if target == "" {
		return &Handle{inert: true}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.degraded {
		return &Handle{eng: e, target: target, always: true}, nil
	}
	if h, ok := e.handles[target]; ok {
		return h, nil
	}

	if err := e.sub.Add(target); err != nil {
		return nil, fmt.Errorf("visibility: observe %s: %w", target, err)
	}

	e.records[target] = &record{}
	h := &Handle{eng: e, target: target}
	e.handles[target] = h
	return h, nil
}

// Unregister releases a handle's observation. Safe on nil, inert, degraded,
// and already-released handles, any number of times.
func (e *Engine) Unregister(h *Handle) {
	if h == nil || h.inert || h.always {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked(h)
}

// Record returns a snapshot of the target's state and whether the target is
// currently registered.
func (e *Engine) Record(target string) (Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[target]
	if !ok {
		return Record{}, false
	}
	return Record{Intersecting: rec.intersecting, Triggered: rec.triggered}, true
}

// Close releases every observation and the platform subscription. Handles
// keep answering Visible with their final state.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true

	for _, h := range e.handles {
		if rec, ok := e.records[h.target]; ok {
			h.final = rec.intersecting
		}
		h.detached = true
	}
	e.records = make(map[string]*record)
	e.handles = make(map[string]*Handle)

	if e.sub != nil {
		if err := e.sub.Close(); err != nil {
			e.logger.Warn("visibility: close subscription", zap.Error(err))
		}
		e.sub = nil
	}
}

// apply is the single mutator of records. The platform delivers batches
// serially, so records only ever change under e.mu on the delivery path.
func (e *Engine) apply(events []Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	for _, ev := range events {
		rec, ok := e.records[ev.Target]
		if !ok {
			// Unregistered or already latched: late events are no-ops.
			continue
		}

		if e.cfg.Once {
			if !ev.Intersecting {
				continue
			}
			rec.intersecting = true
			rec.triggered = true
			if h, ok := e.handles[ev.Target]; ok {
				e.releaseLocked(h)
			}
			continue
		}

		rec.intersecting = ev.Intersecting
		if ev.Intersecting {
			rec.triggered = true
		}
	}
}

func (e *Engine) releaseLocked(h *Handle) {
	rec, ok := e.records[h.target]
	if !ok {
		return
	}
	h.final = rec.intersecting
	h.detached = true
	delete(e.records, h.target)
	delete(e.handles, h.target)

	if e.sub != nil {
		if err := e.sub.Remove(h.target); err != nil {
			e.logger.Warn("visibility: release target",
				zap.String("target", h.target), zap.Error(err))
		}
	}
}
