package visibility

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Group observes many targets under one continuous observation context and
// derives an "active target": the first watched target currently visible.
// It backs section navigation highlighting, where sections become active
// and inactive repeatedly as the user scrolls.
//
// Event application is serialized on a single dispatch goroutine, so the
// OnChange callback and the visible map have exactly one writer regardless
// of how the platform threads its deliveries.
type Group struct {
	mu       sync.Mutex
	order    []string
	visible  map[string]bool
	onChange func(target string, visible bool)
	sub      Subscription
	degraded bool
	closed   bool
	logger   *zap.Logger

	events chan []Event
	done   chan struct{}
	idle   sync.WaitGroup
}

// NewGroup creates a continuous multi-target group. Once is forced off:
// latching makes no sense for navigation state. An unavailable platform
// yields a degraded group that reports every watched target visible.
func NewGroup(platform Platform, cfg Config, logger *zap.Logger) (*Group, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Once = false

	g := &Group{
		visible: make(map[string]bool),
		logger:  logger,
		events:  make(chan []Event, 16),
		done:    make(chan struct{}),
	}

	sub, err := platform.Subscribe(cfg.normalized(), g.enqueue)
	if errors.Is(err, ErrUnavailable) {
		g.degraded = true
		logger.Warn("visibility: platform unavailable, group degrading to always-visible")
		return g, nil
	}
	if err != nil {
		return nil, fmt.Errorf("visibility: group subscribe: %w", err)
	}
	g.sub = sub

	g.idle.Add(1)
	go g.dispatch()
	return g, nil
}

// Watch adds targets to the group, in order. Order decides which visible
// target wins ActiveTarget.
func (g *Group) Watch(targets ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}

	for _, t := range targets {
		if t == "" {
			continue
		}
		if _, ok := g.visible[t]; ok {
			continue
		}
		if !g.degraded {
			if err := g.sub.Add(t); err != nil {
				return fmt.Errorf("visibility: watch %s: %w", t, err)
			}
		}
		g.order = append(g.order, t)
		g.visible[t] = g.degraded
	}
	return nil
}

// OnChange registers a callback invoked from the dispatch goroutine for
// each target whose visibility actually changed, in delivery order.
func (g *Group) OnChange(fn func(target string, visible bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// Snapshot returns a copy of the current target → visible map.
func (g *Group) Snapshot() map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]bool, len(g.visible))
	for t, v := range g.visible {
		out[t] = v
	}
	return out
}

// ActiveTarget returns the first watched target that is currently visible,
// or "" when none are.
func (g *Group) ActiveTarget() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.order {
		if g.visible[t] {
			return t
		}
	}
	return ""
}

// Close stops the dispatcher and releases the subscription. Idempotent.
func (g *Group) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	sub := g.sub
	g.sub = nil
	g.mu.Unlock()

	close(g.done)
	if !g.degraded {
		g.idle.Wait()
	}

	if sub != nil {
		if err := sub.Close(); err != nil {
			g.logger.Warn("visibility: close group subscription", zap.Error(err))
		}
	}
}

func (g *Group) enqueue(events []Event) {
	select {
	case g.events <- events:
	case <-g.done:
	}
}

func (g *Group) dispatch() {
	defer g.idle.Done()
	for {
		select {
		case batch := <-g.events:
			g.apply(batch)
		case <-g.done:
			return
		}
	}
}

func (g *Group) apply(batch []Event) {
	type change struct {
		target  string
		visible bool
	}
	var changes []change

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	fn := g.onChange
	for _, ev := range batch {
		cur, ok := g.visible[ev.Target]
		if !ok {
			continue
		}
		if cur == ev.Intersecting {
			continue
		}
		g.visible[ev.Target] = ev.Intersecting
		changes = append(changes, change{ev.Target, ev.Intersecting})
	}
	g.mu.Unlock()

	if fn == nil {
		return
	}
	for _, c := range changes {
		fn(c.target, c.visible)
	}
}
