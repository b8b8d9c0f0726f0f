package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arameau/portfolio/visibility"
)

// pagePlatform implements visibility.Platform over the wire. The real
// geometric-overlap primitive is the browser's IntersectionObserver; a
// small client shim posts each delivery batch to /viz/events and Dispatch
// fans it out to every subscription, re-applying each subscription's own
// threshold to the reported ratio.
type pagePlatform struct {
	mu   sync.Mutex
	subs []*pageSub
}

type pageSub struct {
	mu      sync.Mutex
	cfg     visibility.Config
	deliver func([]visibility.Event)
	targets map[string]struct{}
	closed  bool
}

func (p *pagePlatform) Subscribe(cfg visibility.Config, deliver func([]visibility.Event)) (visibility.Subscription, error) {
	s := &pageSub{cfg: cfg, deliver: deliver, targets: make(map[string]struct{})}
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()
	return s, nil
}

// Dispatch routes one batch from the page to every live subscription,
// preserving in-batch order.
func (p *pagePlatform) Dispatch(events []visibility.Event) {
	p.mu.Lock()
	subs := make([]*pageSub, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, s := range subs {
		s.dispatch(events)
	}
}

func (s *pageSub) dispatch(events []visibility.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var batch []visibility.Event
	for _, ev := range events {
		if _, ok := s.targets[ev.Target]; !ok {
			continue
		}
		batch = append(batch, visibility.Event{
			Target:       ev.Target,
			Intersecting: ev.Intersecting && ev.Ratio >= s.cfg.Threshold,
			Ratio:        ev.Ratio,
		})
	}
	deliver := s.deliver
	s.mu.Unlock()

	if len(batch) > 0 {
		deliver(batch)
	}
}

func (s *pageSub) Add(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[target] = struct{}{}
	return nil
}

func (s *pageSub) Remove(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, target)
	return nil
}

func (s *pageSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// vizBridge wires the page to two engine instances: a continuous group
// over the top-level sections (nav highlighting) and a latch-once engine
// over reveal targets (section reveals and skill bars). Both observe
// overlapping targets with different configs without interfering.
type vizBridge struct {
	platform *pagePlatform
	sections *visibility.Group
	reveals  *visibility.Engine
	handles  map[string]*visibility.Handle
	logger   *zap.Logger
}

func newVizBridge(content *SiteContent, logger *zap.Logger) (*vizBridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	platform := &pagePlatform{}

	sections, err := visibility.NewGroup(platform, visibility.Config{Threshold: 0.3}, logger)
	if err != nil {
		return nil, err
	}
	if err := sections.Watch(sectionIDs...); err != nil {
		sections.Close()
		return nil, err
	}

	reveals, err := visibility.New(platform, visibility.DefaultConfig(), logger)
	if err != nil {
		sections.Close()
		return nil, err
	}

	b := &vizBridge{
		platform: platform,
		sections: sections,
		reveals:  reveals,
		handles:  make(map[string]*visibility.Handle),
		logger:   logger,
	}
	for _, target := range content.revealTargets() {
		h, err := reveals.Register(target)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.handles[target] = h
	}
	return b, nil
}

func (b *vizBridge) Close() {
	b.sections.Close()
	b.reveals.Close()
}

func (b *vizBridge) activeSection() string {
	return b.sections.ActiveTarget()
}

// revealState is the GlobalSectionVisibilityMap handed to the page: which
// targets have begun their reveal animation.
func (b *vizBridge) revealState() map[string]bool {
	state := make(map[string]bool, len(b.handles))
	for target, h := range b.handles {
		state[target] = h.Visible()
	}
	return state
}

// handleEvents ingests one IntersectionObserver delivery batch.
// Payload: [{"target":"about","intersecting":true,"ratio":0.42}, ...]
func (b *vizBridge) handleEvents(c *gin.Context) {
	var events []visibility.Event
	if err := c.ShouldBindJSON(&events); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event batch"})
		return
	}

	b.platform.Dispatch(events)
	c.Status(http.StatusNoContent)
}

// handleNav renders the nav fragment with the active section highlighted.
func (b *vizBridge) handleNav(c *gin.Context) {
	c.HTML(http.StatusOK, "nav.html", gin.H{
		"sections": sectionIDs,
		"active":   b.activeSection(),
	})
}

// handleReveals returns the reveal map the page polls to add reveal and
// skill-bar classes.
func (b *vizBridge) handleReveals(c *gin.Context) {
	c.JSON(http.StatusOK, b.revealState())
}
