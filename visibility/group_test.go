package visibility

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSectionGroup(t *testing.T) (*Group, *fakeSub) {
	t.Helper()
	p := &fakePlatform{}
	g, err := NewGroup(p, Config{Threshold: 0.3}, nil)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	require.NoError(t, g.Watch("home", "about", "contact"))
	return g, p.sub(0)
}

func TestActiveSectionFollowsScroll(t *testing.T) {
	g, sub := newSectionGroup(t)
	assert.Equal(t, "", g.ActiveTarget())

	sub.push(
		Event{Target: "home", Intersecting: false},
		Event{Target: "about", Intersecting: true, Ratio: 0.6},
		Event{Target: "contact", Intersecting: false},
	)
	require.Eventually(t, func() bool {
		return g.ActiveTarget() == "about"
	}, time.Second, time.Millisecond)

	sub.push(
		Event{Target: "home", Intersecting: false},
		Event{Target: "about", Intersecting: false},
		Event{Target: "contact", Intersecting: true, Ratio: 0.9},
	)
	require.Eventually(t, func() bool {
		return g.ActiveTarget() == "contact"
	}, time.Second, time.Millisecond)

	snap := g.Snapshot()
	assert.Equal(t, map[string]bool{
		"home": false, "about": false, "contact": true,
	}, snap)
}

func TestActiveSectionPrefersFirstWatched(t *testing.T) {
	g, sub := newSectionGroup(t)

	sub.push(
		Event{Target: "about", Intersecting: true, Ratio: 0.5},
		Event{Target: "home", Intersecting: true, Ratio: 0.5},
	)
	require.Eventually(t, func() bool {
		return g.ActiveTarget() == "home"
	}, time.Second, time.Millisecond, "order of Watch, not delivery, breaks ties")
}

func TestOnChangeReportsOnlyTransitions(t *testing.T) {
	g, sub := newSectionGroup(t)

	var mu sync.Mutex
	var seen []string
	g.OnChange(func(target string, visible bool) {
		mu.Lock()
		defer mu.Unlock()
		if visible {
			seen = append(seen, "+"+target)
		} else {
			seen = append(seen, "-"+target)
		}
	})

	sub.push(
		Event{Target: "home", Intersecting: true, Ratio: 1},
		Event{Target: "home", Intersecting: true, Ratio: 1}, // duplicate, no transition
		Event{Target: "about", Intersecting: false},         // already false
	)
	sub.push(Event{Target: "home", Intersecting: false})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"+home", "-home"}, seen)
}

func TestGroupIgnoresUnwatchedTargets(t *testing.T) {
	g, sub := newSectionGroup(t)

	sub.push(Event{Target: "footer", Intersecting: true, Ratio: 1})
	sub.push(Event{Target: "home", Intersecting: true, Ratio: 1})

	require.Eventually(t, func() bool {
		return g.ActiveTarget() == "home"
	}, time.Second, time.Millisecond)
	_, ok := g.Snapshot()["footer"]
	assert.False(t, ok)
}

func TestGroupDegraded(t *testing.T) {
	p := &fakePlatform{unavailable: true}
	g, err := NewGroup(p, Config{Threshold: 0.3}, nil)
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.Watch("home", "about"))
	assert.Equal(t, "home", g.ActiveTarget())
	assert.Equal(t, map[string]bool{"home": true, "about": true}, g.Snapshot())
}

func TestGroupCloseIdempotent(t *testing.T) {
	p := &fakePlatform{}
	g, err := NewGroup(p, Config{Threshold: 0.3}, nil)
	require.NoError(t, err)
	require.NoError(t, g.Watch("home"))

	g.Close()
	g.Close()
	assert.True(t, p.sub(0).isClosed())

	assert.ErrorIs(t, g.Watch("about"), ErrClosed)

	// Deliveries after close are dropped, not deadlocked.
	p.sub(0).push(Event{Target: "home", Intersecting: true, Ratio: 1})
	assert.Equal(t, "", g.ActiveTarget())
}

func TestGroupForcesContinuousPolicy(t *testing.T) {
	p := &fakePlatform{}
	g, err := NewGroup(p, Config{Threshold: 0.3, Once: true}, nil)
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.Watch("home"))

	assert.False(t, p.sub(0).cfg.Once)

	sub := p.sub(0)
	sub.push(Event{Target: "home", Intersecting: true, Ratio: 1})
	require.Eventually(t, func() bool {
		return g.ActiveTarget() == "home"
	}, time.Second, time.Millisecond)

	sub.push(Event{Target: "home", Intersecting: false})
	require.Eventually(t, func() bool {
		return g.ActiveTarget() == ""
	}, time.Second, time.Millisecond, "no latching in a group")
}
