package visibility

import "errors"

// ErrUnavailable is returned by a Platform whose geometric-overlap
// primitive cannot be constructed. Engines treat it as a signal to
// degrade to always-visible, never as a caller-facing failure.
var ErrUnavailable = errors.New("visibility: platform unavailable")

// ErrClosed is returned when registering on an engine that has been closed.
var ErrClosed = errors.New("visibility: engine closed")

// Config describes one observation context. It is immutable for the
// lifetime of a registration.
type Config struct {
	// RootMargin expands or shrinks the observation root, CSS-style
	// (e.g. "0px", "-10% 0px"). Empty means "0px".
	RootMargin string

	// Threshold is the minimum fraction of the target's area that must
	// overlap the root for it to count as intersecting. Valid range [0,1].
	Threshold float64

	// Once latches the visibility signal: after the first intersecting
	// event the target reports true forever and its observation is
	// released.
	Once bool
}

// DefaultConfig matches the site's reveal-on-scroll behavior.
func DefaultConfig() Config {
	return Config{RootMargin: "0px", Threshold: 0.2, Once: true}
}

func (c Config) normalized() Config {
	if c.RootMargin == "" {
		c.RootMargin = "0px"
	}
	if c.Threshold < 0 {
		c.Threshold = 0
	}
	if c.Threshold > 1 {
		c.Threshold = 1
	}
	return c
}

// Event is one intersection change delivered by the platform.
type Event struct {
	Target       string  `json:"target"`
	Intersecting bool    `json:"intersecting"`
	Ratio        float64 `json:"ratio"`
}

// Subscription is a live observation context covering a set of targets.
type Subscription interface {
	Add(target string) error
	Remove(target string) error
	Close() error
}

// Platform is the abstract geometric-overlap capability. The real
// implementation lives on the other side of a browser; tests use fakes.
// Deliveries for one subscription must be serial: the platform calls
// deliver with each batch in order and never concurrently.
type Platform interface {
	Subscribe(cfg Config, deliver func([]Event)) (Subscription, error)
}
