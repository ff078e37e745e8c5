package scheduler

import "sync/atomic"

// Connection tracks the host connection state for the tick loop. The zero
// value is inactive and has never dropped.
type Connection struct {
	active  atomic.Bool
	dropped atomic.Bool
}

// Up marks the connection usable.
func (c *Connection) Up() {
	c.active.Store(true)
}

// Down marks the connection unusable. Skipped ticks are only counted from the
// first Down onward, so the initial connect is not reported as an outage.
func (c *Connection) Down() {
	c.active.Store(false)
	c.dropped.Store(true)
}

func (c *Connection) Active() bool  { return c.active.Load() }
func (c *Connection) Dropped() bool { return c.dropped.Load() }
