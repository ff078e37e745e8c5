package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(probe Probe, logs *bytes.Buffer) (*Scheduler, *clock) {
	cfg := Config{Probe: probe, Logger: zerolog.Nop()}
	if logs != nil {
		cfg.Logger = zerolog.New(logs)
	}
	s := New(cfg)
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func TestRegisterRecurringUsesLowestFreeID(t *testing.T) {
	s, _ := newTestScheduler(nil, nil)
	noop := func() error { return nil }

	h0 := s.RegisterRecurring("g", time.Second, noop)
	h1 := s.RegisterRecurring("g", time.Second, noop)
	assert.Equal(t, Handle{Group: "g", ID: "0"}, h0)
	assert.Equal(t, "1", h1.ID)

	require.True(t, s.Cancel(h0))
	assert.False(t, s.Cancel(h0))
	assert.Equal(t, "0", s.RegisterRecurring("g", time.Second, noop).ID)
	assert.Equal(t, "0", s.RegisterRecurring("other", time.Second, noop).ID)
}

func TestTimerFiresWhenDueAndReschedulesFromNow(t *testing.T) {
	s, c := newTestScheduler(nil, nil)

	var runs int
	s.RegisterRecurring(GroupGlobal, time.Second, func() error {
		runs++
		return nil
	})

	s.tick()
	assert.Equal(t, 0, runs)

	c.advance(time.Second)
	s.tick()
	assert.Equal(t, 1, runs)

	// A late tick runs once and the next run is measured from the late time.
	c.advance(5 * time.Second)
	s.tick()
	s.tick()
	assert.Equal(t, 2, runs)

	c.advance(999 * time.Millisecond)
	s.tick()
	assert.Equal(t, 2, runs)
	c.advance(time.Millisecond)
	s.tick()
	assert.Equal(t, 3, runs)
}

func TestFailingCallbackDoesNotAffectOthers(t *testing.T) {
	var logs bytes.Buffer
	s, c := newTestScheduler(nil, &logs)

	var good int
	s.Set("a", "panics", time.Second, func() error { panic("boom") })
	s.Set("a", "errors", time.Second, func() error { return errors.New("bad") })
	s.Set("b", "good", time.Second, func() error {
		good++
		return nil
	})

	c.advance(time.Second)
	s.tick()
	assert.Equal(t, 1, good)
	assert.Contains(t, logs.String(), "panic: boom")
	assert.Contains(t, logs.String(), "bad")

	// Failed timers are still rescheduled.
	c.advance(time.Second)
	s.tick()
	assert.Equal(t, 2, good)
	assert.Equal(t, 3, s.Len())
}

func TestCancelGroup(t *testing.T) {
	s, c := newTestScheduler(nil, nil)

	var fired bool
	s.RegisterRecurring("ctx", time.Second, func() error { fired = true; return nil })
	s.RegisterRecurring("ctx", time.Second, func() error { fired = true; return nil })
	keep := s.RegisterRecurring(GroupGlobal, time.Second, func() error { return nil })

	assert.Equal(t, 2, s.CancelGroup("ctx"))
	assert.Equal(t, 0, s.CancelGroup("ctx"))

	c.advance(time.Second)
	s.tick()
	assert.False(t, fired)
	assert.True(t, s.Cancel(keep))
}

func TestSetReplacesTimer(t *testing.T) {
	s, c := newTestScheduler(nil, nil)

	var which string
	s.Set("g", "x", time.Second, func() error { which = "first"; return nil })
	s.Set("g", "x", time.Second, func() error { which = "second"; return nil })

	c.advance(time.Second)
	s.tick()
	assert.Equal(t, "second", which)
	assert.Equal(t, 1, s.Len())
}

func TestInactiveConnectionSkipsTicks(t *testing.T) {
	var logs bytes.Buffer
	conn := &Connection{}
	var skips atomic.Int32
	s, c := newTestScheduler(conn, &logs)
	s.onSkip = func() { skips.Add(1) }

	var runs int
	s.RegisterRecurring(GroupGlobal, time.Second, func() error { runs++; return nil })
	c.advance(time.Second)

	// Before the first connect, ticks are skipped without counting.
	s.tick()
	local, total := s.Skipped()
	assert.Equal(t, 0, runs)
	assert.Zero(t, local)
	assert.Zero(t, total)

	conn.Up()
	s.tick()
	assert.Equal(t, 1, runs)

	conn.Down()
	c.advance(time.Second)
	for i := 0; i < 51; i++ {
		s.tick()
	}
	local, total = s.Skipped()
	assert.Equal(t, 51, local)
	assert.Equal(t, 51, total)
	assert.EqualValues(t, 51, skips.Load())
	assert.Equal(t, 1, runs)
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("skipping timer cycles")))

	conn.Up()
	s.tick()
	assert.Equal(t, 2, runs)
	local, total = s.Skipped()
	assert.Zero(t, local)
	assert.Equal(t, 51, total)
	assert.Contains(t, logs.String(), "timers resumed")
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Config{Period: time.Millisecond, Logger: zerolog.Nop()})

	fired := make(chan struct{}, 1)
	s.RegisterRecurring(GroupGlobal, time.Millisecond, func() error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	cancel()
	require.NoError(t, <-done)
}
