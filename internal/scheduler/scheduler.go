// Package scheduler runs recurring callbacks from one fixed-period tick loop,
// gated on the liveness of the host connection.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPeriod is the tick loop resolution.
const DefaultPeriod = 100 * time.Millisecond

// skipLogEvery controls how often consecutive skipped ticks are reported.
const skipLogEvery = 50

// GroupGlobal is the group used by callers that do not need bulk cancellation.
const GroupGlobal = "global"

// Func is a timer callback. A returned error or a panic is logged and does
// not affect other timers.
type Func func() error

// Probe reports whether callbacks may touch the external connection.
type Probe interface {
	// Active is true while the connection is usable.
	Active() bool
	// Dropped is true once the connection has gone down at least once.
	Dropped() bool
}

// Handle identifies a registered timer.
type Handle struct {
	Group string
	ID    string
}

type timer struct {
	interval time.Duration
	next     time.Time
	fn       Func
}

// Config holds the scheduler settings.
type Config struct {
	Period time.Duration
	Probe  Probe
	Logger zerolog.Logger
	// OnSkip is called for every tick skipped after the first disconnect.
	OnSkip func()
}

// Scheduler is a registry of recurring timers driven by Run.
type Scheduler struct {
	mu     sync.Mutex
	groups map[string]map[string]*timer

	period time.Duration
	probe  Probe
	log    zerolog.Logger
	onSkip func()
	now    func() time.Time

	// local counts skips since the last active tick, total counts all of them.
	localSkipped int
	totalSkipped int
}

// New creates a Scheduler. A nil probe is treated as always active.
func New(cfg Config) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	return &Scheduler{
		groups: make(map[string]map[string]*timer),
		period: cfg.Period,
		probe:  cfg.Probe,
		log:    cfg.Logger.With().Str("component", "timers").Logger(),
		onSkip: cfg.OnSkip,
		now:    time.Now,
	}
}

// RegisterRecurring schedules fn to run no more often than every interval
// under group, using the lowest free numeric id in that group.
func (s *Scheduler) RegisterRecurring(group string, interval time.Duration, fn Func) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	timers := s.group(group)
	id := 0
	for {
		if _, taken := timers[strconv.Itoa(id)]; !taken {
			break
		}
		id++
	}
	return s.setLocked(group, strconv.Itoa(id), interval, fn)
}

// Set schedules fn under an explicit id, replacing any timer already there.
func (s *Scheduler) Set(group, id string, interval time.Duration, fn Func) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(group, id, interval, fn)
}

// Cancel removes one timer. It reports whether the timer existed.
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timers, ok := s.groups[h.Group]
	if !ok {
		return false
	}
	if _, ok := timers[h.ID]; !ok {
		return false
	}
	delete(timers, h.ID)
	return true
}

// CancelGroup removes every timer in group and returns how many were removed.
func (s *Scheduler) CancelGroup(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.groups[group])
	delete(s.groups, group)
	return n
}

// Len returns the number of registered timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, timers := range s.groups {
		n += len(timers)
	}
	return n
}

// Skipped returns the skip counters: since the last active tick, and overall.
func (s *Scheduler) Skipped() (local, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localSkipped, s.totalSkipped
}

// Run drives the tick loop until ctx is done. Ticks never overlap; a tick that
// overruns causes the missed ticks to be dropped rather than queued.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.Info().Dur("period", s.period).Msg("timer loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("timer loop stopped")
			return nil
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if s.probe != nil && !s.probe.Active() {
		s.skip()
		return
	}

	s.mu.Lock()
	if s.localSkipped > 0 {
		s.log.Info().Int("skipped", s.localSkipped).Int("total_skipped", s.totalSkipped).Msg("connection back, timers resumed")
		s.localSkipped = 0
	}
	due := s.dueLocked(s.now())
	s.mu.Unlock()

	for _, h := range due {
		s.fire(h)
	}
}

func (s *Scheduler) skip() {
	if !s.probe.Dropped() {
		return
	}

	s.mu.Lock()
	s.localSkipped++
	s.totalSkipped++
	local, total := s.localSkipped, s.totalSkipped
	s.mu.Unlock()

	if s.onSkip != nil {
		s.onSkip()
	}
	if local%skipLogEvery == 1 {
		s.log.Warn().Int("skipped", local).Int("total_skipped", total).Msg("connection inactive, skipping timer cycles")
	}
}

// dueLocked returns the handles whose next-due time has elapsed, in a stable order.
func (s *Scheduler) dueLocked(now time.Time) []Handle {
	var due []Handle
	for group, timers := range s.groups {
		for id, t := range timers {
			if !now.Before(t.next) {
				due = append(due, Handle{Group: group, ID: id})
			}
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Group != due[j].Group {
			return due[i].Group < due[j].Group
		}
		return due[i].ID < due[j].ID
	})
	return due
}

func (s *Scheduler) fire(h Handle) {
	s.mu.Lock()
	t, ok := s.groups[h.Group][h.ID]
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := call(t.fn); err != nil {
		s.log.Error().Err(err).Str("group", h.Group).Str("id", h.ID).Msg("timer callback failed")
	}

	// Rescheduled from now, not from the missed deadline.
	s.mu.Lock()
	t.next = s.now().Add(t.interval)
	s.mu.Unlock()
}

func call(fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *Scheduler) group(name string) map[string]*timer {
	timers, ok := s.groups[name]
	if !ok {
		timers = make(map[string]*timer)
		s.groups[name] = timers
	}
	return timers
}

func (s *Scheduler) setLocked(group, id string, interval time.Duration, fn Func) Handle {
	s.group(group)[id] = &timer{
		interval: interval,
		next:     s.now().Add(interval),
		fn:       fn,
	}
	return Handle{Group: group, ID: id}
}
