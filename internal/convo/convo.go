// Package convo tracks per-actor context demands: short-lived claims that an
// actor's next messages belong to a specific callback instead of normal
// command dispatch.
package convo

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/scheduler"
)

const (
	DefaultTTL        = 60 * time.Second
	DefaultCancelWord = "cancel"
)

// Input is an inbound message as seen by a context callback.
type Input struct {
	ActorID   string
	ChannelID string
	Text      string
	IsDirect  bool
}

// Callback handles one message of a live demand. Returning keep=false ends
// the demand.
type Callback func(in Input, payload any) (resp reply.Response, keep bool)

// Outcome is the result of Route.
type Outcome int

const (
	// NotRouted means there was no live demand; dispatch continues normally.
	NotRouted Outcome = iota
	// Routed means the demand's callback consumed the message.
	Routed
	// Cancelled means the termination keyword dropped the demand; dispatch
	// continues normally.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Routed:
		return "routed"
	case Cancelled:
		return "cancelled"
	default:
		return "not_routed"
	}
}

type demand struct {
	mu       sync.Mutex // serializes callbacks for one actor
	callback Callback
	payload  any
	expires  atomic.Int64 // unix nanos
	done     atomic.Bool
}

func (d *demand) expired(now time.Time) bool {
	return now.UnixNano() >= d.expires.Load()
}

// Config holds the manager settings.
type Config struct {
	TTL        time.Duration
	CancelWord string
	Logger     zerolog.Logger
	// Observe is called with the outcome of every Route.
	Observe func(Outcome)
}

// Manager holds at most one demand per actor.
type Manager struct {
	mu      sync.Mutex
	demands map[string]*demand

	ttl        time.Duration
	cancelWord string
	log        zerolog.Logger
	observe    func(Outcome)
	now        func() time.Time
}

func New(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CancelWord == "" {
		cfg.CancelWord = DefaultCancelWord
	}
	return &Manager{
		demands:    make(map[string]*demand),
		ttl:        cfg.TTL,
		cancelWord: cfg.CancelWord,
		log:        cfg.Logger.With().Str("component", "context").Logger(),
		observe:    cfg.Observe,
		now:        time.Now,
	}
}

// CancelWord returns the termination keyword.
func (m *Manager) CancelWord() string {
	return m.cancelWord
}

// Demand routes the actor's next messages to cb until it returns keep=false,
// the actor sends the termination keyword, or TTL has passed since the
// demand was created. Keeping a demand never extends its expiry. An existing
// demand for the actor is replaced.
func (m *Manager) Demand(actorID string, cb Callback, payload any) {
	d := &demand{callback: cb, payload: payload}
	d.expires.Store(m.now().Add(m.ttl).UnixNano())

	m.mu.Lock()
	if old, ok := m.demands[actorID]; ok {
		old.done.Store(true)
	}
	m.demands[actorID] = d
	m.mu.Unlock()

	m.log.Debug().Str("actor", actorID).Dur("ttl", m.ttl).Msg("context demanded")
}

// Active reports whether the actor has a live demand.
func (m *Manager) Active(actorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.demands[actorID]
	return ok && !d.expired(m.now())
}

// Drop removes the actor's demand. It reports whether one existed.
func (m *Manager) Drop(actorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.demands[actorID]
	if ok {
		d.done.Store(true)
		delete(m.demands, actorID)
	}
	return ok
}

// Len returns the number of held demands, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.demands)
}

// Route offers in to the actor's demand. The expiry check and the callback run
// as one critical section per actor; a second message for the same actor waits
// for the first callback to finish.
func (m *Manager) Route(in Input) (reply.Response, Outcome) {
	resp, out := m.route(in)
	if m.observe != nil {
		m.observe(out)
	}
	return resp, out
}

func (m *Manager) route(in Input) (reply.Response, Outcome) {
	m.mu.Lock()
	d, ok := m.demands[in.ActorID]
	if !ok {
		m.mu.Unlock()
		return reply.None(), NotRouted
	}
	if d.expired(m.now()) {
		m.removeLocked(in.ActorID, d)
		m.mu.Unlock()
		m.log.Debug().Str("actor", in.ActorID).Msg("context expired")
		return reply.None(), NotRouted
	}
	if strings.EqualFold(strings.TrimSpace(in.Text), m.cancelWord) {
		m.removeLocked(in.ActorID, d)
		m.mu.Unlock()
		m.log.Debug().Str("actor", in.ActorID).Msg("context cancelled")
		return reply.None(), Cancelled
	}
	m.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-checked under the actor lock: a concurrent message may have ended it.
	if d.done.Load() || d.expired(m.now()) {
		return reply.None(), NotRouted
	}

	resp, keep, err := call(d.callback, in, d.payload)
	if err != nil {
		m.log.Error().Err(err).Str("actor", in.ActorID).Msg("context callback failed")
		resp = reply.Error("Command failed to execute. Contact the Admins", "```"+err.Error()+"```")
		keep = false
	}

	if !keep {
		m.mu.Lock()
		m.removeLocked(in.ActorID, d)
		m.mu.Unlock()
	}
	return resp, Routed
}

// Sweep removes expired demands and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for actor, d := range m.demands {
		if d.expired(now) {
			m.removeLocked(actor, d)
			n++
		}
	}
	if n > 0 {
		m.log.Debug().Int("removed", n).Msg("swept expired contexts")
	}
	return n
}

// Schedule registers the expiry sweep on s.
func (m *Manager) Schedule(s *scheduler.Scheduler, every time.Duration) scheduler.Handle {
	return s.Set("convo", "sweep", every, func() error {
		m.Sweep()
		return nil
	})
}

// removeLocked deletes the actor's entry only if it is still d.
func (m *Manager) removeLocked(actorID string, d *demand) {
	d.done.Store(true)
	if cur, ok := m.demands[actorID]; ok && cur == d {
		delete(m.demands, actorID)
	}
}

func call(cb Callback, in Input, payload any) (resp reply.Response, keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	resp, keep = cb(in, payload)
	return resp, keep, nil
}
