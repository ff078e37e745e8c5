package convo

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/warden/internal/reply"
	"github.com/keshon/warden/internal/scheduler"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager() (*Manager, *clock) {
	m := New(Config{TTL: 60 * time.Second, Logger: zerolog.Nop()})
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.now = c.now
	return m, c
}

func echo(keep bool) Callback {
	return func(in Input, payload any) (reply.Response, bool) {
		return reply.Text(payload.(string) + ":" + in.Text), keep
	}
}

func TestRouteWithoutDemand(t *testing.T) {
	m, _ := newTestManager()
	resp, out := m.Route(Input{ActorID: "u", Text: ">ping"})
	assert.Equal(t, NotRouted, out)
	assert.True(t, resp.IsNone())
}

func TestRouteInvokesCallbackAndDrops(t *testing.T) {
	m, _ := newTestManager()
	m.Demand("u", echo(false), "p")

	resp, out := m.Route(Input{ActorID: "u", Text: "W0"})
	assert.Equal(t, Routed, out)
	assert.Equal(t, reply.Text("p:W0"), resp)
	assert.False(t, m.Active("u"))

	_, out = m.Route(Input{ActorID: "u", Text: "W1"})
	assert.Equal(t, NotRouted, out)
}

func TestDemandIsPerActor(t *testing.T) {
	m, _ := newTestManager()
	m.Demand("u1", echo(true), "p")

	_, out := m.Route(Input{ActorID: "u2", Text: "x"})
	assert.Equal(t, NotRouted, out)
	assert.True(t, m.Active("u1"))
}

func TestDemandExpiresAfterTTL(t *testing.T) {
	m, c := newTestManager()
	m.Demand("u", echo(true), "p")

	c.advance(59 * time.Second)
	assert.True(t, m.Active("u"))

	c.advance(time.Second)
	assert.False(t, m.Active("u"))
	_, out := m.Route(Input{ActorID: "u", Text: ">ping"})
	assert.Equal(t, NotRouted, out)
	assert.Zero(t, m.Len())
}

func TestKeptDemandExpiresAtCreationPlusTTL(t *testing.T) {
	m, c := newTestManager()
	m.Demand("u", echo(true), "p")

	c.advance(30 * time.Second)
	_, out := m.Route(Input{ActorID: "u", Text: "one"})
	require.Equal(t, Routed, out)
	assert.True(t, m.Active("u"))

	c.advance(31 * time.Second)
	assert.False(t, m.Active("u"))
	_, out = m.Route(Input{ActorID: "u", Text: ">ping"})
	assert.Equal(t, NotRouted, out)
	assert.Zero(t, m.Len())
}

func TestCancelWordDropsDemand(t *testing.T) {
	m, _ := newTestManager()
	called := false
	m.Demand("u", func(Input, any) (reply.Response, bool) {
		called = true
		return reply.None(), true
	}, nil)

	_, out := m.Route(Input{ActorID: "u", Text: "  CANCEL "})
	assert.Equal(t, Cancelled, out)
	assert.False(t, called)
	assert.False(t, m.Active("u"))
}

func TestCallbackPanicEndsDemand(t *testing.T) {
	m, _ := newTestManager()
	m.Demand("u", func(Input, any) (reply.Response, bool) { panic("bad id") }, nil)

	resp, out := m.Route(Input{ActorID: "u", Text: "x"})
	assert.Equal(t, Routed, out)
	assert.Equal(t, reply.KindError, resp.Kind)
	assert.Contains(t, resp.Embed.Description, "bad id")
	assert.False(t, m.Active("u"))
}

func TestCallbackMayReplaceItsDemand(t *testing.T) {
	m, _ := newTestManager()
	m.Demand("u", func(in Input, _ any) (reply.Response, bool) {
		m.Demand("u", echo(false), "second")
		return reply.None(), false
	}, nil)

	_, out := m.Route(Input{ActorID: "u", Text: "a"})
	require.Equal(t, Routed, out)
	resp, out := m.Route(Input{ActorID: "u", Text: "b"})
	assert.Equal(t, Routed, out)
	assert.Equal(t, reply.Text("second:b"), resp)
}

func TestConcurrentRoutesConsumeOnce(t *testing.T) {
	m, _ := newTestManager()
	var mu sync.Mutex
	calls := 0
	m.Demand("u", func(Input, any) (reply.Response, bool) {
		mu.Lock()
		calls++
		mu.Unlock()
		return reply.None(), false
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Route(Input{ActorID: "u", Text: "x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestSweepOnScheduler(t *testing.T) {
	m, c := newTestManager()
	m.Demand("a", echo(true), "p")
	c.advance(30 * time.Second)
	m.Demand("b", echo(true), "p")
	c.advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.False(t, m.Active("a"))
	assert.True(t, m.Active("b"))

	s := scheduler.New(scheduler.Config{Logger: zerolog.Nop()})
	h := m.Schedule(s, time.Second)
	assert.Equal(t, scheduler.Handle{Group: "convo", ID: "sweep"}, h)
	assert.Equal(t, 1, s.Len())
}

func TestObserve(t *testing.T) {
	var seen []Outcome
	m := New(Config{Logger: zerolog.Nop(), Observe: func(o Outcome) { seen = append(seen, o) }})
	m.Demand("u", echo(true), "p")
	m.Route(Input{ActorID: "u", Text: "x"})
	m.Route(Input{ActorID: "u", Text: "cancel"})
	m.Route(Input{ActorID: "u", Text: "x"})
	assert.Equal(t, []Outcome{Routed, Cancelled, NotRouted}, seen)
}
