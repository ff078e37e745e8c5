package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, s)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestStartAsyncAndStop(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	require.NoError(t, m.StartAsync("timers", blockUntilDone))
	assert.Error(t, m.StartAsync("timers", blockUntilDone))
	assert.Equal(t, []string{"timers"}, m.List())
	assert.Equal(t, "Running jobs: timers", m.Status())

	require.NoError(t, m.Stop("timers"))
	assert.Error(t, m.Stop("timers"))
	m.Wait()

	assert.Equal(t, "No jobs are running.", m.Status())
	assert.Contains(t, rec.all(), "done:timers")
}

func TestStopAllAndErrors(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	require.NoError(t, m.StartAsync("ops", blockUntilDone))
	require.NoError(t, m.StartAsync("timers", blockUntilDone))
	require.NoError(t, m.StartAsync("broken", func(context.Context) error {
		return errors.New("address in use")
	}))

	m.StopAll()
	m.Wait()

	assert.Empty(t, m.List())
	assert.Contains(t, rec.all(), "error:broken:address in use")
	assert.Contains(t, rec.all(), "done:ops")
}

func TestParentCancelStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, nil)
	require.NoError(t, m.StartAsync("timers", blockUntilDone))

	cancel()
	m.Wait()
	assert.Empty(t, m.List())
}

func TestStartSync(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)
	err := m.StartSync("flush", func(context.Context) error { return errors.New("disk full") })
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []string{"running:flush", "error:flush:disk full"}, rec.all())
}
