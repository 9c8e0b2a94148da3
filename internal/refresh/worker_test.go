package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/spaceweather/internal/weather"
)

// blockingRefresher records requests and holds the first cycle until release is closed.
type blockingRefresher struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls []weather.Request
	once  sync.Once
}

func newBlockingRefresher() *blockingRefresher {
	return &blockingRefresher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingRefresher) Refresh(ctx context.Context, req weather.Request) weather.View {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.mu.Unlock()

	b.once.Do(func() { close(b.started) })
	<-b.release
	return weather.View{Generation: req.Generation, Trigger: req.Trigger, Status: weather.StatusDone}
}

func (b *blockingRefresher) triggers() []weather.Trigger {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]weather.Trigger, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c.Trigger)
	}
	return out
}

func startWorker(t *testing.T, r Refresher) *Worker {
	t.Helper()
	w := NewWorker(r, time.Second, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestWorker_SearchIsNotDisplacedByPeriodic(t *testing.T) {
	r := newBlockingRefresher()
	w := startWorker(t, r)

	first := w.Submit(weather.TriggerPeriodic, "")
	<-r.started
	assert.Equal(t, weather.StatusFetching, w.State())

	w.Submit(weather.TriggerManual, "")
	search := w.Submit(weather.TriggerSearch, "  Tokyo ")
	periodic := w.Submit(weather.TriggerPeriodic, "")
	assert.False(t, search.Coalesced)
	assert.True(t, periodic.Coalesced)
	assert.Equal(t, search.Generation, periodic.Generation)
	assert.Equal(t, search.ID, periodic.ID)
	assert.Equal(t, search.Generation, w.Generation())
	close(r.release)

	require.Eventually(t, func() bool { return len(r.triggers()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []weather.Trigger{weather.TriggerPeriodic, weather.TriggerSearch}, r.triggers())

	r.mu.Lock()
	assert.Equal(t, first.Generation, r.calls[0].Generation)
	assert.Equal(t, search.Generation, r.calls[1].Generation)
	assert.Equal(t, "Tokyo", r.calls[1].Query)
	r.mu.Unlock()

	require.Eventually(t, func() bool { return w.State() == weather.StatusIdle }, time.Second, 5*time.Millisecond)
}

func TestWorker_EqualPriorityNewerReplaces(t *testing.T) {
	r := newBlockingRefresher()
	w := startWorker(t, r)

	w.Submit(weather.TriggerManual, "")
	<-r.started

	w.Submit(weather.TriggerSearch, "Paris")
	w.Submit(weather.TriggerSearch, "Lima")
	close(r.release)

	require.Eventually(t, func() bool { return len(r.triggers()) == 2 }, time.Second, 5*time.Millisecond)
	r.mu.Lock()
	assert.Equal(t, "Lima", r.calls[1].Query)
	r.mu.Unlock()
}

func TestWorker_GenerationsIncrease(t *testing.T) {
	w := NewWorker(newBlockingRefresher(), 0, zerolog.Nop())

	a := w.Submit(weather.TriggerStartup, "ignored")
	b := w.Submit(weather.TriggerManual, "")

	assert.Empty(t, a.Query)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.Generation, b.Generation)
	assert.Equal(t, b.Generation, w.Generation())
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	w := NewWorker(newBlockingRefresher(), 0, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}
