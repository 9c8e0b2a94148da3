// Package refresh serializes refresh cycles through a single background worker.
package refresh

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/spaceweather/internal/weather"
)

// DefaultCycleTimeout bounds one whole cycle: device wait, geocoding and aggregation.
const DefaultCycleTimeout = 45 * time.Second

// Refresher runs one refresh cycle. *weather.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, req weather.Request) weather.View
}

// Worker runs at most one cycle at a time and keeps a single pending slot.
// A new request replaces the pending one unless the pending one has a higher
// trigger priority, so a search is never displaced by a periodic tick.
type Worker struct {
	refresher    Refresher
	cycleTimeout time.Duration
	logger       zerolog.Logger

	generation atomic.Uint64
	wake       chan struct{}

	mu      sync.Mutex
	pending *weather.Request
	busy    bool
}

func NewWorker(refresher Refresher, cycleTimeout time.Duration, logger zerolog.Logger) *Worker {
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}
	return &Worker{
		refresher:    refresher,
		cycleTimeout: cycleTimeout,
		logger:       logger,
		wake:         make(chan struct{}, 1),
	}
}

// Submit enqueues a cycle and returns the request that will serve it. When the
// pending request outranks the new one, the pending request is returned with
// Coalesced set and no generation is allocated. Submit never blocks.
func (w *Worker) Submit(trigger weather.Trigger, query string) weather.Request {
	req := weather.Request{
		ID:      uuid.NewString(),
		Trigger: trigger,
	}
	if trigger == weather.TriggerSearch {
		req.Query = strings.TrimSpace(query)
	}

	w.mu.Lock()
	if w.pending != nil && req.Trigger.Priority() < w.pending.Trigger.Priority() {
		kept := *w.pending
		w.mu.Unlock()

		w.logger.Debug().
			Str("trigger", string(req.Trigger)).
			Uint64("pending", kept.Generation).
			Str("pending_trigger", string(kept.Trigger)).
			Msg("refresh coalesced into pending request")
		kept.Coalesced = true
		return kept
	}
	req.Generation = w.generation.Add(1)
	if w.pending != nil {
		w.logger.Debug().
			Uint64("replaced", w.pending.Generation).
			Uint64("generation", req.Generation).
			Msg("pending refresh replaced")
	}
	w.pending = &req
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return req
}

// Run processes requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.wake:
		}

		for {
			req, ok := w.take()
			if !ok {
				break
			}
			w.run(ctx, req)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// State reports whether a cycle is in flight.
func (w *Worker) State() weather.CycleStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return weather.StatusFetching
	}
	return weather.StatusIdle
}

// Generation returns the last generation handed out.
func (w *Worker) Generation() uint64 {
	return w.generation.Load()
}

func (w *Worker) take() (weather.Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending == nil {
		w.busy = false
		return weather.Request{}, false
	}
	req := *w.pending
	w.pending = nil
	w.busy = true
	return req, true
}

func (w *Worker) run(ctx context.Context, req weather.Request) {
	ctx, cancel := context.WithTimeout(ctx, w.cycleTimeout)
	defer cancel()

	view := w.refresher.Refresh(ctx, req)
	w.logger.Debug().
		Uint64("generation", view.Generation).
		Str("status", string(view.Status)).
		Msg("refresh finished")
}
