package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrCityNotFound is returned by a Locator when an explicit search has no usable match.
	ErrCityNotFound = errors.New("city not found")
	// ErrUnresolved is returned by a Locator when every auto-detection stage failed.
	ErrUnresolved = errors.New("unable to resolve location")
)

// Messages shown by the presentation layer for cycles without data.
const (
	MessageCityNotFound = "City not found"
	MessageUnavailable  = "Unable to fetch data"
)

// Service runs refresh cycles: resolve a location, aggregate readings, publish a View.
type Service struct {
	locator    Locator
	aggregator *Aggregator
	store      Store
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(locator Locator, aggregator *Aggregator, store Store, logger zerolog.Logger) *Service {
	return &Service{
		locator:    locator,
		aggregator: aggregator,
		store:      store,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Refresh executes one cycle for req and publishes the resulting View to the store.
// It never returns an error: every failure becomes a View status.
func (s *Service) Refresh(ctx context.Context, req Request) (view View) {
	log := s.logger.With().
		Str("request_id", req.ID).
		Uint64("generation", req.Generation).
		Str("trigger", string(req.Trigger)).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("refresh cycle aborted")
			view = s.newView(req, StatusError)
			view.Message = fmt.Sprintf("Error: %v", r)
		}
		if s.store != nil && !s.store.Save(view) {
			log.Debug().Msg("view superseded by a newer generation")
		}
	}()

	start := time.Now()
	log.Debug().Str("query", req.Query).Msg("refresh cycle started")

	city := ""
	if req.Trigger == TriggerSearch {
		city = strings.TrimSpace(req.Query)
	}

	loc, err := s.locator.Resolve(ctx, city)
	if err != nil {
		switch {
		case errors.Is(err, ErrCityNotFound):
			log.Info().Str("query", city).Msg("search returned no match")
			view = s.newView(req, StatusNotFound)
			view.Message = MessageCityNotFound
		default:
			log.Warn().Err(err).Msg("location resolution failed")
			view = s.newView(req, StatusFailed)
			view.Message = MessageUnavailable
		}
		return view
	}

	snap := s.aggregator.Aggregate(ctx, loc)

	view = s.newView(req, statusFor(snap))
	view.Snapshot = &snap
	if view.Status == StatusFailed {
		view.Message = MessageUnavailable
	}

	log.Info().
		Str("status", string(view.Status)).
		Str("source", string(loc.Source)).
		Str("city", loc.Place.City).
		Int("sources_ok", snap.Succeeded()).
		Dur("elapsed", time.Since(start)).
		Msg("refresh cycle completed")
	return view
}

// Conditions aggregates readings for explicit coordinates without publishing them.
func (s *Service) Conditions(ctx context.Context, c Coordinates) Snapshot {
	return s.aggregator.Aggregate(ctx, Location{Coordinates: c})
}

// Latest delegates to the underlying store.
func (s *Service) Latest() (View, error) {
	return s.store.Latest()
}

// LastSnapshot delegates to the underlying store.
func (s *Service) LastSnapshot() (Snapshot, error) {
	return s.store.LastSnapshot()
}

func (s *Service) newView(req Request, status CycleStatus) View {
	return View{
		Generation: req.Generation,
		RequestID:  req.ID,
		Trigger:    req.Trigger,
		Query:      req.Query,
		Status:     status,
		UpdatedAt:  s.now(),
	}
}

func statusFor(snap Snapshot) CycleStatus {
	switch ok := snap.Succeeded(); {
	case ok == len(snap.Sources) && ok > 0:
		return StatusDone
	case ok > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
