package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCallTimeout bounds each upstream call made by the Aggregator.
const DefaultCallTimeout = 8 * time.Second

// Aggregator fans out to the three upstream sources and merges whatever comes back.
type Aggregator struct {
	conditions  ConditionsSource
	pollutants  PollutantSource
	index       IndexSource
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewAggregator creates an Aggregator. Any source may be nil; its fields then stay unknown.
func NewAggregator(conditions ConditionsSource, pollutants PollutantSource, index IndexSource, callTimeout time.Duration, logger zerolog.Logger) *Aggregator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Aggregator{
		conditions:  conditions,
		pollutants:  pollutants,
		index:       index,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Aggregate never fails as a whole: a failing source only leaves its own fields unknown.
func (a *Aggregator) Aggregate(ctx context.Context, loc Location) Snapshot {
	var (
		wg         sync.WaitGroup
		weather    WeatherReading
		pollutants AirQualityReading
		index      AirQualityReading
		statuses   = make([]SourceStatus, 3)
	)

	if a.conditions != nil {
		a.run(ctx, &wg, &statuses[0], a.conditions.Name(), func(ctx context.Context) (err error) {
			weather, err = a.conditions.CurrentWeather(ctx, loc.Coordinates)
			return err
		})
	} else {
		statuses[0] = notConfigured("conditions")
	}

	if a.pollutants != nil {
		a.run(ctx, &wg, &statuses[1], a.pollutants.Name(), func(ctx context.Context) (err error) {
			pollutants, err = a.pollutants.Pollutants(ctx, loc.Coordinates)
			return err
		})
	} else {
		statuses[1] = notConfigured("pollutants")
	}

	if a.index != nil {
		a.run(ctx, &wg, &statuses[2], a.index.Name(), func(ctx context.Context) (err error) {
			index, err = a.index.AirQualityIndex(ctx, loc.Coordinates)
			return err
		})
	} else {
		statuses[2] = notConfigured("aqi")
	}

	wg.Wait()

	if !statuses[0].OK {
		weather = WeatherReading{}
	}
	if !statuses[1].OK {
		pollutants = AirQualityReading{}
	}
	if !statuses[2].OK {
		index = AirQualityReading{}
	}

	return MergeReadings(loc, weather, pollutants, index, statuses, time.Now().UTC())
}

// run executes fn in its own goroutine under its own timeout and records the outcome in status.
func (a *Aggregator) run(ctx context.Context, wg *sync.WaitGroup, status *SourceStatus, name string, fn func(ctx context.Context) error) {
	status.Name = name
	wg.Add(1)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		defer cancel()

		start := time.Now()
		if err := safeCall(callCtx, fn); err != nil {
			// Log and continue; the other sources are unaffected.
			a.logger.Warn().Err(err).Str("source", name).Dur("elapsed", time.Since(start)).Msg("upstream call failed")
			status.Error = err.Error()
			return
		}
		status.OK = true
		a.logger.Debug().Str("source", name).Dur("elapsed", time.Since(start)).Msg("upstream call succeeded")
	}()
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in upstream call: %v", r)
		}
	}()
	return fn(ctx)
}

func notConfigured(name string) SourceStatus {
	return SourceStatus{Name: name, Error: "source not configured"}
}

// MergeReadings combines the three partial results by field union. Each source owns
// disjoint fields: weather from conditions, PM2.5/PM10 from pollutants, AQI and the
// dominant pollutant from the index. A dominant pollutant reported by the pollutant
// source is only used when the index source has none.
func MergeReadings(loc Location, weather WeatherReading, pollutants, index AirQualityReading, sources []SourceStatus, fetchedAt time.Time) Snapshot {
	if weather.ConditionKind == "" {
		weather.ConditionKind = ConditionUnknown
	}

	aq := AirQualityReading{
		AQI:               index.AQI,
		DominantPollutant: firstNonEmpty(index.DominantPollutant, pollutants.DominantPollutant),
		PM25:              pollutants.PM25,
		PM10:              pollutants.PM10,
	}

	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	return Snapshot{
		Location:   loc,
		Weather:    weather,
		AirQuality: aq,
		Sources:    append([]SourceStatus(nil), sources...),
		FetchedAt:  fetchedAt,
	}
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
