package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/spaceweather/internal/weather"
)

func snapshotFor(city string, ok bool) *weather.Snapshot {
	return &weather.Snapshot{
		Location:  weather.Location{Place: weather.PlaceName{City: city}},
		Sources:   []weather.SourceStatus{{Name: "openweathermap", OK: ok}},
		FetchedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LastSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsOlderGeneration(t *testing.T) {
	s := NewMemoryStore()

	require.True(t, s.Save(weather.View{Generation: 2, Status: weather.StatusDone, Snapshot: snapshotFor("Tokyo", true)}))
	assert.False(t, s.Save(weather.View{Generation: 1, Status: weather.StatusDone, Snapshot: snapshotFor("Paris", true)}))

	v, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Generation)

	last, err := s.LastSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", last.Location.Place.City)

	// Equal generation replaces.
	assert.True(t, s.Save(weather.View{Generation: 2, Status: weather.StatusFailed}))
}

func TestMemoryStore_NotFoundKeepsLastSnapshot(t *testing.T) {
	s := NewMemoryStore()
	require.True(t, s.Save(weather.View{Generation: 1, Status: weather.StatusDone, Snapshot: snapshotFor("Paris", true)}))
	require.True(t, s.Save(weather.View{Generation: 2, Status: weather.StatusNotFound, Message: weather.MessageCityNotFound}))

	v, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, weather.StatusNotFound, v.Status)
	assert.Nil(t, v.Snapshot)

	last, err := s.LastSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "Paris", last.Location.Place.City)
}

func TestMemoryStore_FailedSnapshotNotRemembered(t *testing.T) {
	s := NewMemoryStore()
	require.True(t, s.Save(weather.View{Generation: 1, Status: weather.StatusFailed, Snapshot: snapshotFor("Lima", false)}))

	_, err := s.LastSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentSaves(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(gen uint64) {
			defer wg.Done()
			s.Save(weather.View{Generation: gen, Status: weather.StatusDone, Snapshot: snapshotFor("x", true)})
		}(uint64(i))
	}
	wg.Wait()

	v, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), v.Generation)
}
