package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/fishing-server/internal/common"
)

// stubSource отдаёт заранее заданный ответ и считает вызовы.
type stubSource struct {
	mu      sync.Mutex
	species []Species
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *stubSource) set(species []Species, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.species, s.err = species, err
}

func (s *stubSource) ListSpecies(ctx context.Context) ([]Species, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.species, s.err
}

func carp() Species {
	return Species{ID: "carp", Name: "Карп", Rarity: RarityCommon, MinWeight: 1, MaxWeight: 2, BaseProbability: 0.9, Points: 10}
}

func kraken() Species {
	return Species{ID: "kraken", Name: "Кракен", Rarity: RarityMythic, MinWeight: 50, MaxWeight: 100, BaseProbability: 0.001, Points: 1000}
}

func newTestCache(src Source, ttl time.Duration, now *time.Time) *Cache {
	c := NewCache(src, ttl, time.Second)
	c.now = func() time.Time { return *now }
	return c
}

func TestCache_LoadsAndServesWithinTTL(t *testing.T) {
	now := time.Now()
	src := &stubSource{species: []Species{carp(), kraken()}}
	c := newTestCache(src, time.Minute, &now)

	snap := c.Get(context.Background())
	require.Equal(t, 2, snap.Len())

	now = now.Add(30 * time.Second)
	assert.Same(t, snap, c.Get(context.Background()))
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_RefreshesAfterTTL(t *testing.T) {
	now := time.Now()
	src := &stubSource{species: []Species{carp()}}
	c := newTestCache(src, time.Minute, &now)

	first := c.Get(context.Background())
	src.set([]Species{carp(), kraken()}, nil)

	now = now.Add(time.Minute)
	second := c.Get(context.Background())
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 2, second.Len())
	assert.Equal(t, now, second.LoadedAt)
}

func TestCache_StaleOnFailure(t *testing.T) {
	now := time.Now()
	src := &stubSource{species: []Species{carp()}}
	c := newTestCache(src, time.Minute, &now)
	first := c.Get(context.Background())

	now = now.Add(2 * time.Minute)
	src.set(nil, errors.New("db down"))
	assert.Same(t, first, c.Get(context.Background()))

	src.set([]Species{}, nil)
	assert.Same(t, first, c.Get(context.Background()))
}

func TestCache_EmptyWhenNeverLoaded(t *testing.T) {
	now := time.Now()
	src := &stubSource{err: errors.New("db down")}
	c := newTestCache(src, time.Minute, &now)

	snap := c.Get(context.Background())
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Len())

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestCache_FetchTimeoutIsDistinct(t *testing.T) {
	src := &stubSource{species: []Species{carp()}, delay: time.Second}
	c := NewCache(src, time.Minute, 10*time.Millisecond)

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, common.ErrStoreTimeout)
}

func TestCache_DropsInvalidSpecies(t *testing.T) {
	now := time.Now()
	broken := carp()
	broken.ID = "broken"
	broken.MinWeight, broken.MaxWeight = 5, 1
	src := &stubSource{species: []Species{carp(), broken}}
	c := newTestCache(src, time.Minute, &now)

	snap := c.Get(context.Background())
	assert.Equal(t, 1, snap.Len())
	_, ok := snap.Get("broken")
	assert.False(t, ok)
}

func TestCache_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	src := &stubSource{species: []Species{carp(), kraken()}}
	c := NewCache(src, time.Nanosecond, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := c.Get(context.Background())
				if snap.Len() != 2 {
					t.Errorf("частичный снимок: %d видов", snap.Len())
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSnapshot_SpeciesIsCopy(t *testing.T) {
	snap := newSnapshot([]Species{carp()}, time.Now())
	list := snap.Species()
	list[0].Name = "изменено"

	got, ok := snap.Get("carp")
	require.True(t, ok)
	assert.Equal(t, "Карп", got.Name)
}

func TestRarity(t *testing.T) {
	assert.True(t, RarityCommon < RarityUncommon && RarityEpic < RarityLegendary && RarityLegendary < RarityMythic)

	r, err := ParseRarity(" Legendary ")
	require.NoError(t, err)
	assert.Equal(t, RarityLegendary, r)

	_, err = ParseRarity("ultra")
	assert.Error(t, err)

	data, err := json.Marshal(kraken())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rarity":"mythic"`)

	var sp Species
	require.NoError(t, json.Unmarshal(data, &sp))
	assert.Equal(t, RarityMythic, sp.Rarity)
}

func TestSpeciesValidate(t *testing.T) {
	ok := carp()
	require.NoError(t, ok.Validate())

	same := carp()
	same.MinWeight, same.MaxWeight = 3, 3
	require.NoError(t, same.Validate())

	zero := carp()
	zero.MinWeight = 0
	assert.Error(t, zero.Validate())

	negPoints := carp()
	negPoints.Points = -1
	assert.Error(t, negPoints.Validate())
}
