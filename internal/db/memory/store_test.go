package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/fishing-server/internal/features/fishing"
)

func TestInsertCatch_PersonalBestMoves(t *testing.T) {
	s := NewStore(DefaultSpecies())
	ctx := context.Background()
	sp := DefaultSpecies()[0].ID

	first, err := s.InsertCatch(ctx, fishing.NewCatch{PlayerID: "P1", SpeciesID: sp, Weight: 1.0, Points: 10})
	require.NoError(t, err)
	assert.True(t, first.IsPersonalBest)

	tie, err := s.InsertCatch(ctx, fishing.NewCatch{PlayerID: "P1", SpeciesID: sp, Weight: 1.0, Points: 10})
	require.NoError(t, err)
	assert.False(t, tie.IsPersonalBest)

	heavier, err := s.InsertCatch(ctx, fishing.NewCatch{PlayerID: "P1", SpeciesID: sp, Weight: 1.2, Points: 10})
	require.NoError(t, err)
	assert.True(t, heavier.IsPersonalBest)

	best, found, err := s.BestWeight(ctx, "P1", sp)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1.2, best)
	assert.Equal(t, 1, s.PersonalBests("P1", sp))

	stats, found, err := s.PlayerStats(ctx, "P1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), stats.TotalCatches)
	assert.Equal(t, int64(30), stats.TotalPoints)
	assert.NotNil(t, stats.CreatedAt)
}

func TestInsertCatch_ConcurrentKeepsOneBest(t *testing.T) {
	s := NewStore(DefaultSpecies())
	sp := DefaultSpecies()[1].ID

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.InsertCatch(context.Background(), fishing.NewCatch{
				PlayerID: "P1", SpeciesID: sp, Weight: float64(i%17) / 10, Points: 1,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, s.PersonalBests("P1", sp))
	best, _, err := s.BestWeight(context.Background(), "P1", sp)
	require.NoError(t, err)
	assert.Equal(t, 1.6, best)
}

func TestRecentCatches_NewestFirstWithLimit(t *testing.T) {
	species := DefaultSpecies()
	s := NewStore(species)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.InsertCatch(ctx, fishing.NewCatch{PlayerID: "P1", SpeciesID: species[i].ID, Weight: 1, Points: 1})
		require.NoError(t, err)
	}
	_, err := s.InsertCatch(ctx, fishing.NewCatch{PlayerID: "P2", SpeciesID: species[0].ID, Weight: 1, Points: 1})
	require.NoError(t, err)

	got, err := s.RecentCatches(ctx, "P1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, species[4].Name, got[0].SpeciesName)
	assert.Equal(t, species[4].Rarity, got[0].Rarity)
	assert.Equal(t, species[2].Name, got[2].SpeciesName)
}

func TestStore_FailAndCancel(t *testing.T) {
	s := NewStore(DefaultSpecies())
	boom := errors.New("boom")

	s.Fail(boom)
	_, err := s.ListSpecies(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = s.InsertCatch(context.Background(), fishing.NewCatch{PlayerID: "P1"})
	assert.ErrorIs(t, err, boom)

	s.Fail(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.BestWeight(ctx, "P1", "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultSpecies_StableAndValid(t *testing.T) {
	a, b := DefaultSpecies(), DefaultSpecies()
	require.Len(t, a, 9)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.NoError(t, a[i].Validate(), a[i].Name)
	}
}

func TestLoginAttempts_CountsRecentFailuresPerClient(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.LogAttempt(ctx, "a", false))
	require.NoError(t, s.LogAttempt(ctx, "a", true))
	require.NoError(t, s.LogAttempt(ctx, "b", false))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.LogAttempt(ctx, "a", false))

	n, err := s.RecentFailures(ctx, "a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.RecentFailures(ctx, "a", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
