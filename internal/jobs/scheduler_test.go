package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/fishing-server/internal/throttle"
)

type countingCatalog struct {
	calls atomic.Int32
	err   error
}

func (c *countingCatalog) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingCatalog{}, nil, Config{CatalogPrewarmSchedule: "every tuesday"})
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_RegistersSweepOnlyWithSweeper(t *testing.T) {
	cfg := Config{CatalogPrewarmSchedule: "@every 1h", ThrottleSweepSchedule: "@every 1h"}

	s := NewScheduler(&countingCatalog{}, nil, cfg)
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()

	s = NewScheduler(&countingCatalog{}, throttle.NewMemoryStore(), cfg)
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestPrewarmCatalog_ErrorIsSwallowed(t *testing.T) {
	cat := &countingCatalog{err: errors.New("db down")}
	s := NewScheduler(cat, nil, Config{})
	s.prewarmCatalog(context.Background())
	assert.EqualValues(t, 1, cat.calls.Load())
}

func TestSweepThrottle(t *testing.T) {
	store := throttle.NewMemoryStore()
	now := time.Now()
	ok, err := store.Admit(context.Background(), "P1", 10, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	s := NewScheduler(&countingCatalog{}, store, Config{ThrottleRetain: time.Minute})
	s.sweepThrottle(now)
	assert.Zero(t, store.Len())
}
