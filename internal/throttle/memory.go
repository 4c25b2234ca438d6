package throttle

import (
	"context"
	"sync"
	"time"
)

// playerState — окно запросов и кулдаун одного игрока.
type playerState struct {
	mu          sync.Mutex
	hits        []time.Time
	lastSuccess time.Time // нулевое значение — успешных забросов ещё не было
	inFlight    bool
	evicted     bool // удалён Sweep, нужно взять свежую запись
}

// MemoryStore хранит состояние в памяти процесса.
// Каждый игрок блокируется своим мьютексом, разные игроки не мешают друг другу.
type MemoryStore struct {
	mu      sync.Mutex
	players map[string]*playerState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]*playerState)}
}

// lock возвращает заблокированное состояние игрока, создавая его при первом обращении.
func (s *MemoryStore) lock(player string) *playerState {
	for {
		s.mu.Lock()
		st, ok := s.players[player]
		if !ok {
			st = &playerState{}
			s.players[player] = st
		}
		s.mu.Unlock()

		st.mu.Lock()
		if !st.evicted {
			return st
		}
		st.mu.Unlock()
	}
}

func (s *MemoryStore) Admit(_ context.Context, player string, limit int, window time.Duration, now time.Time) (bool, error) {
	st := s.lock(player)
	defer st.mu.Unlock()

	st.hits = pruneBefore(st.hits, now.Add(-window))
	if len(st.hits) >= limit {
		return false, nil
	}
	st.hits = append(st.hits, now)
	return true, nil
}

func (s *MemoryStore) Reserve(_ context.Context, player string, cooldown time.Duration, now time.Time) (time.Duration, error) {
	st := s.lock(player)
	defer st.mu.Unlock()

	if !st.lastSuccess.IsZero() {
		if elapsed := now.Sub(st.lastSuccess); elapsed < cooldown {
			return cooldown - elapsed, nil
		}
	}
	if st.inFlight {
		// Заброс уже выполняется: после его успеха начнётся полный кулдаун.
		return cooldown, nil
	}
	st.inFlight = true
	return 0, nil
}

func (s *MemoryStore) Arm(_ context.Context, player string, _ time.Duration, now time.Time) error {
	st := s.lock(player)
	defer st.mu.Unlock()

	st.lastSuccess = now
	st.inFlight = false
	return nil
}

func (s *MemoryStore) Release(_ context.Context, player string) error {
	st := s.lock(player)
	defer st.mu.Unlock()

	st.inFlight = false
	return nil
}

// Sweep удаляет игроков без активности дольше retain: пустое окно,
// давно прошедший кулдаун и никакого заброса в полёте.
// Возвращает число удалённых записей.
func (s *MemoryStore) Sweep(now time.Time, retain time.Duration) int {
	cutoff := now.Add(-retain)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for player, st := range s.players {
		st.mu.Lock()
		st.hits = pruneBefore(st.hits, cutoff)
		idle := len(st.hits) == 0 && !st.inFlight && !st.lastSuccess.After(cutoff)
		if idle {
			st.evicted = true
			delete(s.players, player)
			removed++
		}
		st.mu.Unlock()
	}
	return removed
}

// Len возвращает число отслеживаемых игроков.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// pruneBefore оставляет только отметки строго после cutoff (фильтрация на месте).
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	recent := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
