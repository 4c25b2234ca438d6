// Package memory — хранилище в памяти процесса для STORE_BACKEND=memory и тестов.
// Все операции выполняются под одним мьютексом, поэтому сохранение улова
// и перестановка флага рекорда атомарны так же, как транзакция в PostgreSQL.
// Данные живут до рестарта.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/fishing-server/internal/features/admin"
	"serotonyl.ru/fishing-server/internal/features/catalog"
	"serotonyl.ru/fishing-server/internal/features/fishing"
	"serotonyl.ru/fishing-server/internal/features/players"
)

type pairKey struct {
	player  string
	species string
}

// Store реализует catalog.Source, fishing.Store, fishing.History, players.Source
// и admin.Attempts.
type Store struct {
	mu      sync.Mutex
	species []catalog.Species
	catches []fishing.Catch
	best    map[pairKey]int // индекс улова-рекорда в catches
	players map[string]*players.Stats
	logins  []admin.LoginAttempt
	now     func() time.Time
	failErr error
}

// NewStore создаёт хранилище с заданным справочником.
func NewStore(species []catalog.Species) *Store {
	s := &Store{
		best:    make(map[pairKey]int),
		players: make(map[string]*players.Stats),
		now:     time.Now,
	}
	s.SetSpecies(species)
	return s
}

// SetSpecies заменяет справочник.
func (s *Store) SetSpecies(species []catalog.Species) {
	cp := make([]catalog.Species, len(species))
	copy(cp, species)

	s.mu.Lock()
	s.species = cp
	s.mu.Unlock()
}

// Fail заставляет все операции возвращать err (nil — снять отказ).
func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failErr
}

func (s *Store) ListSpecies(ctx context.Context) ([]catalog.Species, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]catalog.Species, len(s.species))
	copy(out, s.species)
	return out, nil
}

func (s *Store) BestWeight(ctx context.Context, playerID, speciesID string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return 0, false, err
	}
	i, ok := s.best[pairKey{playerID, speciesID}]
	if !ok {
		return 0, false, nil
	}
	return s.catches[i].Weight, true, nil
}

// InsertCatch пересчитывает рекорд под мьютексом: ничья рекордом не считается.
func (s *Store) InsertCatch(ctx context.Context, c fishing.NewCatch) (*fishing.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	key := pairKey{c.PlayerID, c.SpeciesID}
	prev, hasPrev := s.best[key]
	isBest := !hasPrev || c.Weight > s.catches[prev].Weight

	now := s.now()
	saved := fishing.Catch{
		ID:             uuid.NewString(),
		PlayerID:       c.PlayerID,
		SpeciesID:      c.SpeciesID,
		Weight:         c.Weight,
		CaughtAt:       now,
		IsPersonalBest: isBest,
		PointsEarned:   c.Points,
	}
	s.catches = append(s.catches, saved)
	if isBest {
		if hasPrev {
			s.catches[prev].IsPersonalBest = false
		}
		s.best[key] = len(s.catches) - 1
	}

	p, ok := s.players[c.PlayerID]
	if !ok {
		created := now
		p = &players.Stats{PlayerID: c.PlayerID, CreatedAt: &created}
		s.players[c.PlayerID] = p
	}
	p.TotalCatches++
	p.TotalPoints += c.Points

	return &saved, nil
}

func (s *Store) RecentCatches(ctx context.Context, playerID string, limit int) ([]fishing.CatchView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	byID := make(map[string]catalog.Species, len(s.species))
	for _, sp := range s.species {
		byID[sp.ID] = sp
	}

	// Обход с конца: новые уловы первыми
	var out []fishing.CatchView
	for i := len(s.catches) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.catches[i]
		if c.PlayerID != playerID {
			continue
		}
		sp, ok := byID[c.SpeciesID]
		if !ok {
			// JOIN в PostgreSQL тоже отбросит улов удалённого вида
			continue
		}
		out = append(out, fishing.CatchView{Catch: c, SpeciesName: sp.Name, Rarity: sp.Rarity})
	}
	return out, nil
}

func (s *Store) PlayerStats(ctx context.Context, playerID string) (*players.Stats, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return nil, false, err
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (s *Store) LogAttempt(ctx context.Context, client string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	s.logins = append(s.logins, admin.LoginAttempt{
		ID:          int64(len(s.logins) + 1),
		Client:      client,
		AttemptTime: s.now(),
		Success:     success,
	})
	return nil
}

func (s *Store) RecentFailures(ctx context.Context, client string, period time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return 0, err
	}
	since := s.now().Add(-period)
	n := 0
	for _, a := range s.logins {
		if a.Client == client && !a.Success && a.AttemptTime.After(since) {
			n++
		}
	}
	return n, nil
}

// PersonalBests — число уловов пары, отмеченных рекордом (для проверок инварианта).
func (s *Store) PersonalBests(playerID, speciesID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.catches {
		if c.PlayerID == playerID && c.SpeciesID == speciesID && c.IsPersonalBest {
			n++
		}
	}
	return n
}
