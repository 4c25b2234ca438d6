// Package catalog — cache.go держит снимок справочника с TTL.
//
// Снимок заменяется целиком через атомарный указатель: читатели видят
// либо старый, либо новый снимок, но никогда их смесь. Если обновление не
// удалось или вернуло пустой список, отдаём прежний снимок.
package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"serotonyl.ru/fishing-server/internal/common"
)

// Source — откуда кеш берёт виды (БД или память).
type Source interface {
	ListSpecies(ctx context.Context) ([]Species, error)
}

// Snapshot — неизменяемый снимок справочника.
type Snapshot struct {
	species  []Species
	byID     map[string]int
	LoadedAt time.Time
}

func newSnapshot(species []Species, loadedAt time.Time) *Snapshot {
	byID := make(map[string]int, len(species))
	for i, sp := range species {
		byID[sp.ID] = i
	}
	return &Snapshot{species: species, byID: byID, LoadedAt: loadedAt}
}

// Species возвращает копию списка видов.
func (s *Snapshot) Species() []Species {
	if s == nil {
		return nil
	}
	out := make([]Species, len(s.species))
	copy(out, s.species)
	return out
}

// Get ищет вид по id.
func (s *Snapshot) Get(id string) (Species, bool) {
	if s == nil {
		return Species{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Species{}, false
	}
	return s.species[i], true
}

// Len — число видов в снимке.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.species)
}

// Cache — справочник видов с ленивым обновлением по TTL.
type Cache struct {
	source  Source
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	snapshot atomic.Pointer[Snapshot]
	group    singleflight.Group
}

// NewCache создаёт кеш. timeout ограничивает каждое чтение из источника.
func NewCache(source Source, ttl, timeout time.Duration) *Cache {
	return &Cache{source: source, ttl: ttl, timeout: timeout, now: time.Now}
}

// Get возвращает свежий снимок или обновляет его.
// Ошибки обновления не пробрасываются: отдаём прежний снимок, а если его
// никогда не было — пустой.
func (c *Cache) Get(ctx context.Context) *Snapshot {
	current := c.snapshot.Load()
	if current != nil && c.now().Sub(current.LoadedAt) < c.ttl {
		return current
	}

	if err := c.refresh(ctx); err != nil {
		log.WithError(err).WithField("component", "catalog").Warn("Не удалось обновить справочник, отдаём прежний снимок")
	}
	if s := c.snapshot.Load(); s != nil {
		return s
	}
	return newSnapshot(nil, time.Time{})
}

// Refresh принудительно перечитывает справочник.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// refresh перечитывает источник; одновременные вызовы схлопываются в один запрос.
func (c *Cache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("species", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		rows, err := c.source.ListSpecies(fetchCtx)
		if err != nil {
			return nil, common.StoreError("list_species", err)
		}

		valid := make([]Species, 0, len(rows))
		for _, sp := range rows {
			if err := sp.Validate(); err != nil {
				log.WithError(err).WithField("component", "catalog").Warn("Пропускаем некорректный вид")
				continue
			}
			valid = append(valid, sp)
		}
		if len(valid) == 0 {
			return nil, fmt.Errorf("источник вернул пустой справочник")
		}

		c.snapshot.Store(newSnapshot(valid, c.now()))
		log.WithField("species", len(valid)).Info("Справочник видов обновлён")
		return nil, nil
	})
	return err
}
