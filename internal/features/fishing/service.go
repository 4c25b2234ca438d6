// Package fishing — service.go проводит заброс от начала до конца:
// вид → вес → сравнение с рекордом → сохранение.
package fishing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// Store — то, что заброс требует от хранилища.
type Store interface {
	// BestWeight — лучший вес игрока для вида; found=false, если уловов не было.
	BestWeight(ctx context.Context, playerID, speciesID string) (weight float64, found bool, err error)
	// InsertCatch атомарно сохраняет улов и переставляет флаг рекорда.
	// Только один улов пары игрок+вид может быть отмечен рекордом.
	InsertCatch(ctx context.Context, c NewCatch) (*Catch, error)
}

// History — чтение истории уловов.
type History interface {
	RecentCatches(ctx context.Context, playerID string, limit int) ([]CatchView, error)
}

// Catalog — источник снимка справочника.
type Catalog interface {
	Get(ctx context.Context) *catalog.Snapshot
}

// selectorEntry привязывает таблицу выбора к снимку, из которого она построена.
type selectorEntry struct {
	snapshot *catalog.Snapshot
	selector *Selector
	err      error
}

// Service управляет забросами.
type Service struct {
	store   Store
	catalog Catalog
	rng     Rand
	timeout time.Duration

	selector atomic.Pointer[selectorEntry]
}

// NewService создаёт сервис. timeout ограничивает каждое обращение к хранилищу.
func NewService(store Store, cat Catalog, rng Rand, timeout time.Duration) *Service {
	if rng == nil {
		rng = DefaultRand
	}
	return &Service{store: store, catalog: cat, rng: rng, timeout: timeout}
}

// Cast выполняет один заброс для проверенного игрока.
// При неудаче возвращает CastResult{Success:false} и обёрнутую ошибку.
func (s *Service) Cast(ctx context.Context, playerID string) (*CastResult, error) {
	stage := StageStart

	// 1. Выбираем вид
	sel, err := s.selectorFor(s.catalog.Get(ctx))
	if err != nil {
		return s.failed(playerID, stage, ReasonNoSpecies, "Рыба сегодня не клюёт", err)
	}
	fish := sel.Pick(s.rng)
	stage = StageSpeciesSelected

	// 2. Тянем вес
	weight := SampleWeight(fish, s.rng)
	stage = StageWeightSampled

	// 3. Сравниваем с личным рекордом (ничья — не рекорд)
	best, found, err := s.bestWeight(ctx, playerID, fish.ID)
	if err != nil {
		return s.failed(playerID, stage, ReasonStoreError, "Не удалось проверить рекорд", err)
	}
	isBest := !found || weight > best
	stage = StageBestCompared

	// 4. Сохраняем
	catch, err := s.insertCatch(ctx, NewCatch{
		PlayerID:       playerID,
		SpeciesID:      fish.ID,
		Weight:         weight,
		IsPersonalBest: isBest,
		Points:         fish.Points,
	})
	if err != nil {
		return s.failed(playerID, stage, ReasonSaveError, "Не удалось сохранить улов", err)
	}
	stage = StagePersisted

	// Хранилище решает под блокировкой, его ответ главнее
	if catch.IsPersonalBest != isBest {
		log.WithFields(log.Fields{
			"player_id":  playerID,
			"species_id": fish.ID,
			"weight":     weight,
		}).Debug("Флаг рекорда пересчитан хранилищем")
	}

	log.WithFields(log.Fields{
		"player_id":        playerID,
		"species":          fish.Name,
		"rarity":           fish.Rarity.String(),
		"weight":           weight,
		"is_personal_best": catch.IsPersonalBest,
		"stage":            StageDone,
	}).Info("Улов сохранён")

	return &CastResult{
		Success:        true,
		Fish:           &fish,
		Weight:         weight,
		Points:         fish.Points,
		IsPersonalBest: catch.IsPersonalBest,
		Message:        castMessage(fish, weight, catch.IsPersonalBest),
		CatchID:        catch.ID,
	}, nil
}

// selectorFor возвращает таблицу выбора для снимка, перестраивая её при смене снимка.
func (s *Service) selectorFor(snap *catalog.Snapshot) (*Selector, error) {
	if e := s.selector.Load(); e != nil && e.snapshot == snap {
		return e.selector, e.err
	}
	sel, err := NewSelector(snap.Species())
	s.selector.Store(&selectorEntry{snapshot: snap, selector: sel, err: err})
	return sel, err
}

func (s *Service) bestWeight(ctx context.Context, playerID, speciesID string) (float64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w, found, err := s.store.BestWeight(ctx, playerID, speciesID)
	if err != nil {
		return 0, false, common.StoreError("best_weight", err)
	}
	return w, found, nil
}

func (s *Service) insertCatch(ctx context.Context, c NewCatch) (*Catch, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	catch, err := s.store.InsertCatch(ctx, c)
	if err != nil {
		return nil, common.StoreError("insert_catch", err)
	}
	return catch, nil
}

func (s *Service) failed(playerID string, stage Stage, reason, message string, err error) (*CastResult, error) {
	log.WithError(err).WithFields(log.Fields{
		"player_id": playerID,
		"stage":     stage,
		"reason":    reason,
	}).Error("Заброс не удался")

	return &CastResult{
		Success: false,
		Message: message,
		Reason:  reason,
	}, fmt.Errorf("%s: %w", reason, err)
}

// castMessage формирует текст вида «Поймана рыба «Щука»: 4.27 кг, +30 очков».
func castMessage(fish catalog.Species, weight float64, isBest bool) string {
	msg := fmt.Sprintf("Поймана рыба «%s»: %.2f кг, %s", fish.Name, weight, common.FormatPoints(fish.Points))
	if isBest {
		msg += ". Новый личный рекорд!"
	}
	return msg
}
