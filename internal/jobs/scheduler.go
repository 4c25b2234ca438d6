// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: прогрев справочника видов
// и чистку состояния троттлинга в памяти.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// CatalogRefresher — справочник, который можно перечитать.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// ThrottleSweeper — хранилище троттлинга, которому нужна чистка.
type ThrottleSweeper interface {
	Sweep(now time.Time, retain time.Duration) int
}

// Config — расписания и параметры задач.
type Config struct {
	CatalogPrewarmSchedule string
	ThrottleSweepSchedule  string
	// Сколько хранить неактивного игрока: не меньше окна и кулдауна.
	ThrottleRetain time.Duration
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron    *cron.Cron
	catalog CatalogRefresher
	sweeper ThrottleSweeper
	cfg     Config
}

// NewScheduler создаёт планировщик. sweeper может быть nil (Redis чистится по TTL).
func NewScheduler(catalog CatalogRefresher, sweeper ThrottleSweeper, cfg Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		catalog: catalog,
		sweeper: sweeper,
		cfg:     cfg,
	}
}

// Start регистрирует и запускает задачи. Ошибка — только если расписание некорректно.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.CatalogPrewarmSchedule, func() { s.prewarmCatalog(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание прогрева справочника %q: %w", s.cfg.CatalogPrewarmSchedule, err)
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.cfg.ThrottleSweepSchedule, func() { s.sweepThrottle(time.Now()) }); err != nil {
			return fmt.Errorf("некорректное расписание чистки троттлинга %q: %w", s.cfg.ThrottleSweepSchedule, err)
		}
	}

	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) prewarmCatalog(ctx context.Context) {
	log.Debug("[CRON] Прогрев справочника видов")
	if err := s.catalog.Refresh(ctx); err != nil {
		// Кеш продолжает отдавать прежний снимок
		log.WithError(err).Warn("[CRON] Ошибка прогрева справочника")
	}
}

func (s *Scheduler) sweepThrottle(now time.Time) {
	removed := s.sweeper.Sweep(now, s.cfg.ThrottleRetain)
	log.WithField("removed", removed).Debug("[CRON] Чистка троттлинга")
}
