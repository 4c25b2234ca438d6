// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: выбирает хранилища, создаёт сервисы,
// HTTP-сервер и планировщик задач.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/auth"
	"serotonyl.ru/fishing-server/internal/config"
	"serotonyl.ru/fishing-server/internal/db/memory"
	"serotonyl.ru/fishing-server/internal/db/postgres"
	"serotonyl.ru/fishing-server/internal/features/admin"
	"serotonyl.ru/fishing-server/internal/features/catalog"
	"serotonyl.ru/fishing-server/internal/features/fishing"
	"serotonyl.ru/fishing-server/internal/features/players"
	"serotonyl.ru/fishing-server/internal/jobs"
	"serotonyl.ru/fishing-server/internal/server"
	"serotonyl.ru/fishing-server/internal/throttle"
)

// App содержит все компоненты приложения.
type App struct {
	HTTP      *http.Server
	Scheduler *jobs.Scheduler

	closers []func()
}

type catchStore interface {
	fishing.Store
	fishing.History
}

// stores — реализации хранилищ для выбранного бэкенда.
type stores struct {
	species  catalog.Source
	catches  catchStore
	players  players.Source
	attempts admin.Attempts
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище ===
	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// === 2. Троттлинг ===
	throttleStore, sweeper, err := a.openThrottle(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	gate := throttle.NewGate(throttleStore, throttle.Settings{
		MaxRequests: cfg.RateLimitRequests,
		Window:      cfg.RateLimitWindow,
		Cooldown:    cfg.CastCooldown,
	})

	// === 3. Сервисы ===
	cache := catalog.NewCache(st.species, cfg.CatalogTTL, cfg.StoreTimeout)
	fishingService := fishing.NewService(st.catches, cache, fishing.DefaultRand, cfg.StoreTimeout)
	playerService := players.NewService(st.players, cfg.StoreTimeout)
	adminService := admin.NewService(st.attempts, cache, cfg.AdminPasswordHash)
	if !adminService.Enabled() {
		log.Warn("ADMIN_PASSWORD_HASH не задан — админ-маршруты отключены")
	}

	// Прогреваем справочник; при ошибке сервер всё равно стартует
	if err := cache.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Справочник не загружен при старте, повторим по запросу")
	}

	// === 4. HTTP ===
	srv := server.New(server.Deps{
		Verifier:     auth.NewVerifier(cfg.AuthJWTSecret),
		Gate:         gate,
		Fishing:      fishingService,
		History:      st.catches,
		Catalog:      cache,
		Players:      playerService,
		Admin:        adminService,
		MaxInflight:  cfg.HTTPMaxInflight,
		StoreTimeout: cfg.StoreTimeout,
	})
	a.HTTP = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// === 5. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(cache, sweeper, jobs.Config{
		CatalogPrewarmSchedule: cfg.CatalogPrewarmSchedule,
		ThrottleSweepSchedule:  cfg.ThrottleSweepSchedule,
		ThrottleRetain:         max(cfg.RateLimitWindow, cfg.CastCooldown),
	})

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn("STORE_BACKEND=memory: данные живут до рестарта")
		mem := memory.NewStore(memory.DefaultSpecies())
		return &stores{species: mem, catches: mem, players: mem, attempts: mem}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	return &stores{
		species:  catalog.NewRepository(pool),
		catches:  fishing.NewRepository(pool),
		players:  players.NewRepository(pool),
		attempts: admin.NewRepository(pool),
	}, nil
}

// openThrottle возвращает хранилище троттлинга и, для памяти, того, кого нужно чистить.
func (a *App) openThrottle(ctx context.Context, cfg *config.Config) (throttle.Store, jobs.ThrottleSweeper, error) {
	if cfg.ThrottleBackend == config.ThrottleBackendMemory {
		mem := throttle.NewMemoryStore()
		return mem, mem, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis недоступен (%s): %w", cfg.RedisAddr, err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("Троттлинг хранится в Redis")

	return throttle.NewRedisStore(client, throttle.DefaultLease), nil, nil
}

// Close освобождает соединения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
