// Package config загружает конфигурацию сервера из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Бэкенды хранилищ.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	ThrottleBackendMemory = "memory"
	ThrottleBackendRedis  = "redis"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Auth ---
	// Секрет для проверки HS256-подписи токенов провайдера идентификации
	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET" required:"true"`

	// --- Database ---
	// Дефолт "postgres" — имя сервиса в docker-compose, для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"fishing"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"fishing_game"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// postgres | memory (memory — только для разработки, данные живут до рестарта)
	StoreBackend string        `envconfig:"STORE_BACKEND" default:"postgres"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"3s"`

	// --- Redis (хранилище троттлинга для нескольких инстансов) ---
	ThrottleBackend string `envconfig:"THROTTLE_BACKEND" default:"memory"`
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Сколько запросов обрабатываем параллельно, остальные ждут слота.
	HTTPMaxInflight int `envconfig:"HTTP_MAX_INFLIGHT" default:"256"`

	// --- Admin ---
	// Пустой хеш отключает админские маршруты.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	CastCooldown      time.Duration `envconfig:"CAST_COOLDOWN" default:"5s"`

	// --- Catalog ---
	CatalogTTL time.Duration `envconfig:"CATALOG_TTL" default:"5m"`

	// --- Jobs ---
	CatalogPrewarmSchedule string `envconfig:"CATALOG_PREWARM_SCHEDULE" default:"@every 4m"`
	ThrottleSweepSchedule  string `envconfig:"THROTTLE_SWEEP_SCHEDULE" default:"@every 5m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AuthJWTSecret) == "" {
		return fmt.Errorf("AUTH_JWT_SECRET не задан")
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS должен быть > 0")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW должен быть > 0")
	}
	if c.CastCooldown < 0 {
		return fmt.Errorf("CAST_COOLDOWN не может быть отрицательным")
	}
	if c.CatalogTTL <= 0 {
		return fmt.Errorf("CATALOG_TTL должен быть > 0")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT должен быть > 0")
	}
	if c.HTTPMaxInflight <= 0 {
		return fmt.Errorf("HTTP_MAX_INFLIGHT должен быть > 0")
	}
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("неизвестный STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.ThrottleBackend {
	case ThrottleBackendMemory, ThrottleBackendRedis:
	default:
		return fmt.Errorf("неизвестный THROTTLE_BACKEND %q", c.ThrottleBackend)
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.ThrottleBackend = strings.ToLower(strings.TrimSpace(cfg.ThrottleBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
