package throttle

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/common"
)

// Outcome — типизированный результат пропускаемой операции.
// Кулдаун запускается только когда Succeeded() == true и ошибки нет.
type Outcome interface {
	Succeeded() bool
}

// Check — одна ступень конвейера допуска.
type Check interface {
	Name() string
	Admit(ctx context.Context, player string, now time.Time) error
}

// Finisher — ступень, которой нужен исход операции после допуска.
type Finisher interface {
	Finish(ctx context.Context, player string, now time.Time, succeeded bool) error
}

// RateLimit — скользящее окно: не больше Limit запросов за Window.
// Отметка записывается при допуске и не откатывается при неудаче операции.
type RateLimit struct {
	Store  Store
	Limit  int
	Window time.Duration
}

func (r *RateLimit) Name() string { return "rate_limit" }

func (r *RateLimit) Admit(ctx context.Context, player string, now time.Time) error {
	ok, err := r.Store.Admit(ctx, player, r.Limit, r.Window, now)
	if err != nil {
		return common.StoreError("throttle admit", err)
	}
	if !ok {
		return &common.RateLimitError{Limit: r.Limit, Window: r.Window}
	}
	return nil
}

// Cooldown — минимальная пауза между успешными операциями игрока.
// Один игрок не может иметь две операции в полёте одновременно.
type Cooldown struct {
	Store  Store
	Period time.Duration
}

func (c *Cooldown) Name() string { return "cooldown" }

func (c *Cooldown) Admit(ctx context.Context, player string, now time.Time) error {
	remaining, err := c.Store.Reserve(ctx, player, c.Period, now)
	if err != nil {
		return common.StoreError("throttle reserve", err)
	}
	if remaining > 0 {
		return &common.CooldownError{Remaining: remaining}
	}
	return nil
}

func (c *Cooldown) Finish(ctx context.Context, player string, now time.Time, succeeded bool) error {
	if succeeded {
		return c.Store.Arm(ctx, player, c.Period, now)
	}
	return c.Store.Release(ctx, player)
}

// Settings — параметры троттлинга.
type Settings struct {
	MaxRequests int
	Window      time.Duration
	Cooldown    time.Duration
}

// Gate — упорядоченный конвейер проверок перед операцией:
// сначала окно запросов, затем кулдаун.
type Gate struct {
	checks []Check
	now    func() time.Time
}

// Option настраивает Gate.
type Option func(*Gate)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate собирает конвейер. Нулевой кулдаун отключает вторую ступень.
func NewGate(store Store, s Settings, opts ...Option) *Gate {
	g := &Gate{now: time.Now}
	g.checks = append(g.checks, &RateLimit{Store: store, Limit: s.MaxRequests, Window: s.Window})
	if s.Cooldown > 0 {
		g.checks = append(g.checks, &Cooldown{Store: store, Period: s.Cooldown})
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewPipeline собирает конвейер из произвольных ступеней в заданном порядке.
func NewPipeline(checks []Check, opts ...Option) *Gate {
	g := &Gate{checks: checks, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// admit прогоняет ступени по порядку и останавливается на первом отказе.
// Возвращает ступени, которым нужно сообщить исход.
func (g *Gate) admit(ctx context.Context, player string) ([]Finisher, error) {
	now := g.now()
	var pending []Finisher
	for _, check := range g.checks {
		if err := check.Admit(ctx, player, now); err != nil {
			g.finish(ctx, player, pending, false)
			logDenied(player, check.Name(), err)
			return nil, err
		}
		if f, ok := check.(Finisher); ok {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

// finish сообщает исход ступеням. Отмена контекста вызывающим не должна
// оставить слот захваченным, поэтому работаем без отмены.
func (g *Gate) finish(ctx context.Context, player string, pending []Finisher, succeeded bool) {
	if len(pending) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	now := g.now()
	for _, f := range pending {
		if err := f.Finish(ctx, player, now, succeeded); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"player_id": player,
				"succeeded": succeeded,
			}).Error("Не удалось записать исход операции в троттлинг")
		}
	}
}

// Do пропускает op через конвейер. Кулдаун запускается только после того,
// как op вернула успешный Outcome без ошибки; паника и отказ его не запускают.
func Do[T Outcome](ctx context.Context, g *Gate, player string, op func(context.Context) (T, error)) (out T, err error) {
	pending, err := g.admit(ctx, player)
	if err != nil {
		return out, err
	}

	finished := false
	defer func() {
		if !finished {
			g.finish(ctx, player, pending, false)
		}
	}()

	out, err = op(ctx)
	finished = true
	g.finish(ctx, player, pending, err == nil && out.Succeeded())
	return out, err
}

func logDenied(player, check string, err error) {
	entry := log.WithFields(log.Fields{
		"player_id": player,
		"check":     check,
	})
	var rl *common.RateLimitError
	var cd *common.CooldownError
	switch {
	case errors.As(err, &rl):
		entry.WithField("limit", rl.Limit).Debug("Запрос отклонён лимитом")
	case errors.As(err, &cd):
		entry.WithField("remaining", cd.Remaining).Debug("Запрос отклонён кулдауном")
	default:
		entry.WithError(err).Warn("Ошибка хранилища троттлинга")
	}
}
