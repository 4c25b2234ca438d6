package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript — скользящее окно на ZSET.
// KEYS[1] = ключ окна игрока
// ARGV[1] = now (мс), ARGV[2] = окно (мс), ARGV[3] = лимит, ARGV[4] = уникальный member
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= limit then
    return 0
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return 1
`)

// reserveScript — проверка кулдауна и захват слота выполняемой операции.
// KEYS[1] = время последнего успеха, KEYS[2] = слот в полёте
// ARGV[1] = now (мс), ARGV[2] = кулдаун (мс), ARGV[3] = время жизни слота (мс)
// Возвращает оставшийся кулдаун в мс, 0 — слот захвачен.
var reserveScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local cooldown = tonumber(ARGV[2])
local lease = tonumber(ARGV[3])

local last = tonumber(redis.call("GET", KEYS[1]))
if last and now - last < cooldown then
    return cooldown - (now - last)
end
if redis.call("EXISTS", KEYS[2]) == 1 then
    return cooldown
end
redis.call("SET", KEYS[2], "1", "PX", lease)
return 0
`)

// DefaultLease — сколько живёт захваченный слот, если процесс умер, не освободив его.
const DefaultLease = 30 * time.Second

// RedisStore хранит состояние в Redis, чтобы лимиты работали на всех инстансах.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	lease  time.Duration
}

// NewRedisStore создаёт хранилище поверх готового клиента.
func NewRedisStore(client redis.UniversalClient, lease time.Duration) *RedisStore {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisStore{client: client, prefix: "throttle", lease: lease}
}

func (s *RedisStore) windowKey(player string) string {
	return fmt.Sprintf("%s:window:%s", s.prefix, player)
}

func (s *RedisStore) lastKey(player string) string {
	return fmt.Sprintf("%s:last:%s", s.prefix, player)
}

func (s *RedisStore) inFlightKey(player string) string {
	return fmt.Sprintf("%s:inflight:%s", s.prefix, player)
}

func (s *RedisStore) Admit(ctx context.Context, player string, limit int, window time.Duration, now time.Time) (bool, error) {
	res, err := admitScript.Run(ctx, s.client,
		[]string{s.windowKey(player)},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis admit: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) Reserve(ctx context.Context, player string, cooldown time.Duration, now time.Time) (time.Duration, error) {
	res, err := reserveScript.Run(ctx, s.client,
		[]string{s.lastKey(player), s.inFlightKey(player)},
		now.UnixMilli(), cooldown.Milliseconds(), s.lease.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis reserve: %w", err)
	}
	return time.Duration(res) * time.Millisecond, nil
}

func (s *RedisStore) Arm(ctx context.Context, player string, cooldown time.Duration, now time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.lastKey(player), now.UnixMilli(), cooldown)
		pipe.Del(ctx, s.inFlightKey(player))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis arm: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, player string) error {
	if err := s.client.Del(ctx, s.inFlightKey(player)).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
