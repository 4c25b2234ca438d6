package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/fishing-server/internal/auth"
	"serotonyl.ru/fishing-server/internal/db/memory"
	"serotonyl.ru/fishing-server/internal/features/admin"
	"serotonyl.ru/fishing-server/internal/features/catalog"
	"serotonyl.ru/fishing-server/internal/features/fishing"
	"serotonyl.ru/fishing-server/internal/features/players"
	"serotonyl.ru/fishing-server/internal/throttle"
)

const secret = "test-secret-with-enough-length-for-hs256"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	store   *memory.Store
	clock   *clock
	handler http.Handler
}

func newEnv(t *testing.T, settings throttle.Settings, adminHash string) *env {
	t.Helper()
	store := memory.NewStore(memory.DefaultSpecies())
	clk := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	cache := catalog.NewCache(store, time.Minute, time.Second)

	srv := New(Deps{
		Verifier:     auth.NewVerifier(secret),
		Gate:         throttle.NewGate(throttle.NewMemoryStore(), settings, throttle.WithClock(clk.Now)),
		Fishing:      fishing.NewService(store, cache, nil, time.Second),
		History:      store,
		Catalog:      cache,
		Players:      players.NewService(store, time.Second),
		Admin:        admin.NewService(store, cache, adminHash),
		MaxInflight:  8,
		StoreTimeout: time.Second,
	})
	return &env{store: store, clock: clk, handler: srv.Handler()}
}

func defaultSettings() throttle.Settings {
	return throttle.Settings{MaxRequests: 30, Window: time.Minute, Cooldown: 5 * time.Second}
}

func token(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: sub + "@example.com",
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (e *env) do(t *testing.T, method, path, bearer string, header map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	rec, body := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 9, body["species"])
}

func TestCast_Unauthenticated(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")

	rec, body := e.do(t, http.MethodPost, "/api/cast", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MISSING", body["code"])

	rec, body = e.do(t, http.MethodPost, "/api/cast", token(t, "P1", -time.Minute), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", body["code"])

	rec, body = e.do(t, http.MethodPost, "/api/cast", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
}

func TestCast_SuccessThenCooldown(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	tok := token(t, "P1", time.Hour)

	rec, body := e.do(t, http.MethodPost, "/api/cast", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["is_personal_best"])
	assert.NotNil(t, body["fish"])
	assert.NotEmpty(t, body["message"])

	e.clock.Advance(2 * time.Second)
	rec, body = e.do(t, http.MethodPost, "/api/cast", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "COOLDOWN_ACTIVE", body["code"])
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.InDelta(t, 3.0, body["remaining_seconds"], 0.01)

	e.clock.Advance(3 * time.Second)
	rec, _ = e.do(t, http.MethodPost, "/api/cast", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCast_RateLimited(t *testing.T) {
	e := newEnv(t, throttle.Settings{MaxRequests: 2, Window: time.Minute}, "")
	tok := token(t, "P1", time.Hour)

	for i := 0; i < 2; i++ {
		rec, _ := e.do(t, http.MethodPost, "/api/cast", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := e.do(t, http.MethodPost, "/api/cast", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.EqualValues(t, 60, body["retry_after_seconds"])

	// Другой игрок не затронут
	rec, _ = e.do(t, http.MethodPost, "/api/cast", token(t, "P2", time.Hour), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCast_StoreFailureDoesNotArmCooldown(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	tok := token(t, "P1", time.Hour)

	// Прогреваем справочник
	rec, _ := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	e.store.Fail(errors.New("connection refused"))
	rec, body := e.do(t, http.MethodPost, "/api/cast", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", body["code"])
	assert.Equal(t, "Не удалось проверить рекорд", body["message"])

	e.store.Fail(nil)
	rec, _ = e.do(t, http.MethodPost, "/api/cast", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "кулдаун не должен был включиться")
}

func TestCast_EmptyCatalog(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	e.store.SetSpecies(nil)

	rec, body := e.do(t, http.MethodPost, "/api/cast", token(t, "P1", time.Hour), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_SPECIES", body["code"])
}

func TestCatchesAndMe(t *testing.T) {
	e := newEnv(t, throttle.Settings{MaxRequests: 100, Window: time.Minute}, "")
	tok := token(t, "P1", time.Hour)

	for i := 0; i < 3; i++ {
		rec, _ := e.do(t, http.MethodPost, "/api/cast", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := e.do(t, http.MethodGet, "/api/catches", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["catches"], 3)

	rec, body = e.do(t, http.MethodGet, "/api/catches?limit=2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["catches"], 2)

	rec, body = e.do(t, http.MethodGet, "/api/catches?limit=0", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_LIMIT", body["code"])

	rec, body = e.do(t, http.MethodGet, "/api/catches", token(t, "P2", time.Hour), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["catches"])

	rec, body = e.do(t, http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "P1", body["player_id"])
	assert.Equal(t, "P1@example.com", body["email"])
	assert.EqualValues(t, 3, body["total_catches"])
	assert.Positive(t, body["total_points"])
}

func TestSpecies(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	rec, body := e.do(t, http.MethodGet, "/api/species", token(t, "P1", time.Hour), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list, ok := body["species"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 9)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "common", first["rarity"])
}

func TestAdminRefresh(t *testing.T) {
	hash, err := admin.HashPassword("operator-pw")
	require.NoError(t, err)
	e := newEnv(t, defaultSettings(), hash)

	rec, body := e.do(t, http.MethodPost, "/admin/catalog/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "PASSWORD_REQUIRED", body["code"])

	rec, body = e.do(t, http.MethodPost, "/admin/catalog/refresh", "", map[string]string{"X-Admin-Password": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "WRONG_PASSWORD", body["code"])

	e.store.SetSpecies(memory.DefaultSpecies()[:2])
	rec, body = e.do(t, http.MethodPost, "/admin/catalog/refresh", "", map[string]string{"X-Admin-Password": "operator-pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, body["species"])
}

func TestAdminDisabled(t *testing.T) {
	e := newEnv(t, defaultSettings(), "")
	rec, _ := e.do(t, http.MethodPost, "/admin/catalog/refresh", "", map[string]string{"X-Admin-Password": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	h := recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestLimitInflight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := limitInflight(1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		done <- rec.Code
	}()
	<-entered

	// Второй запрос ждёт слота, пока клиент не уйдёт
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestErrorStatus_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("pq: relation \"secret_table\" does not exist"), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret_table")
}
