// Package server — HTTP-транспорт игрового сервера.
// Маршруты регистрируются на стандартном http.ServeMux с шаблонами метода.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/auth"
	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/admin"
	"serotonyl.ru/fishing-server/internal/features/catalog"
	"serotonyl.ru/fishing-server/internal/features/fishing"
	"serotonyl.ru/fishing-server/internal/features/players"
	"serotonyl.ru/fishing-server/internal/throttle"
)

// Параметры истории уловов.
const (
	DefaultCatchesLimit = 50
	MaxCatchesLimit     = 100
)

// Deps — всё, что нужно транспорту.
type Deps struct {
	Verifier     *auth.Verifier
	Gate         *throttle.Gate
	Fishing      *fishing.Service
	History      fishing.History
	Catalog      *catalog.Cache
	Players      *players.Service
	Admin        *admin.Service
	MaxInflight  int
	StoreTimeout time.Duration
}

// Server обслуживает HTTP API.
type Server struct {
	verifier     *auth.Verifier
	gate         *throttle.Gate
	fishing      *fishing.Service
	history      fishing.History
	catalog      *catalog.Cache
	players      *players.Service
	admin        *admin.Service
	maxInflight  int
	storeTimeout time.Duration
}

// New создаёт сервер.
func New(d Deps) *Server {
	if d.MaxInflight <= 0 {
		d.MaxInflight = 64
	}
	return &Server{
		verifier:     d.Verifier,
		gate:         d.Gate,
		fishing:      d.Fishing,
		history:      d.History,
		catalog:      d.Catalog,
		players:      d.Players,
		admin:        d.Admin,
		maxInflight:  d.MaxInflight,
		storeTimeout: d.StoreTimeout,
	}
}

// Handler собирает маршруты и промежуточные обработчики.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/cast", s.requireAuth(s.handleCast))
	mux.HandleFunc("GET /api/species", s.requireAuth(s.handleSpecies))
	mux.HandleFunc("GET /api/catches", s.requireAuth(s.handleCatches))
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))
	if s.admin != nil && s.admin.Enabled() {
		mux.HandleFunc("POST /admin/catalog/refresh", s.handleCatalogRefresh)
	}

	return recoverPanic(logRequest(limitInflight(s.maxInflight, mux)))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "fishing",
		"species": s.catalog.Get(r.Context()).Len(),
	})
}

// handleCast — POST /api/cast: один заброс за проверенного игрока.
func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	res, err := throttle.Do(r.Context(), s.gate, id.PlayerID,
		func(ctx context.Context) (*fishing.CastResult, error) {
			return s.fishing.Cast(ctx, id.PlayerID)
		})
	if err != nil {
		msg := ""
		if res != nil {
			msg = res.Message
		}
		writeDomainError(w, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSpecies — GET /api/species: справочник из кеша.
func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Get(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"species":   snap.Species(),
		"loaded_at": snap.LoadedAt,
	})
}

// handleCatches — GET /api/catches?limit=N: последние уловы игрока.
func (s *Server) handleCatches(w http.ResponseWriter, r *http.Request) {
	limit := DefaultCatchesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit должен быть положительным числом", "BAD_LIMIT")
			return
		}
		limit = min(n, MaxCatchesLimit)
	}

	id := identityFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	catches, err := s.history.RecentCatches(ctx, id.PlayerID, limit)
	if err != nil {
		log.WithError(err).WithField("player_id", id.PlayerID).Error("Ошибка чтения истории уловов")
		writeDomainError(w, common.StoreError("recent_catches", err), "")
		return
	}
	if catches == nil {
		catches = []fishing.CatchView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"catches": catches})
}

// handleMe — GET /api/me: профиль и счётчики игрока.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	stats, err := s.players.GetStats(r.Context(), id.PlayerID)
	if err != nil {
		log.WithError(err).WithField("player_id", id.PlayerID).Error("Ошибка чтения игрока")
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player_id":     id.PlayerID,
		"email":         id.Email,
		"total_catches": stats.TotalCatches,
		"total_points":  stats.TotalPoints,
		"created_at":    stats.CreatedAt,
		"summary":       stats.Summary(),
	})
}

// handleCatalogRefresh — POST /admin/catalog/refresh с паролем в X-Admin-Password.
func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	password := r.Header.Get("X-Admin-Password")
	if password == "" {
		writeError(w, http.StatusUnauthorized, "нужен пароль оператора", "PASSWORD_REQUIRED")
		return
	}

	res, err := s.admin.RefreshCatalog(r.Context(), clientIP(r), password)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
