// Package server — middleware.go: восстановление после паники, журнал запросов,
// ограничение параллельных запросов и проверка токена.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/auth"
)

type ctxKey int

const identityKey ctxKey = iota

// identityFrom достаёт проверенного игрока из контекста запроса.
func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// statusRecorder запоминает код ответа для журнала.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// recoverPanic ловит панику обработчика и отвечает 500.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				writeError(w, http.StatusInternalServerError, "внутренняя ошибка", "INTERNAL")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// logRequest пишет метод, путь, статус и длительность. Тело и заголовки не логируются.
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		}).Debug("Запрос обработан")
	})
}

// limitInflight ограничивает число одновременно обрабатываемых запросов.
// Остальные ждут слота, пока клиент не отключится.
func limitInflight(n int, next http.Handler) http.Handler {
	slots := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "сервер перегружен", "OVERLOADED")
		}
	})
}

// requireAuth проверяет Bearer-токен и кладёт игрока в контекст.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var id *auth.Identity
			if id, err = s.verifier.Verify(token); err == nil {
				next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
				return
			}
		}
		log.WithError(err).WithField("path", r.URL.Path).Debug("Запрос без действительного токена")
		writeDomainError(w, err, "")
	}
}
