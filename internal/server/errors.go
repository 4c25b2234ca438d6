// Package server — errors.go переводит ошибки сервера в HTTP-ответы.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/admin"
)

// APIError — стандартный ответ об ошибке.
type APIError struct {
	Error             string   `json:"error"`
	Code              string   `json:"code,omitempty"`
	Message           string   `json:"message,omitempty"`
	RetryAfterSeconds *int     `json:"retry_after_seconds,omitempty"`
	RemainingSeconds  *float64 `json:"remaining_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	writeJSON(w, code, APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// errorStatus — HTTP-статус и машинный код для ошибки.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		return http.StatusUnauthorized, "TOKEN_MISSING"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED"
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, common.ErrCooldownActive):
		return http.StatusTooManyRequests, "COOLDOWN_ACTIVE"
	case errors.Is(err, common.ErrCatalogEmpty):
		return http.StatusServiceUnavailable, "NO_SPECIES"
	case errors.Is(err, common.ErrStoreTimeout):
		return http.StatusServiceUnavailable, "STORE_TIMEOUT"
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "REQUEST_CANCELED"
	case errors.Is(err, admin.ErrDisabled):
		return http.StatusNotFound, "ADMIN_DISABLED"
	case errors.Is(err, admin.ErrWrongPassword):
		return http.StatusForbidden, "WRONG_PASSWORD"
	case errors.Is(err, admin.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeDomainError пишет ответ по ошибке. message, если не пуст, заменяет текст ошибки.
// Для отказов троттлинга добавляет Retry-After и время до повтора.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	code, codeStr := errorStatus(err)

	body := APIError{Error: err.Error(), Code: codeStr, Message: message}
	if code == http.StatusInternalServerError {
		// Внутренности наружу не отдаём
		body.Error = common.ErrInternal.Error()
	}
	if body.Message == "" {
		body.Message = body.Error
	}

	var (
		rateErr     *common.RateLimitError
		cooldownErr *common.CooldownError
	)
	switch {
	case errors.As(err, &cooldownErr):
		remaining := math.Round(cooldownErr.Remaining.Seconds()*10) / 10
		body.RemainingSeconds = &remaining
		setRetryAfter(w, &body, cooldownErr.Remaining)
	case errors.As(err, &rateErr):
		setRetryAfter(w, &body, rateErr.Window)
	}

	writeJSON(w, code, body)
}

func setRetryAfter(w http.ResponseWriter, body *APIError, d time.Duration) {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	body.RetryAfterSeconds = &secs
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}
