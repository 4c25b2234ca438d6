// Package admin — service.go проверяет пароль оператора и перечитывает справочник.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// Attempts — журнал попыток входа.
type Attempts interface {
	LogAttempt(ctx context.Context, client string, success bool) error
	RecentFailures(ctx context.Context, client string, period time.Duration) (int, error)
}

// Catalog — то, что оператор может сделать со справочником.
type Catalog interface {
	Refresh(ctx context.Context) error
	Get(ctx context.Context) *catalog.Snapshot
}

// Service управляет операторскими действиями.
type Service struct {
	attempts     Attempts
	catalog      Catalog
	passwordHash string
}

// NewService создаёт сервис. Пустой passwordHash отключает админ-доступ.
func NewService(attempts Attempts, cat Catalog, passwordHash string) *Service {
	return &Service{attempts: attempts, catalog: cat, passwordHash: strings.TrimSpace(passwordHash)}
}

// Enabled — задан ли пароль оператора.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// VerifyPassword проверяет пароль с использованием Argon2id.
// Включает защиту от перебора: MaxFailedAttempts неудачных попыток = блокировка на AttemptsPeriod.
func (s *Service) VerifyPassword(ctx context.Context, client, password string) error {
	if !s.Enabled() {
		return ErrDisabled
	}

	failures, err := s.attempts.RecentFailures(ctx, client, AttemptsPeriod)
	if err != nil {
		return common.StoreError("recent_failures", err)
	}
	if failures >= MaxFailedAttempts {
		return ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)

	if err := s.attempts.LogAttempt(ctx, client, match); err != nil {
		log.WithError(err).WithField("client", client).Warn("Не удалось записать попытку входа")
	}

	if !match {
		log.WithField("client", client).Warn("Неверный пароль оператора")
		return ErrWrongPassword
	}
	return nil
}

// RefreshCatalog проверяет пароль и перечитывает справочник.
func (s *Service) RefreshCatalog(ctx context.Context, client, password string) (*RefreshResult, error) {
	if err := s.VerifyPassword(ctx, client, password); err != nil {
		return nil, err
	}
	if err := s.catalog.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("ошибка обновления справочника: %w", err)
	}

	res := &RefreshResult{}
	if snap := s.catalog.Get(ctx); snap != nil {
		res.Species, res.LoadedAt = snap.Len(), snap.LoadedAt
	}
	log.WithFields(log.Fields{
		"client":  client,
		"species": res.Species,
	}).Info("Справочник перечитан по запросу оператора")

	return res, nil
}

// --- Криптографические утилиты ---

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
)

// HashPassword кодирует пароль в формат
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashPassword(password string) (string, error) {
	return hashArgon2id(password, argonMemory, argonIterations, argonParallelism)
}

func hashArgon2id(password string, memory, iterations uint32, parallelism uint8) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
