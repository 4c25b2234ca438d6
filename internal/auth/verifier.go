// Package auth проверяет сессионные токены провайдера идентификации
// и извлекает из них стабильный идентификатор игрока.
//
// Токены подписаны HS256 общим секретом. Аудиенция не проверяется:
// провайдер выдаёт токены с разными значениями aud.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/common"
)

// Claims — поля токена, которые нас интересуют.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Identity — проверенная личность игрока.
// Других источников идентификатора игрока, кроме токена, нет.
type Identity struct {
	PlayerID string
	Email    string
	Claims   *Claims
}

// Verifier проверяет токены по общему секрету.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier создаёт проверяющего с заданным секретом.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify проверяет подпись и срок действия токена.
// Все отказы оборачивают common.ErrUnauthenticated; просроченный токен
// отличается от недействительного только для логов.
func (v *Verifier) Verify(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, common.ErrTokenMissing
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.WithField("component", "auth").Debug("Токен просрочен")
			return nil, fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		}
		log.WithError(err).WithField("component", "auth").Debug("Недействительный токен")
		return nil, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, common.ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: пустой sub", common.ErrTokenInvalid)
	}

	return &Identity{
		PlayerID: claims.Subject,
		Email:    claims.Email,
		Claims:   claims,
	}, nil
}

// BearerToken достаёт токен из заголовка "Authorization: Bearer <token>".
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", common.ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: ожидается 'Bearer <token>'", common.ErrTokenInvalid)
	}
	return strings.TrimSpace(parts[1]), nil
}
