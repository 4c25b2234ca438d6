// Package players — service.go: сводка игрока с таймаутом на хранилище.
package players

import (
	"context"
	"time"

	"serotonyl.ru/fishing-server/internal/common"
)

// Source — откуда берётся сводка.
type Source interface {
	PlayerStats(ctx context.Context, playerID string) (*Stats, bool, error)
}

// Service отдаёт сводку игрока.
type Service struct {
	source  Source
	timeout time.Duration
}

// NewService создаёт сервис игроков.
func NewService(source Source, timeout time.Duration) *Service {
	return &Service{source: source, timeout: timeout}
}

// GetStats возвращает сводку; для игрока без уловов — нули.
func (s *Service) GetStats(ctx context.Context, playerID string) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, found, err := s.source.PlayerStats(ctx, playerID)
	if err != nil {
		return nil, common.StoreError("player_stats", err)
	}
	if !found {
		return &Stats{PlayerID: playerID}, nil
	}
	return stats, nil
}
