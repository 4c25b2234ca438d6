// Package players отдаёт сводку по игроку: сколько поймано и сколько очков.
// Строка игрока создаётся при первом улове в той же транзакции.
package players

import (
	"fmt"
	"time"

	"serotonyl.ru/fishing-server/internal/common"
)

// Stats — сводка игрока.
type Stats struct {
	PlayerID     string     `json:"player_id" db:"player_id"`
	TotalCatches int64      `json:"total_catches" db:"total_catches"`
	TotalPoints  int64      `json:"total_points" db:"total_points"`
	CreatedAt    *time.Time `json:"created_at,omitempty" db:"created_at"` // nil — игрок ещё ничего не ловил
}

// Summary — строка вида «12 уловов, 340 очков».
func (s *Stats) Summary() string {
	return fmt.Sprintf("%d %s, %d %s",
		s.TotalCatches, common.PluralizeCatches(s.TotalCatches),
		s.TotalPoints, common.PluralizePoints(s.TotalPoints))
}
