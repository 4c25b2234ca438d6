// Package fishing — models.go описывает улов и результат заброса.
package fishing

import (
	"time"

	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// Catch — сохранённый улов. Создаётся один раз на успешный заброс;
// позже может меняться только флаг личного рекорда.
type Catch struct {
	ID             string    `json:"id" db:"id"`
	PlayerID       string    `json:"player_id" db:"player_id"`
	SpeciesID      string    `json:"fish_species_id" db:"fish_species_id"`
	Weight         float64   `json:"weight" db:"weight"` // Кг, две цифры после запятой
	CaughtAt       time.Time `json:"caught_at" db:"caught_at"`
	IsPersonalBest bool      `json:"is_personal_best" db:"is_personal_best"`
	PointsEarned   int64     `json:"points_earned" db:"points_earned"` // Копия очков вида на момент улова
}

// NewCatch — данные для сохранения улова.
// IsPersonalBest — предварительная оценка; хранилище пересчитывает её под блокировкой.
type NewCatch struct {
	PlayerID       string
	SpeciesID      string
	Weight         float64
	IsPersonalBest bool
	Points         int64
}

// CatchView — улов вместе с данными вида для истории.
type CatchView struct {
	Catch
	SpeciesName string         `json:"species_name"`
	Rarity      catalog.Rarity `json:"rarity"`
}

// Причины неудачного заброса.
const (
	ReasonNoSpecies  = "no species available"
	ReasonStoreError = "store error"
	ReasonSaveError  = "save error"
)

// CastResult — результат одного заброса. Не хранится, хранится только Catch.
type CastResult struct {
	Success        bool             `json:"success"`
	Fish           *catalog.Species `json:"fish"`
	Weight         float64          `json:"weight,omitempty"`
	Points         int64            `json:"points,omitempty"`
	IsPersonalBest bool             `json:"is_personal_best"`
	Message        string           `json:"message"`
	Reason         string           `json:"reason,omitempty"`
	CatchID        string           `json:"catch_id,omitempty"`
}

// Succeeded сообщает троттлингу, можно ли запускать кулдаун.
func (r *CastResult) Succeeded() bool {
	return r != nil && r.Success
}

// Stage — шаг заброса, на котором он завершился.
type Stage string

const (
	StageStart           Stage = "start"
	StageSpeciesSelected Stage = "species_selected"
	StageWeightSampled   Stage = "weight_sampled"
	StageBestCompared    Stage = "best_compared"
	StagePersisted       Stage = "persisted"
	StageDone            Stage = "done"
)
