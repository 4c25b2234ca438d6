package fishing

import (
	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// SampleWeight тянет вес улова из нормального распределения с центром в
// середине диапазона и σ = диапазон/6 (≈95% значений попадают в диапазон
// без обрезки), обрезает до [min, max] и округляет до сотых.
func SampleWeight(sp catalog.Species, r Rand) float64 {
	lo, hi := sp.MinWeight, sp.MaxWeight
	if lo == hi {
		return lo
	}

	mean := (lo + hi) / 2
	stdDev := (hi - lo) / 6
	w := mean + r.NormFloat64()*stdDev

	// Округление может вытолкнуть значение за границу, если границы не в сотых.
	return common.Clamp(common.Round2(common.Clamp(w, lo, hi)), lo, hi)
}
