package fishing

import (
	"math"
	"sort"

	"serotonyl.ru/fishing-server/internal/common"
	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// Selector выбирает вид с вероятностью, пропорциональной BaseProbability.
//
// Строится таблица накопленных весов, и одно равномерное число из
// [0, total) ищется в ней бинарным поиском. Веса не масштабируются в целые,
// поэтому даже очень редкие виды сохраняют свою долю.
type Selector struct {
	species    []catalog.Species
	cumulative []float64
	total      float64
}

// NewSelector строит таблицу. Виды с неположительным, NaN или бесконечным
// весом не участвуют. Если участвовать некому — common.ErrCatalogEmpty.
func NewSelector(species []catalog.Species) (*Selector, error) {
	s := &Selector{
		species:    make([]catalog.Species, 0, len(species)),
		cumulative: make([]float64, 0, len(species)),
	}
	for _, sp := range species {
		w := sp.BaseProbability
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		s.total += w
		s.species = append(s.species, sp)
		s.cumulative = append(s.cumulative, s.total)
	}
	if len(s.species) == 0 || !(s.total > 0) || math.IsInf(s.total, 0) {
		return nil, common.ErrCatalogEmpty
	}
	return s, nil
}

// Pick тянет один вид.
func (s *Selector) Pick(r Rand) catalog.Species {
	u := r.Float64() * s.total
	i := sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > u })
	if i == len(s.cumulative) {
		// Округление у правого края
		i--
	}
	return s.species[i]
}

// Probability — теоретическая доля вида среди участвующих (0, если не участвует).
func (s *Selector) Probability(id string) float64 {
	for _, sp := range s.species {
		if sp.ID == id {
			return sp.BaseProbability / s.total
		}
	}
	return 0
}

// Len — число участвующих видов.
func (s *Selector) Len() int { return len(s.species) }
