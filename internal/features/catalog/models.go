// Package catalog хранит справочник видов рыб и кеширует его в памяти.
// models.go описывает вид рыбы и шкалу редкости.
package catalog

import (
	"fmt"
	"math"
	"strings"
)

// Rarity — упорядоченная шкала редкости: common < uncommon < ... < mythic.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

var rarityNames = [...]string{"common", "uncommon", "rare", "epic", "legendary", "mythic"}

func (r Rarity) String() string {
	if r < RarityCommon || r > RarityMythic {
		return fmt.Sprintf("rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// ParseRarity разбирает название редкости без учёта регистра.
func ParseRarity(s string) (Rarity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range rarityNames {
		if name == s {
			return Rarity(i), nil
		}
	}
	return RarityCommon, fmt.Errorf("неизвестная редкость %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if r < RarityCommon || r > RarityMythic {
		return nil, fmt.Errorf("некорректная редкость %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Species — вид рыбы. После загрузки в кеш не меняется.
type Species struct {
	ID              string  `json:"id" db:"id"`
	Name            string  `json:"name" db:"name"`
	Rarity          Rarity  `json:"rarity" db:"rarity"`
	MinWeight       float64 `json:"min_weight" db:"min_weight"`
	MaxWeight       float64 `json:"max_weight" db:"max_weight"`
	BaseProbability float64 `json:"base_probability" db:"base_probability"` // Относительный вес, сумма не обязана быть 1
	Points          int64   `json:"points" db:"points"`
	Description     string  `json:"description,omitempty" db:"description"`
	ImageURL        string  `json:"image_url,omitempty" db:"image_url"`
}

// Validate проверяет инварианты вида.
// Вероятность здесь не проверяется: виды с нулевым весом просто не выпадают.
func (s *Species) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("пустой id")
	case !isFinite(s.MinWeight) || !isFinite(s.MaxWeight):
		return fmt.Errorf("вид %s: вес не число", s.ID)
	case s.MinWeight <= 0 || s.MaxWeight <= 0:
		return fmt.Errorf("вид %s: вес должен быть > 0", s.ID)
	case s.MinWeight > s.MaxWeight:
		return fmt.Errorf("вид %s: min_weight %.2f > max_weight %.2f", s.ID, s.MinWeight, s.MaxWeight)
	case s.Points < 0:
		return fmt.Errorf("вид %s: отрицательные очки", s.ID)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
