package memory

import (
	"github.com/google/uuid"

	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// speciesNamespace — пространство имён для стабильных id видов.
var speciesNamespace = uuid.MustParse("6f1d8c2e-3b4a-5c6d-8e9f-0a1b2c3d4e5f")

func seedSpecies(name string, rarity catalog.Rarity, minW, maxW, prob float64, points int64, desc string) catalog.Species {
	return catalog.Species{
		ID:              uuid.NewSHA1(speciesNamespace, []byte(name)).String(),
		Name:            name,
		Rarity:          rarity,
		MinWeight:       minW,
		MaxWeight:       maxW,
		BaseProbability: prob,
		Points:          points,
		Description:     desc,
	}
}

// DefaultSpecies — тот же набор, что засевается миграцией в PostgreSQL.
func DefaultSpecies() []catalog.Species {
	return []catalog.Species{
		seedSpecies("Карась", catalog.RarityCommon, 0.1, 1.5, 0.30, 10, "Живёт в любом пруду"),
		seedSpecies("Окунь", catalog.RarityCommon, 0.1, 2.0, 0.25, 10, "Полосатый хищник"),
		seedSpecies("Плотва", catalog.RarityCommon, 0.05, 0.8, 0.20, 8, "Серебристая мелочь"),
		seedSpecies("Лещ", catalog.RarityUncommon, 0.5, 5.0, 0.10, 25, "Широкий и костлявый"),
		seedSpecies("Щука", catalog.RarityUncommon, 1.0, 15.0, 0.08, 30, "Речная хищница"),
		seedSpecies("Судак", catalog.RarityRare, 1.0, 12.0, 0.04, 60, "Любит чистую воду"),
		seedSpecies("Сом", catalog.RarityEpic, 5.0, 100.0, 0.015, 150, "Хозяин омута"),
		seedSpecies("Осётр", catalog.RarityLegendary, 3.0, 60.0, 0.005, 400, "Царская рыба"),
		seedSpecies("Белуга", catalog.RarityMythic, 50.0, 1000.0, 0.001, 1000, "Ловится раз в жизни"),
	}
}
