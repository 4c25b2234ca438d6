package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/fishing-server/internal/db/memory"
)

func TestMigrations_Ordered(t *testing.T) {
	seen := make(map[int]bool)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, "миграции нумеруются подряд")
		assert.False(t, seen[m.version])
		assert.NotEmpty(t, strings.TrimSpace(m.sql), m.name)
		seen[m.version] = true
	}
}

func TestMigrations_SeedMatchesMemoryStore(t *testing.T) {
	for _, sp := range memory.DefaultSpecies() {
		assert.Contains(t, migration005SeedSpecies, "('"+sp.Name+"', '"+sp.Rarity.String()+"'", sp.Name)
	}
}

func TestMigrations_PersonalBestIsUnique(t *testing.T) {
	assert.Contains(t, migration003Catches, "CREATE UNIQUE INDEX IF NOT EXISTS uq_catches_personal_best")
	assert.Contains(t, migration003Catches, "WHERE is_personal_best")
}
