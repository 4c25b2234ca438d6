package postgres

// SQL-миграции встроены в код для упрощения деплоя.
// Новые миграции только добавляются в конец списка.

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "fish_species", migration001Species},
	{2, "players", migration002Players},
	{3, "catches", migration003Catches},
	{4, "admin_login_attempts", migration004Admin},
	{5, "seed_species", migration005SeedSpecies},
}

var migration001Species = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
CREATE TABLE IF NOT EXISTS fish_species (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(255) UNIQUE NOT NULL,
    rarity VARCHAR(16) NOT NULL
        CHECK (rarity IN ('common', 'uncommon', 'rare', 'epic', 'legendary', 'mythic')),
    min_weight NUMERIC(10,2) NOT NULL CHECK (min_weight > 0),
    max_weight NUMERIC(10,2) NOT NULL CHECK (max_weight >= min_weight),
    base_probability DOUBLE PRECISION NOT NULL CHECK (base_probability > 0),
    points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    description TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration002Players = `
CREATE TABLE IF NOT EXISTS players (
    player_id VARCHAR(255) PRIMARY KEY,
    total_catches BIGINT NOT NULL DEFAULT 0,
    total_points BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration003Catches = `
CREATE TABLE IF NOT EXISTS catches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    player_id VARCHAR(255) NOT NULL REFERENCES players(player_id),
    fish_species_id UUID NOT NULL REFERENCES fish_species(id),
    weight NUMERIC(10,2) NOT NULL CHECK (weight > 0),
    caught_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_personal_best BOOLEAN NOT NULL DEFAULT FALSE,
    points_earned BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_catches_player_caught_at ON catches(player_id, caught_at DESC);
CREATE INDEX IF NOT EXISTS idx_catches_player_species_weight ON catches(player_id, fish_species_id, weight DESC);
CREATE UNIQUE INDEX IF NOT EXISTS uq_catches_personal_best
    ON catches(player_id, fish_species_id) WHERE is_personal_best;
`

var migration004Admin = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client VARCHAR(64) NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_client ON admin_login_attempts(client, attempt_time DESC);
`

var migration005SeedSpecies = `
INSERT INTO fish_species (name, rarity, min_weight, max_weight, base_probability, points, description) VALUES
    ('Карась', 'common', 0.10, 1.50, 0.30, 10, 'Живёт в любом пруду'),
    ('Окунь', 'common', 0.10, 2.00, 0.25, 10, 'Полосатый хищник'),
    ('Плотва', 'common', 0.05, 0.80, 0.20, 8, 'Серебристая мелочь'),
    ('Лещ', 'uncommon', 0.50, 5.00, 0.10, 25, 'Широкий и костлявый'),
    ('Щука', 'uncommon', 1.00, 15.00, 0.08, 30, 'Речная хищница'),
    ('Судак', 'rare', 1.00, 12.00, 0.04, 60, 'Любит чистую воду'),
    ('Сом', 'epic', 5.00, 100.00, 0.015, 150, 'Хозяин омута'),
    ('Осётр', 'legendary', 3.00, 60.00, 0.005, 400, 'Царская рыба'),
    ('Белуга', 'mythic', 50.00, 1000.00, 0.001, 1000, 'Ловится раз в жизни')
ON CONFLICT (name) DO NOTHING;
`
