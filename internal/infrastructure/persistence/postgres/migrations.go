package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ranking and xp_history
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS ranking (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(30) NOT NULL,
    hotel VARCHAR(10) NOT NULL,
    display_name VARCHAR(60) NOT NULL DEFAULT '',
    level INTEGER NOT NULL DEFAULT 0,
    experience BIGINT NOT NULL DEFAULT 0,
    fish_caught INTEGER NOT NULL DEFAULT 0,
    gold_fish_caught INTEGER NOT NULL DEFAULT 0,
    rod_level INTEGER NOT NULL DEFAULT 0,
    rod_experience INTEGER NOT NULL DEFAULT 0,
    rod_next_level_experience INTEGER NOT NULL DEFAULT 0,
    badges JSONB NOT NULL DEFAULT '[]'::jsonb,
    mission TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    online BOOLEAN NOT NULL DEFAULT FALSE,
    last_access_time TIMESTAMPTZ,
    member_since TIMESTAMPTZ,
    status VARCHAR(20) NOT NULL DEFAULT '',
    updatedat TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_ranking_player UNIQUE (username, hotel),
    CONSTRAINT chk_ranking_level CHECK (level >= 0 AND level <= 99),
    CONSTRAINT chk_ranking_experience CHECK (experience >= 0),
    CONSTRAINT chk_ranking_hotel CHECK (hotel IN ('com.br', 'com', 'es'))
);

-- Sync rotation: oldest first, never-synced rows before everything else.
CREATE INDEX IF NOT EXISTS idx_ranking_sync_order
    ON ranking (hotel, updatedat ASC NULLS FIRST);

-- Leaderboard default ordering over visible rows only.
CREATE INDEX IF NOT EXISTS idx_ranking_overall
    ON ranking (hotel, level DESC, experience DESC)
    WHERE status = '';

CREATE TABLE IF NOT EXISTS xp_history (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(30) NOT NULL,
    hotel VARCHAR(10) NOT NULL,
    level INTEGER NOT NULL DEFAULT 0,
    experience BIGINT NOT NULL DEFAULT 0,
    logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_xp_history_level CHECK (level >= 0 AND level <= 99),
    CONSTRAINT chk_xp_history_experience CHECK (experience >= 0)
);

CREATE INDEX IF NOT EXISTS idx_xp_history_player_time
    ON xp_history (username, hotel, logged_at DESC);

-- Backfill scans for the first level-99 observations.
CREATE INDEX IF NOT EXISTS idx_xp_history_maxed
    ON xp_history (logged_at ASC)
    WHERE level = 99;
`

const migration001Down = `
DROP TABLE IF EXISTS xp_history;
DROP TABLE IF EXISTS ranking;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: level_99_achievers
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS level_99_achievers (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(30) NOT NULL,
    hotel VARCHAR(10) NOT NULL,
    hotel_rank INTEGER NOT NULL,
    global_rank INTEGER,
    achieved_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_achiever_player UNIQUE (username, hotel),
    CONSTRAINT chk_achiever_hotel_rank CHECK (hotel_rank >= 1),
    CONSTRAINT chk_achiever_global_rank CHECK (global_rank IS NULL OR global_rank >= 1)
);

CREATE INDEX IF NOT EXISTS idx_achievers_hotel_rank
    ON level_99_achievers (hotel, hotel_rank ASC);
`

const migration002Down = `
DROP TABLE IF EXISTS level_99_achievers;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: sync_cursor
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS sync_cursor (
    hotel VARCHAR(10) PRIMARY KEY,
    players JSONB NOT NULL DEFAULT '[]'::jsonb,
    position INTEGER NOT NULL DEFAULT 0,
    list_fetched_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_cursor_position CHECK (position >= 0),
    CONSTRAINT chk_cursor_hotel CHECK (hotel IN ('com.br', 'com', 'es'))
);
`

const migration003Down = `
DROP TABLE IF EXISTS sync_cursor;
`

// GetMigrations returns all migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_ranking_and_xp_history",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_level_99_achievers",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_sync_cursor",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
