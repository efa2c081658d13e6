package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// RankingRepository is the PostgreSQL implementation of
// player.RankingRepository. One row per (username, hotel).
type RankingRepository struct {
	conn *Connection
}

// NewRankingRepository creates a new ranking repository.
func NewRankingRepository(conn *Connection) *RankingRepository {
	return &RankingRepository{conn: conn}
}

const rankingColumns = `
	username, hotel, display_name, level, experience,
	fish_caught, gold_fish_caught,
	rod_level, rod_experience, rod_next_level_experience,
	badges, mission, avatar_url,
	online, last_access_time, member_since,
	status, updatedat`

// Upsert atomically inserts or replaces the snapshot for its key. Badges are
// stored as the already-merged set; the caller runs MergeBadges before saving.
func (r *RankingRepository) Upsert(ctx context.Context, snapshot *player.Snapshot) error {
	badges, err := json.Marshal(snapshot.Badges)
	if err != nil {
		return fmt.Errorf("marshal badges: %w", err)
	}
	if snapshot.Badges == nil {
		badges = []byte("[]")
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO ranking (`+rankingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (username, hotel) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			level = EXCLUDED.level,
			experience = EXCLUDED.experience,
			fish_caught = EXCLUDED.fish_caught,
			gold_fish_caught = EXCLUDED.gold_fish_caught,
			rod_level = EXCLUDED.rod_level,
			rod_experience = EXCLUDED.rod_experience,
			rod_next_level_experience = EXCLUDED.rod_next_level_experience,
			badges = EXCLUDED.badges,
			mission = EXCLUDED.mission,
			avatar_url = EXCLUDED.avatar_url,
			online = EXCLUDED.online,
			last_access_time = EXCLUDED.last_access_time,
			member_since = EXCLUDED.member_since,
			status = EXCLUDED.status,
			updatedat = EXCLUDED.updatedat`,
		snapshot.Username, snapshot.Hotel, snapshot.DisplayName,
		snapshot.Level, snapshot.Experience,
		snapshot.FishCaught, snapshot.GoldFishCaught,
		snapshot.Rod.Level, snapshot.Rod.Experience, snapshot.Rod.NextLevelExperience,
		badges, snapshot.Mission, snapshot.AvatarURL,
		snapshot.Online, nullableTime(snapshot.LastAccessTime), nullableTime(snapshot.MemberSince),
		string(snapshot.Status), snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert ranking row %s: %w", snapshot.Key(), err)
	}
	return nil
}

// Get returns the stored snapshot for the key.
func (r *RankingRepository) Get(ctx context.Context, key shared.PlayerKey) (*player.Snapshot, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+rankingColumns+`
		FROM ranking
		WHERE username = $1 AND hotel = $2`,
		key.Username, key.Hotel,
	)

	snapshot, err := scanSnapshot(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("get ranking row %s: %w", key, player.ErrNotFound)
		}
		return nil, fmt.Errorf("get ranking row %s: %w", key, err)
	}
	return snapshot, nil
}

// ListVisibleByHotel returns the hotel's rows that belong in leaderboard
// views, default-ordered by level and experience.
func (r *RankingRepository) ListVisibleByHotel(ctx context.Context, hotel shared.Hotel) ([]*player.Snapshot, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+rankingColumns+`
		FROM ranking
		WHERE hotel = $1 AND status != $2
		ORDER BY level DESC, experience DESC, username ASC`,
		hotel, string(player.StatusNotFoundAPI),
	)
	if err != nil {
		return nil, fmt.Errorf("list visible rows for %s: %w", hotel, err)
	}
	defer rows.Close()

	var snapshots []*player.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// ListKeysOldestFirst returns the hotel's usernames in sync rotation order:
// never-synced rows first, then oldest updatedat.
func (r *RankingRepository) ListKeysOldestFirst(ctx context.Context, hotel shared.Hotel) ([]shared.Username, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT username
		FROM ranking
		WHERE hotel = $1
		ORDER BY updatedat ASC NULLS FIRST, username ASC`,
		hotel,
	)
	if err != nil {
		return nil, fmt.Errorf("list sync keys for %s: %w", hotel, err)
	}
	defer rows.Close()

	var usernames []shared.Username
	for rows.Next() {
		var username shared.Username
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

// MarkNotFound flags an existing row after a provider 404 without touching
// its stats. The row stays in the sync rotation.
func (r *RankingRepository) MarkNotFound(ctx context.Context, key shared.PlayerKey) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE ranking
		SET status = $1, updatedat = $2
		WHERE username = $3 AND hotel = $4`,
		string(player.StatusNotFoundAPI), time.Now().UTC(), key.Username, key.Hotel,
	)
	if err != nil {
		return fmt.Errorf("mark not found %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark not found %s: %w", key, player.ErrNotFound)
	}
	return nil
}

// CountByHotel returns the number of visible rows for a hotel.
func (r *RankingRepository) CountByHotel(ctx context.Context, hotel shared.Hotel) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ranking
		WHERE hotel = $1 AND status != $2`,
		hotel, string(player.StatusNotFoundAPI),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rows for %s: %w", hotel, err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCAN HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*player.Snapshot, error) {
	var (
		snapshot       player.Snapshot
		badges         []byte
		status         string
		lastAccessTime *time.Time
		memberSince    *time.Time
		updatedAt      *time.Time
	)

	err := row.Scan(
		&snapshot.Username, &snapshot.Hotel, &snapshot.DisplayName,
		&snapshot.Level, &snapshot.Experience,
		&snapshot.FishCaught, &snapshot.GoldFishCaught,
		&snapshot.Rod.Level, &snapshot.Rod.Experience, &snapshot.Rod.NextLevelExperience,
		&badges, &snapshot.Mission, &snapshot.AvatarURL,
		&snapshot.Online, &lastAccessTime, &memberSince,
		&status, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &snapshot.Badges); err != nil {
			return nil, fmt.Errorf("unmarshal badges: %w", err)
		}
	}
	snapshot.Status = player.Status(status)
	if lastAccessTime != nil {
		snapshot.LastAccessTime = *lastAccessTime
	}
	if memberSince != nil {
		snapshot.MemberSince = *memberSince
	}
	if updatedAt != nil {
		snapshot.UpdatedAt = *updatedAt
	}

	return &snapshot, nil
}

// nullableTime maps the zero time to NULL so never-observed timestamps do not
// end up as year-one values.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
