package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// XPHistoryRepository is the PostgreSQL implementation of
// player.XPHistoryRepository. The table is append-only; rows are never
// updated or deduplicated.
type XPHistoryRepository struct {
	conn *Connection
}

// NewXPHistoryRepository creates a new XP history repository.
func NewXPHistoryRepository(conn *Connection) *XPHistoryRepository {
	return &XPHistoryRepository{conn: conn}
}

// Append writes one history row.
func (r *XPHistoryRepository) Append(ctx context.Context, entry player.XPHistoryEntry) error {
	loggedAt := entry.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO xp_history (username, hotel, level, experience, logged_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Username, entry.Hotel, entry.Level, entry.Experience, loggedAt,
	)
	if err != nil {
		return fmt.Errorf("append xp history for %s@%s: %w", entry.Username, entry.Hotel, err)
	}
	return nil
}

// LatestAtOrBefore returns the most recent entry for the key with
// logged_at <= t. This is the gains baseline lookup.
func (r *XPHistoryRepository) LatestAtOrBefore(ctx context.Context, key shared.PlayerKey, t time.Time) (*player.XPHistoryEntry, error) {
	var entry player.XPHistoryEntry
	err := r.conn.QueryRow(ctx, `
		SELECT id, username, hotel, level, experience, logged_at
		FROM xp_history
		WHERE username = $1 AND hotel = $2 AND logged_at <= $3
		ORDER BY logged_at DESC
		LIMIT 1`,
		key.Username, key.Hotel, t,
	).Scan(&entry.ID, &entry.Username, &entry.Hotel, &entry.Level, &entry.Experience, &entry.LoggedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("latest history at or before %s for %s: %w", t.Format(time.RFC3339), key, player.ErrNotFound)
		}
		return nil, fmt.Errorf("latest history for %s: %w", key, err)
	}
	return &entry, nil
}

// History returns entries for the key logged at or after since, oldest first.
func (r *XPHistoryRepository) History(ctx context.Context, key shared.PlayerKey, since time.Time) ([]player.XPHistoryEntry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, username, hotel, level, experience, logged_at
		FROM xp_history
		WHERE username = $1 AND hotel = $2 AND logged_at >= $3
		ORDER BY logged_at ASC`,
		key.Username, key.Hotel, since,
	)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", key, err)
	}
	defer rows.Close()

	var entries []player.XPHistoryEntry
	for rows.Next() {
		var entry player.XPHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Hotel, &entry.Level, &entry.Experience, &entry.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FirstLevelMaxObservations returns, for every player that ever logged the
// level cap, the earliest such row, ordered by logged_at ascending across all
// hotels. DISTINCT ON keeps exactly one row per (username, hotel).
func (r *XPHistoryRepository) FirstLevelMaxObservations(ctx context.Context) ([]player.LevelMaxObservation, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT username, hotel, logged_at FROM (
			SELECT DISTINCT ON (username, hotel) username, hotel, logged_at
			FROM xp_history
			WHERE level = $1
			ORDER BY username, hotel, logged_at ASC
		) first_observations
		ORDER BY logged_at ASC`,
		player.MaxLevel,
	)
	if err != nil {
		return nil, fmt.Errorf("first level-max observations: %w", err)
	}
	defer rows.Close()

	var observations []player.LevelMaxObservation
	for rows.Next() {
		var obs player.LevelMaxObservation
		if err := rows.Scan(&obs.Username, &obs.Hotel, &obs.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
