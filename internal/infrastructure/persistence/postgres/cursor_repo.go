package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// CursorRepository is the PostgreSQL implementation of
// player.CursorRepository. One row per hotel; the player list is stored as a
// JSONB array so a restart resumes mid-rotation.
type CursorRepository struct {
	conn *Connection
}

// NewCursorRepository creates a new cursor repository.
func NewCursorRepository(conn *Connection) *CursorRepository {
	return &CursorRepository{conn: conn}
}

// Save stores or replaces the hotel's cursor.
func (r *CursorRepository) Save(ctx context.Context, cursor *player.SyncCursor) error {
	players, err := json.Marshal(cursor.Players)
	if err != nil {
		return fmt.Errorf("marshal cursor players: %w", err)
	}
	if cursor.Players == nil {
		players = []byte("[]")
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO sync_cursor (hotel, players, position, list_fetched_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hotel) DO UPDATE SET
			players = EXCLUDED.players,
			position = EXCLUDED.position,
			list_fetched_at = EXCLUDED.list_fetched_at,
			updated_at = EXCLUDED.updated_at`,
		cursor.Hotel, players, cursor.Index, cursor.ListFetchedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save cursor for %s: %w", cursor.Hotel, err)
	}
	return nil
}

// Load returns the hotel's cursor.
func (r *CursorRepository) Load(ctx context.Context, hotel shared.Hotel) (*player.SyncCursor, error) {
	var (
		cursor  player.SyncCursor
		players []byte
	)
	err := r.conn.QueryRow(ctx, `
		SELECT hotel, players, position, list_fetched_at
		FROM sync_cursor
		WHERE hotel = $1`,
		hotel,
	).Scan(&cursor.Hotel, &players, &cursor.Index, &cursor.ListFetchedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("load cursor for %s: %w", hotel, player.ErrNotFound)
		}
		return nil, fmt.Errorf("load cursor for %s: %w", hotel, err)
	}

	if err := json.Unmarshal(players, &cursor.Players); err != nil {
		return nil, fmt.Errorf("unmarshal cursor players: %w", err)
	}
	return &cursor, nil
}
