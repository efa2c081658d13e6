package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// AchieverRepository is the PostgreSQL implementation of
// player.AchieverRepository. Records are write-once: the first observation of
// a player at the level cap fixes their hotel rank forever.
type AchieverRepository struct {
	conn *Connection
}

// NewAchieverRepository creates a new achiever repository.
func NewAchieverRepository(conn *Connection) *AchieverRepository {
	return &AchieverRepository{conn: conn}
}

// RecordFirstAchievement inserts the achiever with the next hotel rank if no
// record exists yet for the key. The count and insert run inside one
// transaction holding a per-hotel advisory lock, so two concurrent observers
// of different players cannot be handed the same rank.
func (r *AchieverRepository) RecordFirstAchievement(ctx context.Context, key shared.PlayerKey, achievedAt time.Time) (int, bool, error) {
	var (
		rank    int
		created bool
	)

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext('level_99_achievers:' || $1))`,
			key.Hotel,
		); err != nil {
			return fmt.Errorf("acquire hotel lock: %w", err)
		}

		err := tx.QueryRow(ctx, `
			SELECT hotel_rank
			FROM level_99_achievers
			WHERE username = $1 AND hotel = $2`,
			key.Username, key.Hotel,
		).Scan(&rank)
		if err == nil {
			created = false
			return nil
		}
		if !IsNoRows(err) {
			return fmt.Errorf("lookup achiever: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM level_99_achievers WHERE hotel = $1`,
			key.Hotel,
		).Scan(&count); err != nil {
			return fmt.Errorf("count hotel achievers: %w", err)
		}

		rank = count + 1
		if _, err := tx.Exec(ctx, `
			INSERT INTO level_99_achievers (username, hotel, hotel_rank, achieved_at)
			VALUES ($1, $2, $3, $4)`,
			key.Username, key.Hotel, rank, achievedAt,
		); err != nil {
			return fmt.Errorf("insert achiever: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("record achievement %s: %w", key, err)
	}
	return rank, created, nil
}

// Get returns the achiever record for the key.
func (r *AchieverRepository) Get(ctx context.Context, key shared.PlayerKey) (*player.Achiever, error) {
	achiever, err := scanAchiever(r.conn.QueryRow(ctx, `
		SELECT username, hotel, hotel_rank, global_rank, achieved_at
		FROM level_99_achievers
		WHERE username = $1 AND hotel = $2`,
		key.Username, key.Hotel,
	))
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("get achiever %s: %w", key, player.ErrNotFound)
		}
		return nil, fmt.Errorf("get achiever %s: %w", key, err)
	}
	return achiever, nil
}

// ListByHotel returns a hotel's achievers ordered by hotel rank.
func (r *AchieverRepository) ListByHotel(ctx context.Context, hotel shared.Hotel) ([]player.Achiever, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT username, hotel, hotel_rank, global_rank, achieved_at
		FROM level_99_achievers
		WHERE hotel = $1
		ORDER BY hotel_rank ASC`,
		hotel,
	)
	if err != nil {
		return nil, fmt.Errorf("list achievers for %s: %w", hotel, err)
	}
	defer rows.Close()

	var achievers []player.Achiever
	for rows.Next() {
		achiever, err := scanAchiever(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achiever row: %w", err)
		}
		achievers = append(achievers, *achiever)
	}
	return achievers, rows.Err()
}

// ReplaceAll rebuilds the whole table from a backfill result in one
// transaction, so readers never see a half-built table.
func (r *AchieverRepository) ReplaceAll(ctx context.Context, achievers []player.Achiever) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM level_99_achievers`); err != nil {
			return fmt.Errorf("clear achievers: %w", err)
		}

		for _, achiever := range achievers {
			var globalRank *int
			if achiever.GlobalRank > 0 {
				globalRank = &achiever.GlobalRank
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO level_99_achievers (username, hotel, hotel_rank, global_rank, achieved_at)
				VALUES ($1, $2, $3, $4, $5)`,
				achiever.Username, achiever.Hotel, achiever.HotelRank, globalRank, achiever.AchievedAt,
			); err != nil {
				return fmt.Errorf("insert achiever %s@%s: %w", achiever.Username, achiever.Hotel, err)
			}
		}
		return nil
	})
}

func scanAchiever(row rowScanner) (*player.Achiever, error) {
	var (
		achiever   player.Achiever
		globalRank *int
	)
	err := row.Scan(&achiever.Username, &achiever.Hotel, &achiever.HotelRank, &globalRank, &achiever.AchievedAt)
	if err != nil {
		return nil, err
	}
	if globalRank != nil {
		achiever.GlobalRank = *globalRank
	}
	return &achiever, nil
}
