package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER DETAIL QUERY SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// PlayerDetail is the full profile view of one tracked player.
type PlayerDetail struct {
	Snapshot    *player.Snapshot `json:"snapshot"`
	Gains       ranking.Gains    `json:"gains"`
	NextLevelXP int              `json:"next_level_xp"`
	HotelRank   int              `json:"hotel_rank,omitempty"`
	GlobalRank  int              `json:"global_rank,omitempty"`
	HotelMedal  ranking.Medal    `json:"hotel_medal,omitempty"`
	GlobalMedal ranking.Medal    `json:"global_medal,omitempty"`
}

// PlayerQuery serves the player detail and history views from storage.
type PlayerQuery struct {
	rankings  player.RankingRepository
	history   player.XPHistoryRepository
	achievers player.AchieverRepository
	gains     *GainsCalculator
}

// NewPlayerQuery creates the player query service.
func NewPlayerQuery(
	rankings player.RankingRepository,
	history player.XPHistoryRepository,
	achievers player.AchieverRepository,
	gains *GainsCalculator,
) *PlayerQuery {
	return &PlayerQuery{
		rankings:  rankings,
		history:   history,
		achievers: achievers,
		gains:     gains,
	}
}

// GetDetail returns the profile view for a tracked player.
// Returns player.ErrNotFound for names never stored or hidden rows.
func (q *PlayerQuery) GetDetail(ctx context.Context, key shared.PlayerKey) (*PlayerDetail, error) {
	snapshot, err := q.rankings.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !snapshot.Status.Visible() {
		return nil, fmt.Errorf("player %s hidden: %w", key, player.ErrNotFound)
	}

	gains, err := q.gains.ForPlayer(ctx, key, snapshot.Experience)
	if err != nil {
		return nil, err
	}

	detail := &PlayerDetail{
		Snapshot:    snapshot,
		Gains:       gains,
		NextLevelXP: snapshot.NextLevelXP(),
	}

	achiever, err := q.achievers.Get(ctx, key)
	switch {
	case err == nil:
		detail.HotelRank = achiever.HotelRank
		detail.GlobalRank = achiever.GlobalRank
		detail.HotelMedal = ranking.MedalForRank(achiever.HotelRank)
		detail.GlobalMedal = ranking.MedalForRank(achiever.GlobalRank)
	case errors.Is(err, player.ErrNotFound):
		// Not a level-cap achiever.
	default:
		return nil, fmt.Errorf("load achiever for %s: %w", key, err)
	}

	return detail, nil
}

// GetHistory returns the player's XP log entries at or after since, oldest
// first. A player with no rows in range gets an empty slice, not an error.
func (q *PlayerQuery) GetHistory(ctx context.Context, key shared.PlayerKey, since time.Time) ([]player.XPHistoryEntry, error) {
	entries, err := q.history.History(ctx, key, since)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", key, err)
	}
	if entries == nil {
		entries = []player.XPHistoryEntry{}
	}
	return entries, nil
}
