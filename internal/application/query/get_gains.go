// Package query implements the read side of the application layer: gains
// calculation, leaderboard pages, and player detail lookups.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
	"github.com/origins-hub/fishing-stats-hub/pkg/timeutil"
)

// GainsCalculator derives day/week/month XP gains from the append-only
// history log. Period boundaries are taken in Brasília time, matching the
// hotels' reset rhythm.
//
// The baseline for a period is the latest history row logged at or before
// the period start. A player with no row that old gets a zero baseline, so
// their whole current XP counts as gained.
type GainsCalculator struct {
	history player.XPHistoryRepository
	now     func() time.Time
}

// NewGainsCalculator creates a gains calculator.
func NewGainsCalculator(history player.XPHistoryRepository) *GainsCalculator {
	return &GainsCalculator{
		history: history,
		now:     timeutil.Now,
	}
}

// ForPlayer computes all three period gains for a player's current XP.
func (c *GainsCalculator) ForPlayer(ctx context.Context, key shared.PlayerKey, currentXP int) (ranking.Gains, error) {
	now := c.now()

	daily, err := c.gainSince(ctx, key, currentXP, timeutil.StartOfDay(now))
	if err != nil {
		return ranking.Gains{}, fmt.Errorf("daily gain for %s: %w", key, err)
	}
	weekly, err := c.gainSince(ctx, key, currentXP, timeutil.StartOfWeek(now))
	if err != nil {
		return ranking.Gains{}, fmt.Errorf("weekly gain for %s: %w", key, err)
	}
	monthly, err := c.gainSince(ctx, key, currentXP, timeutil.StartOfMonth(now))
	if err != nil {
		return ranking.Gains{}, fmt.Errorf("monthly gain for %s: %w", key, err)
	}

	return ranking.Gains{
		Daily:   daily,
		Weekly:  weekly,
		Monthly: monthly,
	}, nil
}

// gainSince returns currentXP minus the baseline at the period start,
// floored at zero. Level-ups reset within-level XP, which would otherwise
// produce negative gains right after a level change.
func (c *GainsCalculator) gainSince(ctx context.Context, key shared.PlayerKey, currentXP int, periodStart time.Time) (int, error) {
	baseline := 0

	entry, err := c.history.LatestAtOrBefore(ctx, key, periodStart)
	switch {
	case err == nil:
		baseline = entry.Experience
	case errors.Is(err, player.ErrNotFound):
		// No history that old; the player is new this period.
	default:
		return 0, err
	}

	gain := currentXP - baseline
	if gain < 0 {
		gain = 0
	}
	return gain, nil
}
