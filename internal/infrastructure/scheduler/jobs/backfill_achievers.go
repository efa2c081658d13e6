package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BACKFILL ACHIEVERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// BackfillAchieversJob rebuilds the level-cap achievers table from the XP
// history log. The live sync assigns hotel ranks as it observes players at
// the cap, but it can miss achievements (downtime, transient storage errors)
// and it never assigns global ranks. The backfill replays the first
// cap observation of every player in chronological order and rewrites the
// whole table with consistent hotel and global ranks.
type BackfillAchieversJob struct {
	history   player.XPHistoryRepository
	achievers player.AchieverRepository
	publisher shared.EventPublisher
	logger    *slog.Logger

	lastStats atomic.Value // *BackfillStats
}

// BackfillStats contains statistics from the last backfill run.
type BackfillStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Total       int
	PerHotel    map[shared.Hotel]int
}

// NewBackfillAchieversJob creates the backfill job. publisher may be nil.
func NewBackfillAchieversJob(
	history player.XPHistoryRepository,
	achievers player.AchieverRepository,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *BackfillAchieversJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackfillAchieversJob{
		history:   history,
		achievers: achievers,
		publisher: publisher,
		logger:    logger,
	}
}

// Name returns the job name.
func (j *BackfillAchieversJob) Name() string {
	return "backfill_achievers"
}

// Description returns a human-readable description.
func (j *BackfillAchieversJob) Description() string {
	return "Rebuilds level-cap achiever ranks from the XP history log"
}

// Run executes the backfill.
func (j *BackfillAchieversJob) Run(ctx context.Context) error {
	stats := &BackfillStats{
		StartedAt: time.Now().UTC(),
		PerHotel:  make(map[shared.Hotel]int),
	}

	observations, err := j.history.FirstLevelMaxObservations(ctx)
	if err != nil {
		return fmt.Errorf("load level cap observations: %w", err)
	}

	if len(observations) == 0 {
		// An empty history never overwrites existing records: the log may
		// have been pruned while the achievers table is permanent.
		j.logger.Info("no level cap observations, achievers table untouched")
		j.finishRun(stats)
		return nil
	}

	// Observations arrive ordered by first sighting across all hotels, so
	// the slice index is the global order and a per-hotel counter the
	// hotel order.
	records := make([]player.Achiever, 0, len(observations))
	for i, obs := range observations {
		stats.PerHotel[obs.Hotel]++
		records = append(records, player.Achiever{
			Username:   obs.Username,
			Hotel:      obs.Hotel,
			HotelRank:  stats.PerHotel[obs.Hotel],
			GlobalRank: i + 1,
			AchievedAt: obs.LoggedAt,
		})
	}

	if err := j.achievers.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("replace achievers: %w", err)
	}

	stats.Total = len(records)
	j.finishRun(stats)

	if j.publisher != nil {
		if err := j.publisher.Publish(NewBackfillCompletedEvent(stats)); err != nil {
			j.logger.Warn("failed to publish backfill event", "error", err)
		}
	}

	j.logger.Info("achiever backfill completed",
		"total", stats.Total,
		"duration", stats.Duration.String(),
	)
	return nil
}

func (j *BackfillAchieversJob) finishRun(stats *BackfillStats) {
	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)
}

// LastStats returns statistics from the last run, nil before the first one.
func (j *BackfillAchieversJob) LastStats() *BackfillStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*BackfillStats)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// BackfillCompletedEvent is published after a successful achiever rebuild.
type BackfillCompletedEvent struct {
	shared.BaseEvent
	Total    int            `json:"total"`
	PerHotel map[string]int `json:"per_hotel"`
}

// Payload implements shared.Event.
func (e BackfillCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"total":     e.Total,
		"per_hotel": e.PerHotel,
	}
}

// NewBackfillCompletedEvent creates a BackfillCompletedEvent from run stats.
func NewBackfillCompletedEvent(stats *BackfillStats) BackfillCompletedEvent {
	perHotel := make(map[string]int, len(stats.PerHotel))
	for hotel, count := range stats.PerHotel {
		perHotel[hotel.String()] = count
	}
	return BackfillCompletedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventBackfillCompleted, "system"),
		Total:     stats.Total,
		PerHotel:  perHotel,
	}
}
