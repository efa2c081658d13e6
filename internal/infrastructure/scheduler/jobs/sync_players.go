// Package jobs contains the scheduled jobs of the stats hub: the continuous
// player sync rotation and the nightly achiever rank backfill.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC PLAYERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PlayerSyncer runs a full fetch-and-persist cycle for one player.
type PlayerSyncer interface {
	Sync(ctx context.Context, key shared.PlayerKey) (*player.Snapshot, error)
}

// PlayerLister supplies a hotel's tracked usernames in sync order.
type PlayerLister interface {
	ListKeysOldestFirst(ctx context.Context, hotel shared.Hotel) ([]shared.Username, error)
}

// CacheInvalidator drops cached leaderboard pages for a hotel after its data
// changed.
type CacheInvalidator interface {
	InvalidateHotel(ctx context.Context, hotel shared.Hotel) error
}

// SyncPlayersJob walks all tracked players hotel by hotel and re-syncs them
// through the single write path. The position inside each hotel's list is a
// durable cursor, so a restart resumes mid-list instead of hammering the
// same names from the top.
//
// One Run processes at most one batch for the current rotation hotel. When
// the hotel's list is exhausted the job declares the pass complete,
// invalidates that hotel's cached pages and rotates to the next hotel.
type SyncPlayersJob struct {
	syncer      PlayerSyncer
	players     PlayerLister
	cursors     player.CursorRepository
	invalidator CacheInvalidator
	publisher   shared.EventPublisher
	logger      *slog.Logger

	config SyncPlayersConfig

	// rotation position within shared.AllHotels(); only the scheduler
	// goroutine touches it.
	hotelIndex int

	lastStats atomic.Value // *SyncPassStats
}

// SyncPlayersConfig contains configuration for the sync rotation.
type SyncPlayersConfig struct {
	// BatchSize is the number of players to sync per run.
	BatchSize int

	// DelayBetweenPlayers is the pause between two API fetches. The
	// unofficial Origins API has no documented rate limit; this keeps the
	// rotation well below anything that could look like abuse.
	DelayBetweenPlayers time.Duration

	// ListStaleAfter forces a refresh of a hotel's captured player list
	// once it is older than this, so players added mid-pass are picked up.
	ListStaleAfter time.Duration
}

// DefaultSyncPlayersConfig returns sensible defaults.
func DefaultSyncPlayersConfig() SyncPlayersConfig {
	return SyncPlayersConfig{
		BatchSize:           20,
		DelayBetweenPlayers: 3 * time.Second,
		ListStaleAfter:      time.Hour,
	}
}

// SyncPassStats contains statistics from the most recent run.
type SyncPassStats struct {
	Hotel         shared.Hotel
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	SyncedCount   int
	FailedCount   int
	NotFoundCount int
	PassCompleted bool
}

// NewSyncPlayersJob creates the sync rotation job. invalidator and publisher
// may be nil.
func NewSyncPlayersJob(
	syncer PlayerSyncer,
	players PlayerLister,
	cursors player.CursorRepository,
	invalidator CacheInvalidator,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	config SyncPlayersConfig,
) *SyncPlayersJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncPlayersConfig().BatchSize
	}
	if config.ListStaleAfter <= 0 {
		config.ListStaleAfter = DefaultSyncPlayersConfig().ListStaleAfter
	}

	return &SyncPlayersJob{
		syncer:      syncer,
		players:     players,
		cursors:     cursors,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *SyncPlayersJob) Name() string {
	return "sync_players"
}

// Description returns a human-readable description.
func (j *SyncPlayersJob) Description() string {
	return "Re-syncs tracked players from the Origins API, oldest data first"
}

// Run processes one batch of the current rotation hotel.
func (j *SyncPlayersJob) Run(ctx context.Context) error {
	hotel := shared.AllHotels()[j.hotelIndex%len(shared.AllHotels())]
	stats := &SyncPassStats{
		Hotel:     hotel,
		StartedAt: time.Now().UTC(),
	}

	cursor, err := j.loadCursor(ctx, hotel)
	if err != nil {
		return err
	}

	if len(cursor.Players) == 0 {
		// Nothing tracked on this hotel yet; rotate on.
		j.rotate()
		j.finishRun(ctx, stats, false)
		return nil
	}

	for processed := 0; processed < j.config.BatchSize && !cursor.Exhausted(); processed++ {
		if processed > 0 {
			if err := j.pause(ctx); err != nil {
				j.finishRun(ctx, stats, false)
				return err
			}
		}

		username, _ := cursor.Current()
		key := shared.PlayerKey{Username: username, Hotel: hotel}

		j.syncOne(ctx, key, stats)

		cursor.Advance()
		if err := j.cursors.Save(ctx, cursor); err != nil {
			return fmt.Errorf("save sync cursor for %s: %w", hotel, err)
		}
	}

	passCompleted := cursor.Exhausted()
	if passCompleted {
		j.rotate()
	}
	j.finishRun(ctx, stats, passCompleted)
	return nil
}

// loadCursor returns the hotel's durable cursor, refreshing the captured
// player list when it is missing, stale or walked to the end.
func (j *SyncPlayersJob) loadCursor(ctx context.Context, hotel shared.Hotel) (*player.SyncCursor, error) {
	now := time.Now().UTC()

	cursor, err := j.cursors.Load(ctx, hotel)
	switch {
	case err == nil:
		if !cursor.IsStale(now, j.config.ListStaleAfter) && !cursor.Exhausted() {
			return cursor, nil
		}
	case errors.Is(err, player.ErrNotFound):
		// First run for this hotel.
	default:
		return nil, fmt.Errorf("load sync cursor for %s: %w", hotel, err)
	}

	usernames, err := j.players.ListKeysOldestFirst(ctx, hotel)
	if err != nil {
		return nil, fmt.Errorf("list players for %s: %w", hotel, err)
	}

	cursor = &player.SyncCursor{
		Hotel:         hotel,
		Players:       usernames,
		Index:         0,
		ListFetchedAt: now,
	}
	if err := j.cursors.Save(ctx, cursor); err != nil {
		return nil, fmt.Errorf("save sync cursor for %s: %w", hotel, err)
	}

	j.logger.Info("refreshed sync list",
		"hotel", hotel.String(), "players", len(usernames))
	return cursor, nil
}

// syncOne syncs a single player. Failures are counted and logged but never
// abort the batch; the rotation must outlive flaky API responses.
func (j *SyncPlayersJob) syncOne(ctx context.Context, key shared.PlayerKey, stats *SyncPassStats) {
	_, err := j.syncer.Sync(ctx, key)
	switch {
	case err == nil:
		stats.SyncedCount++
	case errors.Is(err, shared.ErrUserNotFound):
		stats.NotFoundCount++
		j.logger.Info("player missing from api", "player", key.String())
	default:
		stats.FailedCount++
		j.logger.Error("failed to sync player", "player", key.String(), "error", err)
	}
}

func (j *SyncPlayersJob) pause(ctx context.Context) error {
	if j.config.DelayBetweenPlayers <= 0 {
		return nil
	}
	timer := time.NewTimer(j.config.DelayBetweenPlayers)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (j *SyncPlayersJob) rotate() {
	j.hotelIndex = (j.hotelIndex + 1) % len(shared.AllHotels())
}

// finishRun finalizes stats and, on a completed pass, invalidates the
// hotel's cached pages and publishes the pass-completed event.
func (j *SyncPlayersJob) finishRun(ctx context.Context, stats *SyncPassStats, passCompleted bool) {
	stats.CompletedAt = time.Now().UTC()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	stats.PassCompleted = passCompleted
	j.lastStats.Store(stats)

	if !passCompleted {
		return
	}

	if j.invalidator != nil {
		if err := j.invalidator.InvalidateHotel(ctx, stats.Hotel); err != nil {
			j.logger.Warn("failed to invalidate leaderboard cache",
				"hotel", stats.Hotel.String(), "error", err)
		}
	}

	if j.publisher != nil {
		event := NewSyncPassCompletedEvent(stats)
		if err := j.publisher.Publish(event); err != nil {
			j.logger.Warn("failed to publish sync pass event",
				"hotel", stats.Hotel.String(), "error", err)
		}
	}

	j.logger.Info("sync pass completed",
		"hotel", stats.Hotel.String(),
		"synced", stats.SyncedCount,
		"failed", stats.FailedCount,
		"not_found", stats.NotFoundCount,
	)
}

// LastStats returns statistics from the most recent run, nil before the
// first one.
func (j *SyncPlayersJob) LastStats() *SyncPassStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*SyncPassStats)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// SyncPassCompletedEvent is published after a full walk over one hotel's
// player list.
type SyncPassCompletedEvent struct {
	shared.BaseEvent
	Hotel         string        `json:"hotel"`
	SyncedCount   int           `json:"synced_count"`
	FailedCount   int           `json:"failed_count"`
	NotFoundCount int           `json:"not_found_count"`
	Duration      time.Duration `json:"duration"`
}

// Payload implements shared.Event.
func (e SyncPassCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"hotel":           e.Hotel,
		"synced_count":    e.SyncedCount,
		"failed_count":    e.FailedCount,
		"not_found_count": e.NotFoundCount,
		"duration":        e.Duration.String(),
	}
}

// NewSyncPassCompletedEvent creates a SyncPassCompletedEvent from pass stats.
func NewSyncPassCompletedEvent(stats *SyncPassStats) SyncPassCompletedEvent {
	return SyncPassCompletedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventSyncPassCompleted, stats.Hotel.String()),
		Hotel:         stats.Hotel.String(),
		SyncedCount:   stats.SyncedCount,
		FailedCount:   stats.FailedCount,
		NotFoundCount: stats.NotFoundCount,
		Duration:      stats.Duration,
	}
}
