// Package command implements the write side of the application layer: the
// services that fetch player data from the Origins API and persist it.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// PlayerFetcher fetches a player's current state from the Origins API.
type PlayerFetcher interface {
	FetchPlayer(ctx context.Context, key shared.PlayerKey) (*player.Snapshot, error)
}

// SearchRecorder tracks interactive searches for the recent-searches view.
type SearchRecorder interface {
	RecordSearch(ctx context.Context, key shared.PlayerKey) error
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER SYNC SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// PlayerSync fetches one player from the Origins API and persists the result.
// It is the single write path for player data: the background rotation, the
// interactive search, and manual re-syncs all go through Sync.
//
// Persistence rules per successful fetch:
//   - the ranking row is replaced atomically, except badges which merge with
//     the stored set so a badge never disappears
//   - exactly one XP history row is appended, even when nothing changed
//   - a first observation at the level cap creates a permanent achiever
//     record with the next hotel rank
type PlayerSync struct {
	fetcher   PlayerFetcher
	rankings  player.RankingRepository
	history   player.XPHistoryRepository
	achievers player.AchieverRepository
	searches  SearchRecorder
	publisher shared.EventPublisher
	logger    *slog.Logger

	now func() time.Time
}

// NewPlayerSync creates the sync service. searches and publisher may be nil;
// the corresponding side effects are then skipped.
func NewPlayerSync(
	fetcher PlayerFetcher,
	rankings player.RankingRepository,
	history player.XPHistoryRepository,
	achievers player.AchieverRepository,
	searches SearchRecorder,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *PlayerSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerSync{
		fetcher:   fetcher,
		rankings:  rankings,
		history:   history,
		achievers: achievers,
		searches:  searches,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync fetches the player and persists the snapshot. On a provider 404 for a
// previously known player the stored row is flagged not_found_api (hiding it
// from views while keeping it in the rotation) and the original error is
// returned.
func (s *PlayerSync) Sync(ctx context.Context, key shared.PlayerKey) (*player.Snapshot, error) {
	snapshot, err := s.fetcher.FetchPlayer(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			s.markKnownPlayerNotFound(ctx, key)
		}
		return nil, err
	}

	stored, err := s.rankings.Get(ctx, key)
	switch {
	case err == nil:
		snapshot.AbsorbStoredBadges(stored.Badges)
	case errors.Is(err, player.ErrNotFound):
		// First sighting; nothing to merge.
	default:
		return nil, fmt.Errorf("load stored snapshot: %w", err)
	}

	snapshot.ClearStatus()
	snapshot.UpdatedAt = s.now()

	if err := s.rankings.Upsert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	if err := s.history.Append(ctx, player.XPHistoryEntry{
		Username:   snapshot.Username,
		Hotel:      snapshot.Hotel,
		Level:      snapshot.Level,
		Experience: snapshot.Experience,
		LoggedAt:   snapshot.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	if snapshot.IsMaxLevel() {
		s.recordAchievement(ctx, key, snapshot.UpdatedAt)
	}

	s.publish(player.NewUpdatedEvent(snapshot))

	return snapshot, nil
}

// Search performs an interactive lookup: it validates the raw input, runs a
// full sync, and records the search so the dashboard can show it under
// recent searches.
func (s *PlayerSync) Search(ctx context.Context, rawUsername, rawHotel string) (*player.Snapshot, error) {
	key, err := shared.NewPlayerKey(rawUsername, rawHotel)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Sync(ctx, key)
	found := err == nil

	if found && s.searches != nil {
		if recErr := s.searches.RecordSearch(ctx, key); recErr != nil {
			s.logger.Warn("failed to record recent search", "player", key.String(), "error", recErr)
		}
	}

	s.publish(player.NewSearchPerformedEvent(key, found))

	return snapshot, err
}

// markKnownPlayerNotFound flags a tracked row after a provider 404. An
// untracked name (a failed search for a player never stored) is not an error
// condition and leaves no trace.
func (s *PlayerSync) markKnownPlayerNotFound(ctx context.Context, key shared.PlayerKey) {
	err := s.rankings.MarkNotFound(ctx, key)
	if err == nil {
		s.logger.Info("player flagged not found", "player", key.String())
		s.publish(player.NewNotFoundEvent(key))
		return
	}
	if !errors.Is(err, player.ErrNotFound) {
		s.logger.Error("failed to flag player not found", "player", key.String(), "error", err)
	}
}

// recordAchievement files the level-cap record. A failure here never fails
// the sync: the snapshot and history row are already saved, and the nightly
// backfill reconstructs missed achievements from history.
func (s *PlayerSync) recordAchievement(ctx context.Context, key shared.PlayerKey, achievedAt time.Time) {
	rank, created, err := s.achievers.RecordFirstAchievement(ctx, key, achievedAt)
	if err != nil {
		s.logger.Error("failed to record level cap achievement", "player", key.String(), "error", err)
		return
	}
	if created {
		s.logger.Info("player reached level cap",
			"player", key.String(), "hotel_rank", rank)
		s.publish(player.NewLevelMaxedEvent(key, rank, achievedAt))
	}
}

func (s *PlayerSync) publish(event shared.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
