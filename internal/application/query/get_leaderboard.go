package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// PageCache caches rendered leaderboard pages. A nil cache disables caching.
type PageCache interface {
	GetPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, page int) (*ranking.Page, error)
	SetPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, result *ranking.Page) error
}

// RecentSearchesSource lists the last distinct interactive searches, most
// recent first.
type RecentSearchesSource interface {
	RecentSearches(ctx context.Context) ([]shared.PlayerKey, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD QUERY SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Leaderboard builds sorted, paginated leaderboard views for one hotel, with
// per-page caching in front of the database.
type Leaderboard struct {
	rankings  player.RankingRepository
	achievers player.AchieverRepository
	gains     *GainsCalculator
	pages     PageCache
	recent    RecentSearchesSource
	logger    *slog.Logger
}

// NewLeaderboard creates the leaderboard query service. pages and recent may
// be nil; caching and the recent-searches mode then degrade gracefully.
func NewLeaderboard(
	rankings player.RankingRepository,
	achievers player.AchieverRepository,
	gains *GainsCalculator,
	pages PageCache,
	recent RecentSearchesSource,
	logger *slog.Logger,
) *Leaderboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Leaderboard{
		rankings:  rankings,
		achievers: achievers,
		gains:     gains,
		pages:     pages,
		recent:    recent,
		logger:    logger,
	}
}

// GetPage returns one leaderboard page for the hotel in the given mode.
// Cache errors never fail the query; they fall through to the database.
func (q *Leaderboard) GetPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, page int) (*ranking.Page, error) {
	if q.pages != nil {
		cached, err := q.pages.GetPage(ctx, hotel, mode, page)
		if err == nil {
			return cached, nil
		}
	}

	var (
		result *ranking.Page
		err    error
	)
	if mode == ranking.ModeRecentSearches {
		result, err = q.buildRecentSearchesPage(ctx, page)
	} else {
		result, err = q.buildHotelPage(ctx, hotel, mode, page)
	}
	if err != nil {
		return nil, err
	}

	if q.pages != nil {
		if cacheErr := q.pages.SetPage(ctx, hotel, mode, result); cacheErr != nil {
			q.logger.Warn("failed to cache leaderboard page",
				"hotel", hotel.String(), "mode", mode.String(), "page", page, "error", cacheErr)
		}
	}

	return result, nil
}

// buildHotelPage loads the hotel's visible snapshots, decorates them, sorts
// by the mode's metric and slices out the requested page.
func (q *Leaderboard) buildHotelPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, page int) (*ranking.Page, error) {
	snapshots, err := q.rankings.ListVisibleByHotel(ctx, hotel)
	if err != nil {
		return nil, fmt.Errorf("list players for %s: %w", hotel, err)
	}

	ranks, err := q.achieverRanks(ctx, hotel)
	if err != nil {
		return nil, err
	}

	needGains := mode == ranking.ModeDaily || mode == ranking.ModeWeekly || mode == ranking.ModeMonthly

	entries := make([]*ranking.Entry, 0, len(snapshots))
	for _, snapshot := range snapshots {
		entry := &ranking.Entry{Snapshot: snapshot}

		if r, ok := ranks[snapshot.Username]; ok {
			entry.HotelRank = r.HotelRank
			entry.GlobalRank = r.GlobalRank
		}
		entry.DecorateMedals()

		if needGains {
			gains, gErr := q.gains.ForPlayer(ctx, snapshot.Key(), snapshot.Experience)
			if gErr != nil {
				return nil, gErr
			}
			entry.Gains = gains
		}

		entries = append(entries, entry)
	}

	view := ranking.NewView(entries)
	view.Sort(mode)
	result := view.Page(page, mode)
	return &result, nil
}

// buildRecentSearchesPage renders the recent-searches list in its stored
// order. Entries whose snapshot has vanished or gone hidden are skipped.
func (q *Leaderboard) buildRecentSearchesPage(ctx context.Context, page int) (*ranking.Page, error) {
	if q.recent == nil {
		view := ranking.NewView(nil)
		result := view.Page(page, ranking.ModeRecentSearches)
		return &result, nil
	}

	keys, err := q.recent.RecentSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recent searches: %w", err)
	}

	entries := make([]*ranking.Entry, 0, len(keys))
	for _, key := range keys {
		snapshot, err := q.rankings.Get(ctx, key)
		if err != nil {
			if errors.Is(err, player.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load searched player %s: %w", key, err)
		}
		if !snapshot.Status.Visible() {
			continue
		}

		entry := &ranking.Entry{Snapshot: snapshot}
		if achiever, aErr := q.achievers.Get(ctx, key); aErr == nil {
			entry.HotelRank = achiever.HotelRank
			entry.GlobalRank = achiever.GlobalRank
		} else if !errors.Is(aErr, player.ErrNotFound) {
			return nil, fmt.Errorf("load achiever for %s: %w", key, aErr)
		}
		entry.DecorateMedals()

		entries = append(entries, entry)
	}

	view := ranking.NewView(entries)
	view.Sort(ranking.ModeRecentSearches)
	result := view.Page(page, ranking.ModeRecentSearches)
	return &result, nil
}

type achieverRank struct {
	HotelRank  int
	GlobalRank int
}

func (q *Leaderboard) achieverRanks(ctx context.Context, hotel shared.Hotel) (map[shared.Username]achieverRank, error) {
	achievers, err := q.achievers.ListByHotel(ctx, hotel)
	if err != nil {
		return nil, fmt.Errorf("list achievers for %s: %w", hotel, err)
	}

	ranks := make(map[shared.Username]achieverRank, len(achievers))
	for _, a := range achievers {
		ranks[a.Username] = achieverRank{
			HotelRank:  a.HotelRank,
			GlobalRank: a.GlobalRank,
		}
	}
	return ranks, nil
}
