package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidPageParams is returned when invalid pagination parameters are provided.
	ErrInvalidPageParams = errors.New("leaderboard_cache: invalid page parameters")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache caches rendered leaderboard pages and tracks the recent
// searches shown on the dashboard.
//
// Architecture:
//   - String "leaderboard:page:{hotel}:{mode}:{page}" stores one rendered page
//     as JSON with a short TTL; the sync loop invalidates a hotel's pages
//     after every pass
//   - List "searches:recent" keeps the last few distinct searched players,
//     most recent first
type LeaderboardCache struct {
	cache *Cache
}

// Key patterns for leaderboard cache.
const (
	// keyLeaderboardPage is the per-page cache key prefix.
	keyLeaderboardPage = PrefixLeaderboard + "page:"

	// keyRecentSearches is the recent-searches list key.
	keyRecentSearches = PrefixSearches + "recent"

	// RecentSearchesLimit is how many distinct recent searches are kept.
	RecentSearchesLimit = 5
)

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func pageKey(hotel shared.Hotel, mode ranking.Mode, page int) string {
	return fmt.Sprintf("%s%s:%s:%d", keyLeaderboardPage, hotel, mode, page)
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// GetPage returns a cached leaderboard page.
// Returns ErrCacheMiss if the page is not cached.
func (l *LeaderboardCache) GetPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, page int) (*ranking.Page, error) {
	if page < 1 {
		return nil, ErrInvalidPageParams
	}

	var cached ranking.Page
	if err := l.cache.Get(ctx, pageKey(hotel, mode, page), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetPage caches a rendered leaderboard page with the default TTL.
func (l *LeaderboardCache) SetPage(ctx context.Context, hotel shared.Hotel, mode ranking.Mode, result *ranking.Page) error {
	if result == nil {
		return ErrCacheNilValue
	}
	if result.Page < 1 {
		return ErrInvalidPageParams
	}

	return l.cache.Set(ctx, pageKey(hotel, mode, result.Page), result, TTLLeaderboardPage)
}

// InvalidateHotel drops all cached pages for a hotel. Called after a sync
// pass so the next request renders fresh data.
func (l *LeaderboardCache) InvalidateHotel(ctx context.Context, hotel shared.Hotel) error {
	return l.cache.DeleteByPattern(ctx, keyLeaderboardPage+string(hotel)+":*")
}

// InvalidateAll drops every cached leaderboard page.
func (l *LeaderboardCache) InvalidateAll(ctx context.Context) error {
	return l.cache.DeleteByPattern(ctx, keyLeaderboardPage+"*")
}

// ══════════════════════════════════════════════════════════════════════════════
// RECENT SEARCHES
// ══════════════════════════════════════════════════════════════════════════════

// recentSearch is the wire form of one recent-searches list entry. It holds
// only the identity so repeat searches serialize to the same bytes and the
// LRem-based dedup in LPushCapped works.
type recentSearch struct {
	Username string `json:"username"`
	Hotel    string `json:"hotel"`
}

// RecordSearch pushes a searched player onto the recent list. Duplicates are
// collapsed: searching the same player again moves it to the front instead of
// adding a second entry.
func (l *LeaderboardCache) RecordSearch(ctx context.Context, key shared.PlayerKey) error {
	entry := recentSearch{
		Username: key.Username.String(),
		Hotel:    key.Hotel.String(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return l.cache.LPushCapped(ctx, keyRecentSearches, string(data), RecentSearchesLimit)
}

// RecentSearches returns the recently searched players, most recent first.
// Entries that no longer parse are skipped.
func (l *LeaderboardCache) RecentSearches(ctx context.Context) ([]shared.PlayerKey, error) {
	values, err := l.cache.LRange(ctx, keyRecentSearches, 0, RecentSearchesLimit-1)
	if err != nil {
		return nil, err
	}

	keys := make([]shared.PlayerKey, 0, len(values))
	for _, value := range values {
		var entry recentSearch
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			continue
		}
		key, err := shared.NewPlayerKey(entry.Username, entry.Hotel)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
