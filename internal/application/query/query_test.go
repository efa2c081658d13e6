package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeRankings struct {
	snapshots []*player.Snapshot
}

func (f *fakeRankings) Upsert(_ context.Context, s *player.Snapshot) error {
	f.snapshots = append(f.snapshots, s.Clone())
	return nil
}

func (f *fakeRankings) Get(_ context.Context, key shared.PlayerKey) (*player.Snapshot, error) {
	for _, s := range f.snapshots {
		if s.Key() == key {
			return s.Clone(), nil
		}
	}
	return nil, player.ErrNotFound
}

func (f *fakeRankings) ListVisibleByHotel(_ context.Context, hotel shared.Hotel) ([]*player.Snapshot, error) {
	var out []*player.Snapshot
	for _, s := range f.snapshots {
		if s.Hotel == hotel && s.Status.Visible() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeRankings) ListKeysOldestFirst(_ context.Context, hotel shared.Hotel) ([]shared.Username, error) {
	var out []shared.Username
	for _, s := range f.snapshots {
		if s.Hotel == hotel {
			out = append(out, s.Username)
		}
	}
	return out, nil
}

func (f *fakeRankings) MarkNotFound(_ context.Context, key shared.PlayerKey) error {
	for _, s := range f.snapshots {
		if s.Key() == key {
			s.MarkNotFound()
			return nil
		}
	}
	return player.ErrNotFound
}

func (f *fakeRankings) CountByHotel(_ context.Context, hotel shared.Hotel) (int, error) {
	n := 0
	for _, s := range f.snapshots {
		if s.Hotel == hotel && s.Status.Visible() {
			n++
		}
	}
	return n, nil
}

type fakeHistory struct {
	entries []player.XPHistoryEntry
}

func (f *fakeHistory) Append(_ context.Context, e player.XPHistoryEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) LatestAtOrBefore(_ context.Context, key shared.PlayerKey, t time.Time) (*player.XPHistoryEntry, error) {
	var best *player.XPHistoryEntry
	for i := range f.entries {
		e := f.entries[i]
		if e.Username != key.Username || e.Hotel != key.Hotel || e.LoggedAt.After(t) {
			continue
		}
		if best == nil || e.LoggedAt.After(best.LoggedAt) {
			best = &e
		}
	}
	if best == nil {
		return nil, player.ErrNotFound
	}
	return best, nil
}

func (f *fakeHistory) History(_ context.Context, key shared.PlayerKey, since time.Time) ([]player.XPHistoryEntry, error) {
	var out []player.XPHistoryEntry
	for _, e := range f.entries {
		if e.Username == key.Username && e.Hotel == key.Hotel && !e.LoggedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistory) FirstLevelMaxObservations(_ context.Context) ([]player.LevelMaxObservation, error) {
	return nil, nil
}

type fakeAchievers struct {
	records []player.Achiever
}

func (f *fakeAchievers) RecordFirstAchievement(context.Context, shared.PlayerKey, time.Time) (int, bool, error) {
	return 0, false, nil
}

func (f *fakeAchievers) Get(_ context.Context, key shared.PlayerKey) (*player.Achiever, error) {
	for _, a := range f.records {
		if a.Username == key.Username && a.Hotel == key.Hotel {
			record := a
			return &record, nil
		}
	}
	return nil, player.ErrNotFound
}

func (f *fakeAchievers) ListByHotel(_ context.Context, hotel shared.Hotel) ([]player.Achiever, error) {
	var out []player.Achiever
	for _, a := range f.records {
		if a.Hotel == hotel {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAchievers) ReplaceAll(_ context.Context, achievers []player.Achiever) error {
	f.records = append([]player.Achiever(nil), achievers...)
	return nil
}

type fakePageCache struct {
	pages    map[string]*ranking.Page
	setCalls int
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{pages: make(map[string]*ranking.Page)}
}

func (f *fakePageCache) key(hotel shared.Hotel, mode ranking.Mode, page int) string {
	return fmt.Sprintf("%s:%s:%d", hotel, mode, page)
}

func (f *fakePageCache) GetPage(_ context.Context, hotel shared.Hotel, mode ranking.Mode, page int) (*ranking.Page, error) {
	if p, ok := f.pages[f.key(hotel, mode, page)]; ok {
		return p, nil
	}
	return nil, player.ErrNotFound
}

func (f *fakePageCache) SetPage(_ context.Context, hotel shared.Hotel, mode ranking.Mode, result *ranking.Page) error {
	f.setCalls++
	f.pages[f.key(hotel, mode, result.Page)] = result
	return nil
}

type fakeRecent struct {
	keys []shared.PlayerKey
}

func (f *fakeRecent) RecentSearches(context.Context) ([]shared.PlayerKey, error) {
	return append([]shared.PlayerKey(nil), f.keys...), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func mustKey(t *testing.T, username string, hotel shared.Hotel) shared.PlayerKey {
	t.Helper()
	key, err := shared.NewPlayerKey(username, hotel.String())
	require.NoError(t, err)
	return key
}

func makeSnapshot(t *testing.T, username string, hotel shared.Hotel, level, xp int) *player.Snapshot {
	t.Helper()
	s, err := player.NewSnapshot(username, hotel, level, xp)
	require.NoError(t, err)
	return s
}

func logXP(h *fakeHistory, key shared.PlayerKey, xp int, at time.Time) {
	h.entries = append(h.entries, player.XPHistoryEntry{
		Username:   key.Username,
		Hotel:      key.Hotel,
		Level:      50,
		Experience: xp,
		LoggedAt:   at,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GAINS
// ══════════════════════════════════════════════════════════════════════════════

func TestGainsUsePeriodBaselines(t *testing.T) {
	history := &fakeHistory{}
	key := mustKey(t, "fisher", shared.HotelBR)

	// Wednesday noon UTC. In Brasília (-03) the day starts at 03:00 UTC,
	// the week on Monday the 16th, the month on June 1st.
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

	logXP(history, key, 100, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)) // last month
	logXP(history, key, 500, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)) // Sunday before week start
	logXP(history, key, 800, time.Date(2025, 6, 18, 1, 0, 0, 0, time.UTC))  // before today's 03:00 UTC boundary
	logXP(history, key, 900, time.Date(2025, 6, 18, 6, 0, 0, 0, time.UTC))  // already today, not a baseline

	calc := NewGainsCalculator(history)
	calc.now = func() time.Time { return now }

	gains, err := calc.ForPlayer(context.Background(), key, 1000)
	require.NoError(t, err)

	assert.Equal(t, 200, gains.Daily)
	assert.Equal(t, 500, gains.Weekly)
	assert.Equal(t, 900, gains.Monthly)
}

func TestGainsWithoutHistoryCountWholeXP(t *testing.T) {
	calc := NewGainsCalculator(&fakeHistory{})
	key := mustKey(t, "newcomer", shared.HotelUS)

	gains, err := calc.ForPlayer(context.Background(), key, 777)
	require.NoError(t, err)

	assert.Equal(t, ranking.Gains{Daily: 777, Weekly: 777, Monthly: 777}, gains)
}

func TestGainsFloorAtZeroAfterLevelUp(t *testing.T) {
	history := &fakeHistory{}
	key := mustKey(t, "climber", shared.HotelBR)
	logXP(history, key, 5000, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	calc := NewGainsCalculator(history)
	calc.now = func() time.Time { return time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC) }

	// A level-up reset within-level XP below the monthly baseline.
	gains, err := calc.ForPlayer(context.Background(), key, 40)
	require.NoError(t, err)

	assert.Equal(t, 0, gains.Monthly)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func newLeaderboardFixture() (*Leaderboard, *fakeRankings, *fakeHistory, *fakeAchievers, *fakePageCache, *fakeRecent) {
	rankings := &fakeRankings{}
	history := &fakeHistory{}
	achievers := &fakeAchievers{}
	pages := newFakePageCache()
	recent := &fakeRecent{}

	lb := NewLeaderboard(rankings, achievers, NewGainsCalculator(history), pages, recent, nil)
	return lb, rankings, history, achievers, pages, recent
}

func TestLeaderboardOverallSortAndMedals(t *testing.T) {
	lb, rankings, _, achievers, _, _ := newLeaderboardFixture()

	rankings.snapshots = []*player.Snapshot{
		makeSnapshot(t, "bronze_cap", shared.HotelBR, 99, 0),
		makeSnapshot(t, "midfield", shared.HotelBR, 42, 1000),
		makeSnapshot(t, "first_cap", shared.HotelBR, 99, 0),
	}
	achievers.records = []player.Achiever{
		{Username: "first_cap", Hotel: shared.HotelBR, HotelRank: 1, GlobalRank: 2},
		{Username: "bronze_cap", Hotel: shared.HotelBR, HotelRank: 3},
	}

	page, err := lb.GetPage(context.Background(), shared.HotelBR, ranking.ModeOverall, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	// Level ties break by username ascending.
	assert.Equal(t, shared.Username("bronze_cap"), page.Entries[0].Snapshot.Username)
	assert.Equal(t, shared.Username("first_cap"), page.Entries[1].Snapshot.Username)
	assert.Equal(t, shared.Username("midfield"), page.Entries[2].Snapshot.Username)

	assert.Equal(t, ranking.MedalBronze, page.Entries[0].HotelMedal)
	assert.Equal(t, ranking.MedalGold, page.Entries[1].HotelMedal)
	assert.Equal(t, ranking.MedalSilver, page.Entries[1].GlobalMedal)
	assert.Equal(t, ranking.MedalNone, page.Entries[2].HotelMedal)

	assert.Equal(t, 1, page.Entries[0].Position)
	assert.Equal(t, 3, page.Total)
}

func TestLeaderboardServesCachedPage(t *testing.T) {
	lb, rankings, _, _, pages, _ := newLeaderboardFixture()

	cached := &ranking.Page{Page: 1, TotalPages: 1, Total: 0, Mode: ranking.ModeOverall}
	pages.pages[pages.key(shared.HotelBR, ranking.ModeOverall, 1)] = cached

	// Anything in storage must be ignored on a cache hit.
	rankings.snapshots = []*player.Snapshot{makeSnapshot(t, "stored", shared.HotelBR, 10, 10)}

	page, err := lb.GetPage(context.Background(), shared.HotelBR, ranking.ModeOverall, 1)
	require.NoError(t, err)
	assert.Same(t, cached, page)
	assert.Zero(t, pages.setCalls)
}

func TestLeaderboardCachesBuiltPage(t *testing.T) {
	lb, rankings, _, _, pages, _ := newLeaderboardFixture()
	rankings.snapshots = []*player.Snapshot{makeSnapshot(t, "only", shared.HotelES, 5, 5)}

	_, err := lb.GetPage(context.Background(), shared.HotelES, ranking.ModeOverall, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pages.setCalls)
}

func TestLeaderboardDailyModeSortsByGain(t *testing.T) {
	lb, rankings, history, _, _, _ := newLeaderboardFixture()

	slow := makeSnapshot(t, "slow", shared.HotelBR, 50, 100)
	fast := makeSnapshot(t, "fast", shared.HotelBR, 40, 900)
	rankings.snapshots = []*player.Snapshot{slow, fast}

	// Baselines from before today: slow gained 50, fast gained 850.
	old := time.Now().UTC().AddDate(0, 0, -3)
	logXP(history, slow.Key(), 50, old)
	logXP(history, fast.Key(), 50, old)

	page, err := lb.GetPage(context.Background(), shared.HotelBR, ranking.ModeDaily, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	assert.Equal(t, shared.Username("fast"), page.Entries[0].Snapshot.Username)
	assert.Equal(t, 850, page.Entries[0].Gains.Daily)
	assert.Equal(t, 50, page.Entries[1].Gains.Daily)
}

func TestLeaderboardHidesFlaggedPlayers(t *testing.T) {
	lb, rankings, _, _, _, _ := newLeaderboardFixture()

	visible := makeSnapshot(t, "visible", shared.HotelBR, 10, 0)
	hidden := makeSnapshot(t, "hidden", shared.HotelBR, 90, 0)
	hidden.MarkNotFound()
	rankings.snapshots = []*player.Snapshot{visible, hidden}

	page, err := lb.GetPage(context.Background(), shared.HotelBR, ranking.ModeOverall, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, shared.Username("visible"), page.Entries[0].Snapshot.Username)
}

func TestLeaderboardRecentSearchesKeepOrder(t *testing.T) {
	lb, rankings, _, _, _, recent := newLeaderboardFixture()

	second := makeSnapshot(t, "second", shared.HotelUS, 20, 0)
	first := makeSnapshot(t, "first", shared.HotelBR, 10, 0)
	gone := makeSnapshot(t, "gone", shared.HotelBR, 30, 0)
	gone.MarkNotFound()
	rankings.snapshots = []*player.Snapshot{second, first, gone}

	recent.keys = []shared.PlayerKey{
		first.Key(),
		gone.Key(), // hidden, skipped
		second.Key(),
		mustKey(t, "never_stored", shared.HotelES), // no snapshot, skipped
	}

	page, err := lb.GetPage(context.Background(), shared.HotelBR, ranking.ModeRecentSearches, 1)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	// No stat sorting: search order is preserved, positions reassigned.
	assert.Equal(t, shared.Username("first"), page.Entries[0].Snapshot.Username)
	assert.Equal(t, shared.Username("second"), page.Entries[1].Snapshot.Username)
	assert.Equal(t, 1, page.Entries[0].Position)
	assert.Equal(t, 2, page.Entries[1].Position)
}

func TestLeaderboardEmptyHotelYieldsEmptyPage(t *testing.T) {
	lb, _, _, _, _, _ := newLeaderboardFixture()

	page, err := lb.GetPage(context.Background(), shared.HotelES, ranking.ModeOverall, 7)
	require.NoError(t, err)

	assert.Empty(t, page.Entries)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER DETAIL
// ══════════════════════════════════════════════════════════════════════════════

func newPlayerQueryFixture() (*PlayerQuery, *fakeRankings, *fakeHistory, *fakeAchievers) {
	rankings := &fakeRankings{}
	history := &fakeHistory{}
	achievers := &fakeAchievers{}
	q := NewPlayerQuery(rankings, history, achievers, NewGainsCalculator(history))
	return q, rankings, history, achievers
}

func TestPlayerDetailIncludesProgressAndRanks(t *testing.T) {
	q, rankings, _, achievers := newPlayerQueryFixture()

	s := makeSnapshot(t, "Capped", shared.HotelBR, 99, 0)
	rankings.snapshots = []*player.Snapshot{s}
	achievers.records = []player.Achiever{
		{Username: "capped", Hotel: shared.HotelBR, HotelRank: 2, GlobalRank: 5},
	}

	detail, err := q.GetDetail(context.Background(), s.Key())
	require.NoError(t, err)

	assert.Equal(t, "Capped", detail.Snapshot.DisplayName)
	assert.Equal(t, 0, detail.NextLevelXP) // nothing left past the cap
	assert.Equal(t, 2, detail.HotelRank)
	assert.Equal(t, ranking.MedalSilver, detail.HotelMedal)
	assert.Equal(t, ranking.MedalNone, detail.GlobalMedal)
}

func TestPlayerDetailNextLevelXP(t *testing.T) {
	q, rankings, _, _ := newPlayerQueryFixture()

	s := makeSnapshot(t, "rookie", shared.HotelUS, 1, 10)
	rankings.snapshots = []*player.Snapshot{s}

	detail, err := q.GetDetail(context.Background(), s.Key())
	require.NoError(t, err)

	assert.Equal(t, player.NextLevelXP(1), detail.NextLevelXP)
	assert.Equal(t, 10, detail.Gains.Daily) // no history, whole XP counts
}

func TestPlayerDetailHiddenRowIsNotFound(t *testing.T) {
	q, rankings, _, _ := newPlayerQueryFixture()

	s := makeSnapshot(t, "vanished", shared.HotelBR, 50, 0)
	s.MarkNotFound()
	rankings.snapshots = []*player.Snapshot{s}

	_, err := q.GetDetail(context.Background(), s.Key())
	assert.ErrorIs(t, err, player.ErrNotFound)
}

func TestPlayerHistoryReturnsEmptySliceNotNil(t *testing.T) {
	q, _, _, _ := newPlayerQueryFixture()

	entries, err := q.GetHistory(context.Background(), mustKey(t, "nobody", shared.HotelBR), time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
