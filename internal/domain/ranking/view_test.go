package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

func entry(username string, level, xp int) *Entry {
	return &Entry{
		Snapshot: &player.Snapshot{
			Username:   shared.Username(username),
			Hotel:      shared.HotelBR,
			Level:      level,
			Experience: xp,
		},
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOverall, m)

	m, err = ParseMode("weekly")
	require.NoError(t, err)
	assert.Equal(t, ModeWeekly, m)

	_, err = ParseMode("yearly")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSortOverall(t *testing.T) {
	v := NewView([]*Entry{
		entry("carol", 40, 100),
		entry("alice", 99, 5),
		entry("bob", 40, 900),
	})

	v.Sort(ModeOverall)

	// Level first, then within-level experience.
	assert.Equal(t, shared.Username("alice"), v.entries[0].Snapshot.Username)
	assert.Equal(t, shared.Username("bob"), v.entries[1].Snapshot.Username)
	assert.Equal(t, shared.Username("carol"), v.entries[2].Snapshot.Username)

	assert.Equal(t, 1, v.entries[0].Position)
	assert.Equal(t, 3, v.entries[2].Position)
}

func TestSortTieBreakIsStableByUsername(t *testing.T) {
	v := NewView([]*Entry{
		entry("zed", 50, 200),
		entry("ana", 50, 200),
		entry("mid", 50, 200),
	})

	v.Sort(ModeOverall)

	assert.Equal(t, shared.Username("ana"), v.entries[0].Snapshot.Username)
	assert.Equal(t, shared.Username("mid"), v.entries[1].Snapshot.Username)
	assert.Equal(t, shared.Username("zed"), v.entries[2].Snapshot.Username)
}

func TestSortByGains(t *testing.T) {
	a := entry("a", 10, 0)
	a.Gains = Gains{Daily: 5, Weekly: 100}
	b := entry("b", 90, 0)
	b.Gains = Gains{Daily: 50, Weekly: 10}

	v := NewView([]*Entry{a, b})
	v.Sort(ModeDaily)
	assert.Equal(t, shared.Username("b"), v.entries[0].Snapshot.Username)

	v.Sort(ModeWeekly)
	assert.Equal(t, shared.Username("a"), v.entries[0].Snapshot.Username)
}

func TestSortByBadges(t *testing.T) {
	a := entry("a", 10, 0)
	a.Snapshot.Badges = []player.Badge{{Code: "X"}}
	b := entry("b", 99, 0)
	b.Snapshot.Badges = []player.Badge{{Code: "X"}, {Code: "Y"}}

	v := NewView([]*Entry{a, b})
	v.Sort(ModeBadges)

	assert.Equal(t, shared.Username("b"), v.entries[0].Snapshot.Username)
}

func TestRecentSearchesKeepsIncomingOrder(t *testing.T) {
	v := NewView([]*Entry{
		entry("latest", 1, 0),
		entry("older", 99, 0),
	})

	v.Sort(ModeRecentSearches)

	assert.Equal(t, shared.Username("latest"), v.entries[0].Snapshot.Username)
	assert.Equal(t, 1, v.entries[0].Position)
	assert.Equal(t, 2, v.entries[1].Position)
}

func TestPagination(t *testing.T) {
	entries := make([]*Entry, 45)
	for i := range entries {
		entries[i] = entry(string(rune('a'+i%26))+string(rune('a'+i/26)), 50, 45-i)
	}
	v := NewView(entries)
	v.Sort(ModeOverall)

	t.Run("full first page", func(t *testing.T) {
		p := v.Page(1, ModeOverall)
		assert.Len(t, p.Entries, PageSize)
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, 45, p.Total)
	})

	t.Run("short last page", func(t *testing.T) {
		p := v.Page(3, ModeOverall)
		assert.Len(t, p.Entries, 5)
	})

	t.Run("page clamped below", func(t *testing.T) {
		p := v.Page(0, ModeOverall)
		assert.Equal(t, 1, p.Page)
		assert.Len(t, p.Entries, PageSize)
	})

	t.Run("page clamped above", func(t *testing.T) {
		p := v.Page(99, ModeOverall)
		assert.Equal(t, 3, p.Page)
		assert.Len(t, p.Entries, 5)
	})
}

func TestPaginationEmptyView(t *testing.T) {
	v := NewView(nil)
	p := v.Page(1, ModeOverall)

	assert.Empty(t, p.Entries)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.Total)
}

func TestMedals(t *testing.T) {
	assert.Equal(t, MedalGold, MedalForRank(1))
	assert.Equal(t, MedalSilver, MedalForRank(2))
	assert.Equal(t, MedalBronze, MedalForRank(3))
	assert.Equal(t, MedalNone, MedalForRank(4))
	assert.Equal(t, MedalNone, MedalForRank(0))

	e := entry("a", 99, 0)
	e.HotelRank = 1
	e.GlobalRank = 3
	e.DecorateMedals()

	assert.Equal(t, MedalGold, e.HotelMedal)
	assert.Equal(t, MedalBronze, e.GlobalMedal)
}

func TestGainsByMode(t *testing.T) {
	g := Gains{Daily: 1, Weekly: 2, Monthly: 3}
	assert.Equal(t, 1, g.ByMode(ModeDaily))
	assert.Equal(t, 2, g.ByMode(ModeWeekly))
	assert.Equal(t, 3, g.ByMode(ModeMonthly))
	assert.Equal(t, 0, g.ByMode(ModeOverall))
}
