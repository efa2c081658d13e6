// Package ranking contains the pure view-building logic of the leaderboard:
// sort modes, pagination, medal decoration and XP gains. No storage, no I/O.
package ranking

import (
	"errors"
	"fmt"
	"sort"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
)

// PageSize is the fixed number of entries per leaderboard page.
const PageSize = 20

// ══════════════════════════════════════════════════════════════════════════════
// MODES
// ══════════════════════════════════════════════════════════════════════════════

// Mode selects how leaderboard entries are ordered.
type Mode string

const (
	// ModeOverall - by level, then total experience within the level.
	ModeOverall Mode = "overall"
	// ModeDaily - by XP gained since the start of today.
	ModeDaily Mode = "daily"
	// ModeWeekly - by XP gained since the start of the ISO week (Monday).
	ModeWeekly Mode = "weekly"
	// ModeMonthly - by XP gained since the start of the month.
	ModeMonthly Mode = "monthly"
	// ModeBadges - by accumulated badge count.
	ModeBadges Mode = "badges"
	// ModeRecentSearches - the last distinct interactive searches, most
	// recent first. Not sorted by any stat.
	ModeRecentSearches Mode = "recent"
)

// ErrInvalidMode - unknown leaderboard mode.
var ErrInvalidMode = errors.New("invalid leaderboard mode")

// ParseMode validates a raw mode string, defaulting empty input to overall.
func ParseMode(raw string) (Mode, error) {
	if raw == "" {
		return ModeOverall, nil
	}
	m := Mode(raw)
	switch m {
	case ModeOverall, ModeDaily, ModeWeekly, ModeMonthly, ModeBadges, ModeRecentSearches:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// ══════════════════════════════════════════════════════════════════════════════
// GAINS
// ══════════════════════════════════════════════════════════════════════════════

// Gains holds the XP gained since each period boundary. Values are always
// non-negative: a level-up resets within-level XP upstream, and the
// calculator floors the difference at zero.
type Gains struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

// ByMode returns the gain matching a gains-based mode, 0 otherwise.
func (g Gains) ByMode(mode Mode) int {
	switch mode {
	case ModeDaily:
		return g.Daily
	case ModeWeekly:
		return g.Weekly
	case ModeMonthly:
		return g.Monthly
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// MEDALS
// ══════════════════════════════════════════════════════════════════════════════

// Medal decorates the first three level-99 achievers of a board.
type Medal string

const (
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
	MedalNone   Medal = ""
)

// MedalForRank maps an achiever rank to its medal. Ranks outside 1-3 get none.
func MedalForRank(rank int) Medal {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	}
	return MedalNone
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRIES & VIEW
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one decorated leaderboard row.
type Entry struct {
	// Position - 1-based position within the sorted view.
	Position int

	// Snapshot - the underlying player state.
	Snapshot *player.Snapshot

	// Gains - period XP gains, attached for gains-based modes and detail
	// views.
	Gains Gains

	// HotelRank / GlobalRank - level-99 achiever ranks, 0 when the player
	// has not reached the cap (or the global backfill has not run yet).
	HotelRank  int
	GlobalRank int

	// HotelMedal / GlobalMedal - medal decoration derived from the ranks.
	HotelMedal  Medal
	GlobalMedal Medal
}

// DecorateMedals fills the medal fields from the achiever ranks.
func (e *Entry) DecorateMedals() {
	e.HotelMedal = MedalForRank(e.HotelRank)
	e.GlobalMedal = MedalForRank(e.GlobalRank)
}

// View is a sortable collection of entries for one hotel.
type View struct {
	entries []*Entry
}

// NewView wraps entries into a view.
func NewView(entries []*Entry) *View {
	return &View{entries: entries}
}

// Len returns the number of entries.
func (v *View) Len() int {
	return len(v.entries)
}

// Sort orders the entries by the mode's metric, descending, with a stable
// ascending username tie-break so equal scores always render in the same
// order. Recent-searches views keep their incoming order.
func (v *View) Sort(mode Mode) {
	if mode == ModeRecentSearches {
		v.assignPositions()
		return
	}

	sort.SliceStable(v.entries, func(i, j int) bool {
		a, b := v.entries[i], v.entries[j]

		switch mode {
		case ModeBadges:
			if len(a.Snapshot.Badges) != len(b.Snapshot.Badges) {
				return len(a.Snapshot.Badges) > len(b.Snapshot.Badges)
			}
		case ModeDaily, ModeWeekly, ModeMonthly:
			ga, gb := a.Gains.ByMode(mode), b.Gains.ByMode(mode)
			if ga != gb {
				return ga > gb
			}
		default: // ModeOverall
			if a.Snapshot.Level != b.Snapshot.Level {
				return a.Snapshot.Level > b.Snapshot.Level
			}
			if a.Snapshot.Experience != b.Snapshot.Experience {
				return a.Snapshot.Experience > b.Snapshot.Experience
			}
		}

		return a.Snapshot.Username < b.Snapshot.Username
	})

	v.assignPositions()
}

func (v *View) assignPositions() {
	for i, e := range v.entries {
		e.Position = i + 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGINATION
// ══════════════════════════════════════════════════════════════════════════════

// Page is one leaderboard page plus its paging metadata.
type Page struct {
	Entries    []*Entry `json:"entries"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
	Total      int      `json:"total"`
	Mode       Mode     `json:"mode"`
}

// Page slices the sorted view into the requested 1-based page. Out-of-range
// page numbers clamp to the nearest valid page; an empty view yields page 1
// of 1 with no entries.
func (v *View) Page(page int, mode Mode) Page {
	totalPages := (len(v.entries) + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	from := (page - 1) * PageSize
	to := from + PageSize
	if to > len(v.entries) {
		to = len(v.entries)
	}

	entries := make([]*Entry, to-from)
	copy(entries, v.entries[from:to])

	return Page{
		Entries:    entries,
		Page:       page,
		TotalPages: totalPages,
		Total:      len(v.entries),
		Mode:       mode,
	}
}
