package player

import (
	"context"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// RankingRepository persists player snapshots, one row per (username, hotel).
type RankingRepository interface {
	// Upsert atomically inserts or replaces the snapshot for its key.
	// Concurrent upserts for the same key must not interleave partially.
	Upsert(ctx context.Context, snapshot *Snapshot) error

	// Get returns the stored snapshot for the key.
	// Returns ErrNotFound if no row exists.
	Get(ctx context.Context, key shared.PlayerKey) (*Snapshot, error)

	// ListVisibleByHotel returns all rows of a hotel that belong in
	// leaderboard views (rows flagged not_found_api are skipped).
	ListVisibleByHotel(ctx context.Context, hotel shared.Hotel) ([]*Snapshot, error)

	// ListKeysOldestFirst returns every username of a hotel ordered by
	// updated_at ascending, nulls first. This is the sync rotation order:
	// never-synced rows come before stale ones.
	ListKeysOldestFirst(ctx context.Context, hotel shared.Hotel) ([]shared.Username, error)

	// MarkNotFound flags an existing row after a provider 404 without
	// touching its stats. Returns ErrNotFound if no row exists.
	MarkNotFound(ctx context.Context, key shared.PlayerKey) error

	// CountByHotel returns the number of visible rows for a hotel.
	CountByHotel(ctx context.Context, hotel shared.Hotel) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// XPHistoryEntry is one append-only history row. Exactly one row is written
// per successful snapshot upsert, even when the values did not change.
type XPHistoryEntry struct {
	ID         int64
	Username   shared.Username
	Hotel      shared.Hotel
	Level      int
	Experience int
	LoggedAt   time.Time
}

// LevelMaxObservation is the first time a player was logged at the level cap,
// used by the achiever backfill.
type LevelMaxObservation struct {
	Username shared.Username
	Hotel    shared.Hotel
	LoggedAt time.Time
}

// XPHistoryRepository persists the append-only XP log.
type XPHistoryRepository interface {
	// Append writes one history row. Never deduplicates.
	Append(ctx context.Context, entry XPHistoryEntry) error

	// LatestAtOrBefore returns the most recent entry for the key with
	// logged_at <= t. Returns ErrNotFound if the key has no entry that old.
	LatestAtOrBefore(ctx context.Context, key shared.PlayerKey, t time.Time) (*XPHistoryEntry, error)

	// History returns entries for the key logged at or after since,
	// oldest first.
	History(ctx context.Context, key shared.PlayerKey, since time.Time) ([]XPHistoryEntry, error)

	// FirstLevelMaxObservations returns, for every player that ever logged
	// the level cap, the earliest such row, ordered by logged_at ascending
	// across all hotels. Drives the rank backfill.
	FirstLevelMaxObservations(ctx context.Context) ([]LevelMaxObservation, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL-99 ACHIEVERS
// ══════════════════════════════════════════════════════════════════════════════

// Achiever is a permanent record of a player reaching the level cap.
// HotelRank reflects the order of first observation within the hotel;
// GlobalRank the order across all hotels (0 until the backfill assigns it).
type Achiever struct {
	Username   shared.Username
	Hotel      shared.Hotel
	HotelRank  int
	GlobalRank int
	AchievedAt time.Time
}

// AchieverRepository persists the write-once level-cap records.
type AchieverRepository interface {
	// RecordFirstAchievement inserts the achiever with the next hotel rank
	// if and only if no record exists yet for the key. The count and insert
	// are serialized per hotel so concurrent observers cannot race for the
	// same rank. Returns the stored rank and whether this call created it.
	RecordFirstAchievement(ctx context.Context, key shared.PlayerKey, achievedAt time.Time) (rank int, created bool, err error)

	// Get returns the achiever record for the key.
	// Returns ErrNotFound if the player never reached the cap.
	Get(ctx context.Context, key shared.PlayerKey) (*Achiever, error)

	// ListByHotel returns a hotel's achievers ordered by hotel rank.
	ListByHotel(ctx context.Context, hotel shared.Hotel) ([]Achiever, error)

	// ReplaceAll rebuilds the whole table from a backfill result.
	ReplaceAll(ctx context.Context, achievers []Achiever) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC CURSOR
// ══════════════════════════════════════════════════════════════════════════════

// SyncCursor is the durable position of the background loop within one
// hotel's player list. The loop persists it after every player so a restart
// resumes where it left off instead of hammering the same names.
type SyncCursor struct {
	Hotel         shared.Hotel
	Players       []shared.Username
	Index         int
	ListFetchedAt time.Time
}

// IsStale reports whether the captured player list is older than threshold
// and must be refreshed before continuing.
func (c *SyncCursor) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(c.ListFetchedAt) > threshold
}

// Exhausted reports whether the cursor has walked past the end of its list.
func (c *SyncCursor) Exhausted() bool {
	return c.Index >= len(c.Players)
}

// Current returns the username at the cursor position.
func (c *SyncCursor) Current() (shared.Username, bool) {
	if c.Exhausted() {
		return "", false
	}
	return c.Players[c.Index], true
}

// Advance moves the cursor to the next player.
func (c *SyncCursor) Advance() {
	c.Index++
}

// CursorRepository persists sync cursors, one per hotel.
type CursorRepository interface {
	// Save stores or replaces the hotel's cursor.
	Save(ctx context.Context, cursor *SyncCursor) error

	// Load returns the hotel's cursor.
	// Returns ErrNotFound if no cursor was ever saved.
	Load(ctx context.Context, hotel shared.Hotel) (*SyncCursor, error)
}
