// Package player contains the core domain model of a tracked Habbo Origins
// fisher. This is the heart of the business logic - no external dependencies.
package player

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FISHING LEVEL XP TABLE
// ══════════════════════════════════════════════════════════════════════════════

// MaxLevel is the fishing level cap. Reaching it earns a permanent spot on
// the level-99 achievers board.
const MaxLevel = 99

// fishingLevelXP holds the total experience required to finish each level:
// fishingLevelXP[L-1] is the XP needed to go from level L to L+1. The table
// ends at level 98 because level 99 is the cap.
var fishingLevelXP = [MaxLevel - 1]int{
	55, 135, 255, 417, 623, 875, 1174, 1521, 1918, 2366,
	2865, 3417, 4022, 4681, 5396, 6165, 6992, 7875, 8816, 9815,
	10872, 11989, 13166, 14403, 15702, 17061, 18482, 19965, 21512, 25385,
	29800, 34810, 40474, 46855, 54018, 62034, 70976, 80925, 91962, 104175,
	117656, 132501, 148813, 166696, 186264, 148921, 163002, 178562, 195795, 313638,
	345952, 259854, 286232, 315649, 348475, 385123, 426055, 471781, 522873, 579974,
	643808, 715185, 795011, 884300, 984197, 1095997, 1221172, 1361378, 1518482, 1694567,
	1891954, 2113226, 2361237, 2639153, 2950471, 3299040, 3689099, 4125312, 4612793, 5157136,
	5764455, 6441416, 7195262, 8033890, 8965895, 10000648, 11148361, 12420151, 13828124, 15385449,
	17106438, 19006644, 21103949, 23417679, 25968694, 28779509, 31874457, 35279924,
}

// NextLevelXP returns the experience needed to complete the given level,
// or 0 when the level is out of range (including the level cap).
func NextLevelXP(level int) int {
	if level < 1 || level > len(fishingLevelXP) {
		return 0
	}
	return fishingLevelXP[level-1]
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// Badge is a single Habbo badge as exposed by the Origins API.
type Badge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MergeBadges unions the stored badge set with the freshly fetched one.
// Badges are keyed by code; stored badges keep their relative order, badges
// present on both sides take the fetched version, and badges only the API
// returns are appended in API order. A badge never disappears once stored.
func MergeBadges(stored, fetched []Badge) []Badge {
	merged := make([]Badge, 0, len(stored)+len(fetched))
	index := make(map[string]int, len(stored))

	for _, b := range stored {
		index[b.Code] = len(merged)
		merged = append(merged, b)
	}
	for _, b := range fetched {
		if i, ok := index[b.Code]; ok {
			merged[i] = b
			continue
		}
		index[b.Code] = len(merged)
		merged = append(merged, b)
	}
	return merged
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status marks rows with a known data-quality condition.
type Status string

const (
	// StatusOK - the last fetch for this player succeeded.
	StatusOK Status = ""
	// StatusNotFoundAPI - the Origins API returned 404 for a previously
	// known player. The row stays in the sync rotation but is hidden from
	// leaderboard views until a fetch succeeds again.
	StatusNotFoundAPI Status = "not_found_api"
)

// Visible reports whether a row with this status belongs in leaderboard views.
func (s Status) Visible() bool {
	return s != StatusNotFoundAPI
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// RodStats holds the fishing rod sub-skill as returned by the API.
type RodStats struct {
	Level               int `json:"level"`
	Experience          int `json:"experience"`
	NextLevelExperience int `json:"nextLevelExperience"`
}

// Snapshot is the latest known state of one player on one hotel. Exactly one
// snapshot exists per (username, hotel) pair; every sync overwrites it in
// place, except badges which only ever accumulate.
type Snapshot struct {
	// Username - lowercase-normalized store key.
	Username shared.Username

	// DisplayName - the username with its original casing, for presentation.
	DisplayName string

	// Hotel - which Origins hotel this row belongs to.
	Hotel shared.Hotel

	// Level - current fishing level (0..99).
	Level int

	// Experience - experience within the current level.
	Experience int

	// FishCaught / GoldFishCaught - lifetime catch counters.
	FishCaught     int
	GoldFishCaught int

	// Rod - fishing rod sub-skill.
	Rod RodStats

	// Badges - accumulated badge set (see MergeBadges).
	Badges []Badge

	// Mission - the player's motto.
	Mission string

	// AvatarURL - habbo-imaging avatar URL derived from the figure string.
	AvatarURL string

	// Online - whether the player was online at fetch time.
	Online bool

	// LastAccessTime - last login reported by the profile endpoint.
	LastAccessTime time.Time

	// MemberSince - account creation reported by the profile endpoint.
	MemberSince time.Time

	// Status - data-quality marker, see Status.
	Status Status

	// UpdatedAt - when this snapshot was last written. Drives the
	// oldest-first sync order.
	UpdatedAt time.Time
}

// Domain errors.
var (
	ErrInvalidLevel      = errors.New("invalid level: must be between 0 and 99")
	ErrInvalidExperience = errors.New("invalid experience: must be non-negative")
	ErrNotFound          = errors.New("player not found")
)

// NewSnapshot validates and builds a snapshot from fetched data. The
// username is normalized for the store key while the display name keeps the
// original casing.
func NewSnapshot(rawUsername string, hotel shared.Hotel, level, experience int) (*Snapshot, error) {
	username, err := shared.ParseUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	if !hotel.IsValid() {
		return nil, shared.ErrInvalidHotel
	}
	if level < 0 || level > MaxLevel {
		return nil, ErrInvalidLevel
	}
	if experience < 0 {
		return nil, ErrInvalidExperience
	}

	return &Snapshot{
		Username:    username,
		DisplayName: strings.TrimSpace(rawUsername),
		Hotel:       hotel,
		Level:       level,
		Experience:  experience,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Key returns the composite store identity.
func (s *Snapshot) Key() shared.PlayerKey {
	return shared.PlayerKey{Username: s.Username, Hotel: s.Hotel}
}

// IsMaxLevel reports whether the player has hit the level cap.
func (s *Snapshot) IsMaxLevel() bool {
	return s.Level >= MaxLevel
}

// NextLevelXP returns the experience needed to complete the current level,
// 0 at the cap.
func (s *Snapshot) NextLevelXP() int {
	return NextLevelXP(s.Level)
}

// AbsorbStoredBadges merges previously stored badges into this freshly
// fetched snapshot, preserving badge accumulation across syncs.
func (s *Snapshot) AbsorbStoredBadges(stored []Badge) {
	s.Badges = MergeBadges(stored, s.Badges)
}

// MarkNotFound flags the snapshot after a provider 404.
func (s *Snapshot) MarkNotFound() {
	s.Status = StatusNotFoundAPI
	s.UpdatedAt = time.Now().UTC()
}

// ClearStatus resets the data-quality marker after a successful fetch.
func (s *Snapshot) ClearStatus() {
	s.Status = StatusOK
}

// String returns a compact representation for logging.
func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot{%s, level: %d, xp: %d, badges: %d}",
		s.Key(), s.Level, s.Experience, len(s.Badges))
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Badges = append([]Badge(nil), s.Badges...)
	return &clone
}
