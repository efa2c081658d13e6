// Package habbo implements the Habbo Origins public API client.
// This package handles all communication with the per-hotel Origins API,
// including fetching user identity, fishing skill data, and presence.
package habbo

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// Shapes mirror the Origins public API responses exactly.
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is the response of GET /api/public/users?name={username}.
type UserDTO struct {
	UniqueID       string     `json:"uniqueId"`
	Name           string     `json:"name"`
	FigureString   string     `json:"figureString"`
	Motto          string     `json:"motto"`
	Online         bool       `json:"online"`
	LastAccessTime string     `json:"lastAccessTime"`
	MemberSince    string     `json:"memberSince"`
	SelectedBadges []BadgeDTO `json:"selectedBadges"`
}

// BadgeDTO is one selected badge on a user response.
type BadgeDTO struct {
	BadgeIndex  int    `json:"badgeIndex"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SkillDTO is the response of
// GET /api/public/skills/{uniqueId}?skillType=FISHING.
// Level is a pointer: the API answers 200 with a body missing the level for
// accounts that never fished, which counts as no skill data.
type SkillDTO struct {
	SkillType      string  `json:"skillType"`
	Level          *int    `json:"level"`
	Experience     int     `json:"experience"`
	FishCaught     int     `json:"fishCaught"`
	GoldFishCaught int     `json:"goldFishCaught"`
	Rod            *RodDTO `json:"rod"`
}

// RodDTO is the fishing rod sub-skill on a skill response.
type RodDTO struct {
	Level               int `json:"level"`
	Experience          int `json:"experience"`
	NextLevelExperience int `json:"nextLevelExperience"`
}

// ProfileDTO is the response of GET /api/public/users/{uniqueId}/profile.
// Only the embedded user block is consumed; the rest is ignored.
type ProfileDTO struct {
	User UserDTO `json:"user"`
}

// habboTimeLayout is the timestamp format of the Origins API
// (e.g. "2024-05-13T14:22:11.000+0000").
const habboTimeLayout = "2006-01-02T15:04:05.000-0700"

// ParseHabboTime parses an Origins API timestamp. Empty input yields the
// zero time without error; the profile fields are best-effort.
func ParseHabboTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(habboTimeLayout, value)
	if err != nil {
		// Some responses omit the milliseconds.
		t, err = time.Parse("2006-01-02T15:04:05-0700", value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse habbo time %q: %w", value, err)
	}
	return t, nil
}

// APIError is a non-2xx response from the Origins API.
type APIError struct {
	StatusCode int
	Hotel      string
	Path       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("origins api %s%s: status %d", e.Hotel, e.Path, e.StatusCode)
}

// IsNotFound reports whether the API answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError reports whether the failure is on the provider's side.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}
