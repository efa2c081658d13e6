// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Hotel
// ═══════════════════════════════════════════════════════════════════════════

// Hotel identifies one of the Habbo Origins hotel regions. The zero value is
// not a valid hotel.
type Hotel string

const (
	HotelBR Hotel = "com.br"
	HotelUS Hotel = "com"
	HotelES Hotel = "es"
)

// AllHotels returns every supported hotel in sync rotation order.
func AllHotels() []Hotel {
	return []Hotel{HotelBR, HotelUS, HotelES}
}

// ParseHotel validates and normalizes a hotel identifier.
func ParseHotel(raw string) (Hotel, error) {
	h := Hotel(strings.ToLower(strings.TrimSpace(raw)))
	if !h.IsValid() {
		return "", WrapError("player", "ParseHotel", ErrInvalidInput,
			fmt.Sprintf("unknown hotel %q", raw), nil)
	}
	return h, nil
}

// IsValid reports whether the hotel is one of the supported regions.
func (h Hotel) IsValid() bool {
	switch h {
	case HotelBR, HotelUS, HotelES:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (h Hotel) String() string {
	return string(h)
}

// APIBaseURL returns the base URL of the hotel's public Origins API.
func (h Hotel) APIBaseURL() string {
	return fmt.Sprintf("https://origins.habbo.%s", h)
}

// AvatarURL builds the habbo-imaging avatar URL for a figure string.
func (h Hotel) AvatarURL(figureString string) string {
	return fmt.Sprintf(
		"https://www.habbo.%s/habbo-imaging/avatarimage?figure=%s&size=l&direction=2&head_direction=2",
		h, figureString,
	)
}

// ═══════════════════════════════════════════════════════════════════════════
// Username
// ═══════════════════════════════════════════════════════════════════════════

// usernamePattern matches Habbo usernames: letters, digits and a small set of
// punctuation, 1-30 characters.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_.:=?!@$-]{1,30}$`)

// Username is a lowercase-normalized Habbo username. Store keys and lookups
// always use the normalized form; the display name keeps its original casing
// on the snapshot.
type Username string

// ParseUsername validates a raw username and returns its normalized form.
func ParseUsername(raw string) (Username, error) {
	u := Username(strings.ToLower(strings.TrimSpace(raw)))
	if u == "" {
		return "", WrapError("player", "ParseUsername", ErrEmptyValue, "username is empty", nil)
	}
	if !usernamePattern.MatchString(string(u)) {
		return "", WrapError("player", "ParseUsername", ErrInvalidFormat,
			fmt.Sprintf("username %q has invalid characters", raw), nil)
	}
	return u, nil
}

// String implements fmt.Stringer.
func (u Username) String() string {
	return string(u)
}

// PlayerKey is the composite identity of a player: one row per
// (username, hotel) pair.
type PlayerKey struct {
	Username Username
	Hotel    Hotel
}

// NewPlayerKey validates both parts and returns the composite key.
func NewPlayerKey(rawUsername, rawHotel string) (PlayerKey, error) {
	username, err := ParseUsername(rawUsername)
	if err != nil {
		return PlayerKey{}, err
	}
	hotel, err := ParseHotel(rawHotel)
	if err != nil {
		return PlayerKey{}, err
	}
	return PlayerKey{Username: username, Hotel: hotel}, nil
}

// String returns the canonical "username@hotel" form used in logs and events.
func (k PlayerKey) String() string {
	return fmt.Sprintf("%s@%s", k.Username, k.Hotel)
}
