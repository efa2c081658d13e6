package player

import (
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER EVENTS
// Emitted by the sync path; the SSE change feed and log subscribers consume
// them through the event bus.
// ══════════════════════════════════════════════════════════════════════════════

// UpdatedEvent is emitted after every successful snapshot save.
type UpdatedEvent struct {
	shared.BaseEvent
	Username   string `json:"username"`
	Hotel      string `json:"hotel"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	BadgeCount int    `json:"badge_count"`
	Online     bool   `json:"online"`
}

// Payload implements shared.Event.
func (e UpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username":    e.Username,
		"hotel":       e.Hotel,
		"level":       e.Level,
		"experience":  e.Experience,
		"badge_count": e.BadgeCount,
		"online":      e.Online,
	}
}

// NewUpdatedEvent creates an UpdatedEvent from a saved snapshot.
func NewUpdatedEvent(s *Snapshot) UpdatedEvent {
	return UpdatedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventPlayerUpdated, s.Key().String()),
		Username:   s.Username.String(),
		Hotel:      s.Hotel.String(),
		Level:      s.Level,
		Experience: s.Experience,
		BadgeCount: len(s.Badges),
		Online:     s.Online,
	}
}

// LevelMaxedEvent is emitted the first time a player is observed at the
// level cap, carrying the freshly assigned hotel rank.
type LevelMaxedEvent struct {
	shared.BaseEvent
	Username   string    `json:"username"`
	Hotel      string    `json:"hotel"`
	HotelRank  int       `json:"hotel_rank"`
	AchievedAt time.Time `json:"achieved_at"`
}

// Payload implements shared.Event.
func (e LevelMaxedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username":    e.Username,
		"hotel":       e.Hotel,
		"hotel_rank":  e.HotelRank,
		"achieved_at": e.AchievedAt.Format(time.RFC3339),
	}
}

// NewLevelMaxedEvent creates a LevelMaxedEvent.
func NewLevelMaxedEvent(key shared.PlayerKey, hotelRank int, achievedAt time.Time) LevelMaxedEvent {
	return LevelMaxedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventPlayerLevelMaxed, key.String()),
		Username:   key.Username.String(),
		Hotel:      key.Hotel.String(),
		HotelRank:  hotelRank,
		AchievedAt: achievedAt,
	}
}

// NotFoundEvent is emitted when the provider 404s a previously known player.
type NotFoundEvent struct {
	shared.BaseEvent
	Username string `json:"username"`
	Hotel    string `json:"hotel"`
}

// Payload implements shared.Event.
func (e NotFoundEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"hotel":    e.Hotel,
	}
}

// NewNotFoundEvent creates a NotFoundEvent.
func NewNotFoundEvent(key shared.PlayerKey) NotFoundEvent {
	return NotFoundEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventPlayerNotFound, key.String()),
		Username:  key.Username.String(),
		Hotel:     key.Hotel.String(),
	}
}

// SearchPerformedEvent is emitted for every interactive search, successful
// or not. It feeds the recent-searches list.
type SearchPerformedEvent struct {
	shared.BaseEvent
	Username string `json:"username"`
	Hotel    string `json:"hotel"`
	Found    bool   `json:"found"`
}

// Payload implements shared.Event.
func (e SearchPerformedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"hotel":    e.Hotel,
		"found":    e.Found,
	}
}

// NewSearchPerformedEvent creates a SearchPerformedEvent.
func NewSearchPerformedEvent(key shared.PlayerKey, found bool) SearchPerformedEvent {
	return SearchPerformedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventSearchPerformed, key.String()),
		Username:  key.Username.String(),
		Hotel:     key.Hotel.String(),
		Found:     found,
	}
}
