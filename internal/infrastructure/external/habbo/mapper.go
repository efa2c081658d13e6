// Package habbo implements the Habbo Origins public API client.
package habbo

import (
	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// Mapper converts Origins API DTOs into domain entities.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// SnapshotFromDTOs builds a fresh domain snapshot from the three API
// responses. profile may be nil; the user response then supplies presence.
// The returned snapshot carries only the fetched badge set - callers merge
// stored badges via Snapshot.AbsorbStoredBadges.
func (m *Mapper) SnapshotFromDTOs(hotel shared.Hotel, user *UserDTO, skill *SkillDTO, profile *ProfileDTO) (*player.Snapshot, error) {
	level := 0
	if skill.Level != nil {
		level = *skill.Level
	}

	snap, err := player.NewSnapshot(user.Name, hotel, level, skill.Experience)
	if err != nil {
		return nil, err
	}

	snap.FishCaught = skill.FishCaught
	snap.GoldFishCaught = skill.GoldFishCaught
	if skill.Rod != nil {
		snap.Rod = player.RodStats{
			Level:               skill.Rod.Level,
			Experience:          skill.Rod.Experience,
			NextLevelExperience: skill.Rod.NextLevelExperience,
		}
	}

	snap.Badges = m.badgesFromDTOs(user.SelectedBadges)
	snap.Mission = user.Motto
	snap.AvatarURL = hotel.AvatarURL(user.FigureString)

	// Presence: prefer the profile block, fall back to the user response.
	presence := user
	if profile != nil {
		presence = &profile.User
	}
	snap.Online = presence.Online
	if t, err := ParseHabboTime(presence.LastAccessTime); err == nil {
		snap.LastAccessTime = t
	}
	if t, err := ParseHabboTime(presence.MemberSince); err == nil {
		snap.MemberSince = t
	}

	return snap, nil
}

func (m *Mapper) badgesFromDTOs(dtos []BadgeDTO) []player.Badge {
	if len(dtos) == 0 {
		return nil
	}
	badges := make([]player.Badge, 0, len(dtos))
	for _, dto := range dtos {
		if dto.Code == "" {
			continue
		}
		badges = append(badges, player.Badge{
			Code:        dto.Code,
			Name:        dto.Name,
			Description: dto.Description,
		})
	}
	return badges
}
