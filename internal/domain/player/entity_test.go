package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

func TestMergeBadges(t *testing.T) {
	t.Run("union keyed by code, nothing lost", func(t *testing.T) {
		stored := []Badge{
			{Code: "ACH_A", Name: "Alpha"},
			{Code: "ACH_B", Name: "Beta"},
		}
		fetched := []Badge{
			{Code: "ACH_B", Name: "Beta (updated)"},
			{Code: "ACH_C", Name: "Gamma"},
		}

		merged := MergeBadges(stored, fetched)

		require.Len(t, merged, 3)
		assert.Equal(t, "ACH_A", merged[0].Code)
		assert.Equal(t, "ACH_B", merged[1].Code)
		assert.Equal(t, "ACH_C", merged[2].Code)
	})

	t.Run("fetched side wins on conflicting codes", func(t *testing.T) {
		stored := []Badge{{Code: "ACH_B", Name: "old name", Description: "old"}}
		fetched := []Badge{{Code: "ACH_B", Name: "new name", Description: "new"}}

		merged := MergeBadges(stored, fetched)

		require.Len(t, merged, 1)
		assert.Equal(t, "new name", merged[0].Name)
		assert.Equal(t, "new", merged[0].Description)
	})

	t.Run("badge absent from fetch is kept", func(t *testing.T) {
		stored := []Badge{{Code: "ACH_RARE", Name: "Rare"}}

		merged := MergeBadges(stored, nil)

		require.Len(t, merged, 1)
		assert.Equal(t, "ACH_RARE", merged[0].Code)
	})

	t.Run("empty stored side takes fetch as-is", func(t *testing.T) {
		fetched := []Badge{{Code: "ACH_A"}, {Code: "ACH_B"}}

		merged := MergeBadges(nil, fetched)

		assert.Equal(t, fetched, merged)
	})
}

func TestAbsorbStoredBadges(t *testing.T) {
	snap := &Snapshot{Badges: []Badge{{Code: "ACH_NEW"}}}
	snap.AbsorbStoredBadges([]Badge{{Code: "ACH_OLD"}})

	require.Len(t, snap.Badges, 2)
	assert.Equal(t, "ACH_OLD", snap.Badges[0].Code)
	assert.Equal(t, "ACH_NEW", snap.Badges[1].Code)
}

func TestNextLevelXP(t *testing.T) {
	assert.Equal(t, 55, NextLevelXP(1))
	assert.Equal(t, 135, NextLevelXP(2))
	assert.Equal(t, 35279924, NextLevelXP(98))

	// Out of range: the cap and nonsense levels have no next level.
	assert.Equal(t, 0, NextLevelXP(MaxLevel))
	assert.Equal(t, 0, NextLevelXP(0))
	assert.Equal(t, 0, NextLevelXP(-3))
	assert.Equal(t, 0, NextLevelXP(100))
}

func TestNewSnapshot(t *testing.T) {
	t.Run("normalizes username, keeps display casing", func(t *testing.T) {
		snap, err := NewSnapshot("FisherMan", shared.HotelBR, 12, 340)
		require.NoError(t, err)

		assert.Equal(t, shared.Username("fisherman"), snap.Username)
		assert.Equal(t, "FisherMan", snap.DisplayName)
		assert.Equal(t, shared.HotelBR, snap.Hotel)
		assert.False(t, snap.UpdatedAt.IsZero())
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		_, err := NewSnapshot("someone", shared.HotelUS, 100, 0)
		assert.ErrorIs(t, err, ErrInvalidLevel)

		_, err = NewSnapshot("someone", shared.HotelUS, 10, -1)
		assert.ErrorIs(t, err, ErrInvalidExperience)

		_, err = NewSnapshot("someone", "nl", 10, 0)
		assert.Error(t, err)

		_, err = NewSnapshot("", shared.HotelUS, 10, 0)
		assert.Error(t, err)
	})
}

func TestSnapshotLevelCap(t *testing.T) {
	snap := &Snapshot{Level: MaxLevel}
	assert.True(t, snap.IsMaxLevel())
	assert.Equal(t, 0, snap.NextLevelXP())

	snap.Level = 98
	assert.False(t, snap.IsMaxLevel())
	assert.Equal(t, 35279924, snap.NextLevelXP())
}

func TestStatusVisibility(t *testing.T) {
	assert.True(t, StatusOK.Visible())
	assert.False(t, StatusNotFoundAPI.Visible())
}

func TestSnapshotClone(t *testing.T) {
	orig := &Snapshot{
		Username: "a",
		Badges:   []Badge{{Code: "ACH_A"}},
	}

	clone := orig.Clone()
	clone.Badges[0].Code = "ACH_MUTATED"

	assert.Equal(t, "ACH_A", orig.Badges[0].Code)
}

func TestSyncCursor(t *testing.T) {
	now := time.Now()
	cursor := &SyncCursor{
		Hotel:         shared.HotelES,
		Players:       []shared.Username{"a", "b"},
		ListFetchedAt: now.Add(-30 * time.Minute),
	}

	assert.False(t, cursor.IsStale(now, time.Hour))
	assert.True(t, cursor.IsStale(now, 10*time.Minute))

	name, ok := cursor.Current()
	require.True(t, ok)
	assert.Equal(t, shared.Username("a"), name)

	cursor.Advance()
	name, ok = cursor.Current()
	require.True(t, ok)
	assert.Equal(t, shared.Username("b"), name)

	cursor.Advance()
	assert.True(t, cursor.Exhausted())
	_, ok = cursor.Current()
	assert.False(t, ok)
}
