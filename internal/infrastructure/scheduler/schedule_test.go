package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/origins-hub/fishing-stats-hub/pkg/timeutil"
)

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(time.Minute)

	base := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Minute), s.Next(base))
	assert.Equal(t, "@every 1m0s", s.String())
}

func TestDailyScheduleNextSameDay(t *testing.T) {
	s := NewDailySchedule(4, 30, timeutil.BrasiliaTZ)

	// 02:00 Brasília, before the slot: fires the same day.
	at := time.Date(2025, 6, 18, 2, 0, 0, 0, timeutil.BrasiliaTZ)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, 6, 18, 4, 30, 0, 0, timeutil.BrasiliaTZ), next)
}

func TestDailyScheduleNextRollsToTomorrow(t *testing.T) {
	s := NewDailySchedule(4, 30, timeutil.BrasiliaTZ)

	// Exactly at the slot: the next run is tomorrow, never now.
	at := time.Date(2025, 6, 18, 4, 30, 0, 0, timeutil.BrasiliaTZ)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, 6, 19, 4, 30, 0, 0, timeutil.BrasiliaTZ), next)
}

func TestDailyScheduleConvertsFromOtherZones(t *testing.T) {
	s := NewDailySchedule(4, 30, timeutil.BrasiliaTZ)

	// 06:00 UTC is 03:00 in Brasília, still before the slot that day.
	at := time.Date(2025, 6, 18, 6, 0, 0, 0, time.UTC)
	next := s.Next(at)

	assert.Equal(t, time.Date(2025, 6, 18, 4, 30, 0, 0, timeutil.BrasiliaTZ).Unix(), next.Unix())
}

func TestDailyScheduleNilLocationDefaultsToUTC(t *testing.T) {
	s := NewDailySchedule(10, 0, nil)
	assert.Equal(t, time.UTC, s.Location)
}
