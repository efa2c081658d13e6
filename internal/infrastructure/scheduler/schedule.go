package scheduler

import (
	"fmt"
	"time"
)

// Schedule decides when a job is due.
type Schedule interface {
	// Next returns the first run time strictly after t.
	Next(t time.Time) time.Time

	// String describes the schedule for logs and job listings.
	String() string
}

// IntervalSchedule runs a job at a fixed interval. The sync rotation uses it:
// one batch per tick, pacing handled inside the job.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates an IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DailySchedule runs a job once a day at a fixed wall-clock time in the given
// location. The achiever backfill runs on one, anchored to Brasília time so
// the run lands in the quiet hours of the player base.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// NewDailySchedule creates a DailySchedule. A nil location means UTC.
func NewDailySchedule(hour, minute int, loc *time.Location) *DailySchedule {
	if loc == nil {
		loc = time.UTC
	}
	return &DailySchedule{Hour: hour, Minute: minute, Location: loc}
}

// Next returns the next occurrence of the configured time of day after t.
func (s *DailySchedule) Next(t time.Time) time.Time {
	local := t.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d %s", s.Hour, s.Minute, s.Location)
}
