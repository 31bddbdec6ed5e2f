package scheduler

import (
	"time"

	"github.com/cuemby/warren/pkg/types"
)

// ScheduleAt is the value stored in a scheduled table's at-column: a
// schedule is either a one-shot deadline or a recurring interval
// measured from the row's last successful call.
type ScheduleAt struct {
	IsInterval bool
	Interval   types.TimeDuration
	At         types.Timestamp
}

// At builds a one-shot schedule for the given timestamp.
func At(ts types.Timestamp) ScheduleAt { return ScheduleAt{At: ts} }

// Every builds a recurring schedule with the given period.
func Every(d types.TimeDuration) ScheduleAt { return ScheduleAt{IsInterval: true, Interval: d} }

// ToDurationFrom returns how long from now this schedule is due,
// possibly negative if it is already overdue.
func (s ScheduleAt) ToDurationFrom(now types.Timestamp) time.Duration {
	if s.IsInterval {
		return s.Interval.Duration()
	}
	return s.At.Sub(now).Duration()
}

// ToTimestampFrom returns the effective deadline timestamp, computed
// relative to now for interval schedules.
func (s ScheduleAt) ToTimestampFrom(now types.Timestamp) types.Timestamp {
	if s.IsInterval {
		return now.Add(s.Interval)
	}
	return s.At
}
