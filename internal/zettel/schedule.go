package zettel

import (
	"fmt"
	"time"
)

// Schedule is the spaced-repetition interval policy. Stages are
// 1-based: stage k uses intervals[k-1] as the delay before the review
// comes due. After the last stage the card wraps back to stage 1 with
// the iteration counter incremented, so cards cycle through the
// schedule indefinitely.
type Schedule struct {
	intervals []time.Duration
}

// DefaultIntervals is the stock three-stage schedule: review on
// creation day, after a week, after a month.
var DefaultIntervals = []time.Duration{
	0,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// NewSchedule builds a schedule from per-stage delays. Intervals must
// be non-empty and non-decreasing.
func NewSchedule(intervals []time.Duration) (*Schedule, error) {
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: schedule needs at least one interval", ErrInvalid)
	}
	for i, iv := range intervals {
		if iv < 0 {
			return nil, fmt.Errorf("%w: interval %d is negative", ErrInvalid, i+1)
		}
		if i > 0 && iv < intervals[i-1] {
			return nil, fmt.Errorf("%w: intervals must be non-decreasing", ErrInvalid)
		}
	}
	s := &Schedule{intervals: make([]time.Duration, len(intervals))}
	copy(s.intervals, intervals)
	return s, nil
}

// DefaultSchedule returns the stock 0/7/30-day schedule.
func DefaultSchedule() *Schedule {
	s, _ := NewSchedule(DefaultIntervals)
	return s
}

// Stages returns the number of stages in one iteration.
func (s *Schedule) Stages() int { return len(s.intervals) }

// Interval returns the delay before a stage's review comes due. Stages
// outside [1, Stages()] clamp to the nearest valid stage.
func (s *Schedule) Interval(stage int) time.Duration {
	if stage < 1 {
		stage = 1
	}
	if stage > len(s.intervals) {
		stage = len(s.intervals)
	}
	return s.intervals[stage-1]
}

// Next computes the stage and iteration that follow a completed review.
// Completing a non-final stage advances to the next stage in the same
// iteration; completing the final stage wraps to stage 1 of the next
// iteration.
func (s *Schedule) Next(stage, iteration int) (int, int) {
	if stage < s.Stages() {
		return stage + 1, iteration
	}
	return 1, iteration + 1
}

// DueAt computes when a review at the given stage comes due, counting
// from the moment the previous step finished (card creation for the
// first review, completion time otherwise).
func (s *Schedule) DueAt(from time.Time, stage int) time.Time {
	return from.Add(s.Interval(stage))
}
