package zettel

import (
	"errors"
	"testing"
	"time"
)

func TestNewSchedule_Validation(t *testing.T) {
	tests := []struct {
		name      string
		intervals []time.Duration
		wantErr   bool
	}{
		{"default shape", DefaultIntervals, false},
		{"single stage", []time.Duration{time.Hour}, false},
		{"empty", nil, true},
		{"negative interval", []time.Duration{-time.Hour}, true},
		{"decreasing", []time.Duration{48 * time.Hour, 24 * time.Hour}, true},
		{"equal intervals allowed", []time.Duration{time.Hour, time.Hour}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule(tt.intervals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSchedule_Next(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		name                     string
		stage, iteration         int
		wantStage, wantIteration int
	}{
		{"stage 1 advances", 1, 1, 2, 1},
		{"stage 2 advances", 2, 1, 3, 1},
		{"final stage wraps", 3, 1, 1, 2},
		{"wrap preserves later iterations", 3, 7, 1, 8},
		{"mid-cycle in later iteration", 2, 4, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStage, gotIteration := s.Next(tt.stage, tt.iteration)
			if gotStage != tt.wantStage || gotIteration != tt.wantIteration {
				t.Errorf("Next(%d, %d) = (%d, %d), want (%d, %d)",
					tt.stage, tt.iteration, gotStage, gotIteration, tt.wantStage, tt.wantIteration)
			}
		})
	}
}

func TestSchedule_NextCyclesForever(t *testing.T) {
	s := DefaultSchedule()

	stage, iteration := 1, 1
	for i := 0; i < 10; i++ {
		stage, iteration = s.Next(stage, iteration)
		if stage < 1 || stage > s.Stages() {
			t.Fatalf("step %d: stage %d out of range", i, stage)
		}
		if iteration < 1 {
			t.Fatalf("step %d: iteration %d below 1", i, iteration)
		}
	}
	// 10 steps through a 3-stage cycle land on stage 2 of iteration 4.
	if stage != 2 || iteration != 4 {
		t.Errorf("after 10 steps got (stage=%d, iteration=%d), want (2, 4)", stage, iteration)
	}
}

func TestSchedule_DueAt(t *testing.T) {
	s := DefaultSchedule()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := s.DueAt(base, 1); !got.Equal(base) {
		t.Errorf("stage 1 due = %v, want %v", got, base)
	}
	if got, want := s.DueAt(base, 2), base.Add(7*24*time.Hour); !got.Equal(want) {
		t.Errorf("stage 2 due = %v, want %v", got, want)
	}
	if got, want := s.DueAt(base, 3), base.Add(30*24*time.Hour); !got.Equal(want) {
		t.Errorf("stage 3 due = %v, want %v", got, want)
	}
}

func TestSchedule_IntervalClamps(t *testing.T) {
	s := DefaultSchedule()

	if got := s.Interval(0); got != s.Interval(1) {
		t.Errorf("stage below range should clamp to first interval, got %v", got)
	}
	if got := s.Interval(99); got != s.Interval(s.Stages()) {
		t.Errorf("stage above range should clamp to last interval, got %v", got)
	}
}
