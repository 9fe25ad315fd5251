package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/quizium/quizium-backend/internal/model"
)

func scheduledQuiz(date time.Time, hhmm string, durationSeconds int) *model.Quiz {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	t := hhmm
	return &model.Quiz{
		Title:           "Scheduled",
		TimingMode:      model.TimingModeTotal,
		DurationSeconds: durationSeconds,
		ScheduledDate:   &d,
		ScheduledTime:   &t,
	}
}

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestStartTimeCombinesDateAndTime(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	now := at(2024, time.January, 1, 9, 0, 0)

	start, ok := StartTime(q, now)
	if !ok {
		t.Fatal("expected a schedule")
	}
	want := at(2024, time.January, 1, 10, 0, 0)
	if !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}

	end, ok := EndTime(q, now)
	if !ok {
		t.Fatal("expected an end")
	}
	if wantEnd := at(2024, time.January, 1, 10, 10, 0); !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
}

func TestStartTimeWithoutSchedule(t *testing.T) {
	q := &model.Quiz{Title: "Manual"}
	if _, ok := StartTime(q, time.Now()); ok {
		t.Fatal("unscheduled quiz must not produce a start time")
	}
}

func TestShouldActivate(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"one second before start", at(2024, time.January, 1, 9, 59, 59), false},
		{"exactly at start", at(2024, time.January, 1, 10, 0, 0), true},
		{"one second after start", at(2024, time.January, 1, 10, 0, 1), true},
		{"right date, late evening", at(2024, time.January, 1, 23, 0, 0), true},
		{"day after", at(2024, time.January, 2, 10, 0, 1), false},
		{"day before", at(2023, time.December, 31, 10, 0, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldActivate(q, tc.now); got != tc.want {
				t.Fatalf("ShouldActivate(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestShouldActivateSkipsActiveAndEnded(t *testing.T) {
	now := at(2024, time.January, 1, 10, 30, 0)

	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	q.IsActive = true
	if ShouldActivate(q, now) {
		t.Fatal("active quiz must not activate again")
	}

	// Monotonicity: once a quiz has ended, the scheduler never reopens it.
	ended := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	endTime := at(2024, time.January, 1, 10, 10, 1)
	ended.ActualEndTime = &endTime
	if ShouldActivate(ended, at(2024, time.January, 1, 10, 30, 0)) {
		t.Fatal("ended quiz must not re-enter Active via the scheduler")
	}
}

func TestShouldEnd(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	q.IsActive = true

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"mid window", at(2024, time.January, 1, 10, 5, 0), false},
		{"one second before end", at(2024, time.January, 1, 10, 9, 59), false},
		{"exactly at end", at(2024, time.January, 1, 10, 10, 0), true},
		{"well past end", at(2024, time.January, 1, 11, 0, 0), true},
		// End stays anchored to the original scheduled date.
		{"scheduled date in the past", at(2024, time.January, 3, 9, 0, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldEnd(q, tc.now); got != tc.want {
				t.Fatalf("ShouldEnd(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestShouldEndIgnoresUnscheduled(t *testing.T) {
	q := &model.Quiz{Title: "Manual", IsActive: true, DurationSeconds: 600}
	if ShouldEnd(q, time.Now()) {
		t.Fatal("unscheduled quiz is only ever deactivated manually")
	}
}

func TestCheckActivateEarlyStart(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	now := at(2024, time.January, 1, 9, 59, 0)

	_, err := CheckActivate(q, now, false)
	var conflict *ScheduleConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ScheduleConflictError, got %v", err)
	}
	if conflict.Kind != ConflictEarlyStart {
		t.Fatalf("kind = %s, want %s", conflict.Kind, ConflictEarlyStart)
	}
	if want := at(2024, time.January, 1, 10, 0, 0); !conflict.Boundary.Equal(want) {
		t.Fatalf("boundary = %v, want %v", conflict.Boundary, want)
	}

	// Confirmed early start proceeds and is flagged.
	early, err := CheckActivate(q, now, true)
	if err != nil {
		t.Fatalf("confirmed early start rejected: %v", err)
	}
	if !early {
		t.Fatal("confirmed early start must report wantEarly")
	}
}

func TestCheckActivateAfterStartIsNotEarly(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	early, err := CheckActivate(q, at(2024, time.January, 1, 10, 0, 1), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if early {
		t.Fatal("activation at/after the scheduled start is not early")
	}
}

func TestCheckActivateUnscheduled(t *testing.T) {
	q := &model.Quiz{Title: "Manual"}
	early, err := CheckActivate(q, time.Now(), false)
	if err != nil || early {
		t.Fatalf("manual quiz activates freely, got early=%v err=%v", early, err)
	}

	q.IsActive = true
	if _, err := CheckActivate(q, time.Now(), false); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestCheckDeactivateEarlyEnd(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)
	q.IsActive = true
	now := at(2024, time.January, 1, 10, 5, 0)

	_, err := CheckDeactivate(q, now, false)
	var conflict *ScheduleConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ScheduleConflictError, got %v", err)
	}
	if conflict.Kind != ConflictEarlyEnd {
		t.Fatalf("kind = %s, want %s", conflict.Kind, ConflictEarlyEnd)
	}
	if want := at(2024, time.January, 1, 10, 10, 0); !conflict.Boundary.Equal(want) {
		t.Fatalf("boundary = %v, want %v", conflict.Boundary, want)
	}

	early, err := CheckDeactivate(q, now, true)
	if err != nil || !early {
		t.Fatalf("confirmed early end: early=%v err=%v", early, err)
	}

	q.IsActive = false
	if _, err := CheckDeactivate(q, now, false); !errors.Is(err, ErrAlreadyInactive) {
		t.Fatalf("expected ErrAlreadyInactive, got %v", err)
	}
}

func TestStateOf(t *testing.T) {
	q := scheduledQuiz(at(2024, time.January, 1, 0, 0, 0), "10:00", 600)

	if got := StateOf(q, at(2024, time.January, 1, 9, 0, 0)); got != StatePending {
		t.Fatalf("before start: %s, want %s", got, StatePending)
	}

	q.IsActive = true
	if got := StateOf(q, at(2024, time.January, 1, 10, 1, 0)); got != StateActive {
		t.Fatalf("active: %s, want %s", got, StateActive)
	}

	q.IsActive = false
	if got := StateOf(q, at(2024, time.January, 1, 11, 0, 0)); got != StateEnded {
		t.Fatalf("past end: %s, want %s", got, StateEnded)
	}

	manual := &model.Quiz{Title: "Manual"}
	if got := StateOf(manual, time.Now()); got != StateUnscheduled {
		t.Fatalf("manual: %s, want %s", got, StateUnscheduled)
	}
}
