package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/quizium/quizium-backend/internal/model"
)

// State is the lifecycle position of a quiz at a given instant.
type State string

const (
	// StateUnscheduled means the quiz has no schedule and is inactive;
	// only a manual activate can open it.
	StateUnscheduled State = "UNSCHEDULED"
	// StatePending means the quiz is scheduled but its start has not passed.
	StatePending State = "PENDING"
	// StateActive means the quiz is currently accepting attempts.
	StateActive State = "ACTIVE"
	// StateEnded means the quiz had a schedule whose window has passed.
	StateEnded State = "ENDED"
)

// Manual transition errors.
var (
	ErrAlreadyActive   = errors.New("quiz is already active")
	ErrAlreadyInactive = errors.New("quiz is already inactive")
)

// ConflictKind labels which schedule boundary a manual action crossed.
type ConflictKind string

const (
	ConflictEarlyStart ConflictKind = "EARLY_START"
	ConflictEarlyEnd   ConflictKind = "EARLY_END"
)

// ScheduleConflictError signals that a manual activate/deactivate falls
// outside the quiz's declared window and needs explicit confirmation.
// Boundary carries the would-be scheduled start or end time.
type ScheduleConflictError struct {
	Kind     ConflictKind
	Boundary time.Time
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("%s requires confirmation, scheduled boundary is %s",
		e.Kind, e.Boundary.Format(time.RFC3339))
}

// StartTime combines the quiz's scheduled date and "HH:MM" time into a full
// timestamp in now's location. Returns false when the quiz has no schedule
// or the stored time string is malformed.
func StartTime(q *model.Quiz, now time.Time) (time.Time, bool) {
	if !q.HasSchedule() {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", *q.ScheduledTime)
	if err != nil {
		return time.Time{}, false
	}
	d := *q.ScheduledDate
	return time.Date(d.Year(), d.Month(), d.Day(),
		t.Hour(), t.Minute(), 0, 0, now.Location()), true
}

// EndTime is the scheduled start plus the quiz duration. The end is always
// computed from the original scheduled date, not recomputed against today.
func EndTime(q *model.Quiz, now time.Time) (time.Time, bool) {
	start, ok := StartTime(q, now)
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(q.DurationSeconds) * time.Second), true
}

// sameDate reports whether a and b fall on the same calendar date.
// Both sides are truncated to midnight before comparison.
func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// StateOf computes the lifecycle state of a quiz at now.
func StateOf(q *model.Quiz, now time.Time) State {
	if q.IsActive {
		return StateActive
	}
	if !q.HasSchedule() {
		return StateUnscheduled
	}
	end, _ := EndTime(q, now)
	if q.ActualEndTime != nil || !now.Before(end) {
		return StateEnded
	}
	return StatePending
}

// ShouldActivate implements the Pending→Active scheduler edge: the quiz is
// inactive, scheduled for now's calendar date, and the scheduled start has
// passed. Time-of-day comparison uses full timestamp granularity.
func ShouldActivate(q *model.Quiz, now time.Time) bool {
	if q.IsActive {
		return false
	}
	start, ok := StartTime(q, now)
	if !ok {
		return false
	}
	// A quiz that already ran its window is Ended, not Pending; the
	// scheduler must never reopen it.
	if q.ActualEndTime != nil {
		return false
	}
	return sameDate(*q.ScheduledDate, now) && !now.Before(start)
}

// ShouldEnd implements the Active→Ended scheduler edge: the quiz is active,
// has a schedule, and now is at or past the scheduled end. Quizzes whose
// scheduled date is in the past end as well — the end time stays anchored
// to the original schedule.
func ShouldEnd(q *model.Quiz, now time.Time) bool {
	if !q.IsActive {
		return false
	}
	end, ok := EndTime(q, now)
	if !ok {
		return false
	}
	return !now.Before(end)
}

// CheckActivate validates a manual activate. Without confirmEarly, an
// activate before the scheduled start is rejected with a
// ScheduleConflictError carrying the would-be start time.
// Returns wantEarly=true when the activation is a confirmed early start.
func CheckActivate(q *model.Quiz, now time.Time, confirmEarly bool) (wantEarly bool, err error) {
	if q.IsActive {
		return false, ErrAlreadyActive
	}
	start, ok := StartTime(q, now)
	if !ok {
		return false, nil
	}
	if now.Before(start) {
		if !confirmEarly {
			return false, &ScheduleConflictError{Kind: ConflictEarlyStart, Boundary: start}
		}
		return true, nil
	}
	return false, nil
}

// CheckDeactivate validates a manual deactivate, mirroring CheckActivate
// against the scheduled end.
func CheckDeactivate(q *model.Quiz, now time.Time, confirmEarly bool) (wantEarly bool, err error) {
	if !q.IsActive {
		return false, ErrAlreadyInactive
	}
	end, ok := EndTime(q, now)
	if !ok {
		return false, nil
	}
	if now.Before(end) {
		if !confirmEarly {
			return false, &ScheduleConflictError{Kind: ConflictEarlyEnd, Boundary: end}
		}
		return true, nil
	}
	return false, nil
}
