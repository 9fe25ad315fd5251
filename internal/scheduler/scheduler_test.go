package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/rs/zerolog"
)

type fakeStore struct {
	quizzes     []model.Quiz
	listErr     error
	activated   []uuid.UUID
	deactivated []uuid.UUID
	activateErr map[uuid.UUID]error
}

func (f *fakeStore) ListScheduled(ctx context.Context) ([]model.Quiz, error) {
	return f.quizzes, f.listErr
}

func (f *fakeStore) Activate(ctx context.Context, id uuid.UUID, early bool) (bool, error) {
	if err := f.activateErr[id]; err != nil {
		return false, err
	}
	f.activated = append(f.activated, id)
	return true, nil
}

func (f *fakeStore) Deactivate(ctx context.Context, id uuid.UUID, early bool) (bool, error) {
	f.deactivated = append(f.deactivated, id)
	return true, nil
}

func scheduledQuiz(date time.Time, at string, durationSeconds int, active bool) model.Quiz {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return model.Quiz{
		ID:              uuid.New(),
		TimingMode:      model.TimingModeTotal,
		DurationSeconds: durationSeconds,
		ScheduledDate:   &d,
		ScheduledTime:   &at,
		IsActive:        active,
	}
}

func newScheduler(store *fakeStore, clk clock.Clock) *Scheduler {
	return New(store, nil, clk, time.Minute, time.Second, zerolog.Nop())
}

func TestTickActivatesDueQuiz(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	quiz := scheduledQuiz(now, "10:00", 600, false)
	store := &fakeStore{quizzes: []model.Quiz{quiz}}

	newScheduler(store, &clock.Fixed{T: now}).Tick(context.Background())

	if len(store.activated) != 1 || store.activated[0] != quiz.ID {
		t.Fatalf("expected activation of %s, got %v", quiz.ID, store.activated)
	}
	if len(store.deactivated) != 0 {
		t.Fatalf("unexpected deactivations: %v", store.deactivated)
	}
}

func TestTickSkipsQuizBeforeStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 59, 59, 0, time.UTC)
	quiz := scheduledQuiz(now, "10:00", 600, false)
	store := &fakeStore{quizzes: []model.Quiz{quiz}}

	newScheduler(store, &clock.Fixed{T: now}).Tick(context.Background())

	if len(store.activated) != 0 {
		t.Fatalf("quiz activated one second early: %v", store.activated)
	}
}

func TestTickEndsExpiredQuiz(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 10, 0, 0, time.UTC)
	quiz := scheduledQuiz(now, "10:00", 600, true)
	store := &fakeStore{quizzes: []model.Quiz{quiz}}

	newScheduler(store, &clock.Fixed{T: now}).Tick(context.Background())

	if len(store.deactivated) != 1 || store.deactivated[0] != quiz.ID {
		t.Fatalf("expected deactivation of %s, got %v", quiz.ID, store.deactivated)
	}
}

func TestTickEndsQuizScheduledOnPastDate(t *testing.T) {
	// The end stays anchored to the original date. An active quiz whose
	// window closed days ago must still be swept shut.
	now := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -2)
	quiz := scheduledQuiz(past, "10:00", 600, true)
	store := &fakeStore{quizzes: []model.Quiz{quiz}}

	newScheduler(store, &clock.Fixed{T: now}).Tick(context.Background())

	if len(store.deactivated) != 1 {
		t.Fatalf("expected sweep of past-date quiz, got %v", store.deactivated)
	}
}

func TestTickIsolatesPerQuizErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	failing := scheduledQuiz(now, "10:00", 600, false)
	healthy := scheduledQuiz(now, "10:00", 600, false)
	store := &fakeStore{
		quizzes:     []model.Quiz{failing, healthy},
		activateErr: map[uuid.UUID]error{failing.ID: errors.New("connection reset")},
	}

	newScheduler(store, &clock.Fixed{T: now}).Tick(context.Background())

	if len(store.activated) != 1 || store.activated[0] != healthy.ID {
		t.Fatalf("healthy quiz should activate despite sibling failure, got %v", store.activated)
	}
}

func TestTickListErrorSkipsSweep(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	newScheduler(store, &clock.Fixed{T: time.Now()}).Tick(context.Background())

	if len(store.activated) != 0 || len(store.deactivated) != 0 {
		t.Fatal("no transitions expected when listing fails")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	s := New(store, nil, clock.System(), 10*time.Millisecond, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
