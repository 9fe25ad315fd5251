package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/lifecycle"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/rs/zerolog"
)

// QuizStore is the slice of quiz persistence the scheduler needs.
type QuizStore interface {
	ListScheduled(ctx context.Context) ([]model.Quiz, error)
	Activate(ctx context.Context, id uuid.UUID, early bool) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, early bool) (bool, error)
}

// CacheWarmer is called after a scheduled activation so the first joiner
// hits a warm payload cache.
type CacheWarmer interface {
	WarmQuizCache(ctx context.Context, quiz *model.Quiz) error
}

// Scheduler sweeps scheduled quizzes and applies lifecycle transitions
// whose time has come. One failing quiz never blocks the rest of a sweep.
type Scheduler struct {
	store       QuizStore
	warmer      CacheWarmer
	clk         clock.Clock
	interval    time.Duration
	quizTimeout time.Duration
	log         zerolog.Logger
}

// New creates a Scheduler.
func New(store QuizStore, warmer CacheWarmer, clk clock.Clock, interval, quizTimeout time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		warmer:      warmer,
		clk:         clk,
		interval:    interval,
		quizTimeout: quizTimeout,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// Run ticks until ctx is cancelled. The first sweep happens immediately so
// a restart does not leave due transitions waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("Scheduler started")

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep over all scheduled quizzes.
func (s *Scheduler) Tick(ctx context.Context) {
	quizzes, err := s.store.ListScheduled(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list scheduled quizzes")
		return
	}

	now := s.clk.Now()
	for i := range quizzes {
		s.processQuiz(ctx, &quizzes[i], now)
	}
}

// processQuiz applies at most one transition to a quiz, bounded by the
// per-quiz timeout so a slow write cannot stall the sweep.
func (s *Scheduler) processQuiz(ctx context.Context, quiz *model.Quiz, now time.Time) {
	qctx, cancel := context.WithTimeout(ctx, s.quizTimeout)
	defer cancel()

	switch {
	case lifecycle.ShouldEnd(quiz, now):
		flipped, err := s.store.Deactivate(qctx, quiz.ID, false)
		if err != nil {
			s.log.Error().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Scheduled end failed")
			return
		}
		if flipped {
			s.log.Info().Str("quiz_id", quiz.ID.String()).Msg("Quiz ended on schedule")
		}
	case lifecycle.ShouldActivate(quiz, now):
		flipped, err := s.store.Activate(qctx, quiz.ID, false)
		if err != nil {
			s.log.Error().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Scheduled activation failed")
			return
		}
		if !flipped {
			// A manual activate won the race; nothing left to do.
			return
		}
		s.log.Info().Str("quiz_id", quiz.ID.String()).Msg("Quiz activated on schedule")
		if s.warmer != nil {
			if err := s.warmer.WarmQuizCache(qctx, quiz); err != nil {
				s.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Cache warm after activation failed")
			}
		}
	}
}
