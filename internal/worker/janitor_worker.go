package worker

import (
	"context"
	"time"

	"github.com/quizium/quizium-backend/internal/repository"
	"github.com/rs/zerolog"
)

// JanitorWorker sweeps attempts that were started and then walked away
// from. An in-progress attempt past its deadline plus the grace period is
// marked abandoned, which frees the identity to attempt the quiz again.
type JanitorWorker struct {
	attemptRepo *repository.AttemptRepository
	interval    time.Duration
	grace       time.Duration
	log         zerolog.Logger
}

// NewJanitorWorker creates a new JanitorWorker.
func NewJanitorWorker(attemptRepo *repository.AttemptRepository, interval, grace time.Duration, log zerolog.Logger) *JanitorWorker {
	return &JanitorWorker{
		attemptRepo: attemptRepo,
		interval:    interval,
		grace:       grace,
		log:         log.With().Str("component", "janitor_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *JanitorWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("grace", w.grace).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *JanitorWorker) sweep(ctx context.Context) {
	swept, err := w.attemptRepo.MarkStaleAbandoned(ctx, w.grace)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
		return
	}
	if swept > 0 {
		w.log.Info().Int64("count", swept).Msg("Marked stale attempts abandoned")
	}
}
