package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// tabSwitchStore is the slice of attempt persistence the worker needs.
type tabSwitchStore interface {
	BulkAddTabSwitches(ctx context.Context, attemptIDs []uuid.UUID, counts []int) error
}

// TabSwitchWorker batches visibility-change events into per-attempt counter
// bumps. Each queue item is one attempt ID; the flush aggregates duplicates
// so a hundred switches on one attempt cost a single row update.
type TabSwitchWorker struct {
	store tabSwitchStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewTabSwitchWorker creates a new TabSwitchWorker.
func NewTabSwitchWorker(store tabSwitchStore, rdb *redis.Client, log zerolog.Logger) *TabSwitchWorker {
	return &TabSwitchWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "tabswitch_worker").Logger(),
	}
}

// Start begins the batching loop. Call in a goroutine.
func (w *TabSwitchWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]uuid.UUID, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size).
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown).
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second, returns
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistTabSwitchesQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		id, err := uuid.Parse(result[1])
		if err != nil {
			// A malformed ID cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed attempt ID")
			continue
		}

		buffer = append(buffer, id)
	}
}

// flushSafe attempts the bulk update, then falls back to requeueing.
func (w *TabSwitchWorker) flushSafe(ctx context.Context, batch []uuid.UUID) {
	ids, deltas := aggregate(batch)

	if err := w.store.BulkAddTabSwitches(ctx, ids, deltas); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Bulk update failed, requeueing batch")
		w.requeue(ctx, batch)
		return
	}

	w.log.Debug().Int("events", len(batch)).Int("attempts", len(ids)).Msg("Flushed tab switches")
}

// aggregate collapses the raw event list into per-attempt deltas.
func aggregate(batch []uuid.UUID) ([]uuid.UUID, []int) {
	counts := make(map[uuid.UUID]int, len(batch))
	order := make([]uuid.UUID, 0, len(batch))
	for _, id := range batch {
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}
	deltas := make([]int, len(order))
	for i, id := range order {
		deltas[i] = counts[id]
	}
	return order, deltas
}

func (w *TabSwitchWorker) requeue(ctx context.Context, items []uuid.UUID) {
	pipe := w.rdb.Pipeline()
	for _, id := range items {
		pipe.RPush(ctx, config.WorkerKey.PersistTabSwitchesQueue, id.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Sleep a bit to avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *TabSwitchWorker) shutdown(buffer []uuid.UUID) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
