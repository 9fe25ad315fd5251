package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/database"
	"github.com/quizium/quizium-backend/internal/handler"
	"github.com/quizium/quizium-backend/internal/logger"
	"github.com/quizium/quizium-backend/internal/repository"
	"github.com/quizium/quizium-backend/internal/router"
	"github.com/quizium/quizium-backend/internal/scheduler"
	"github.com/quizium/quizium-backend/internal/service"
	"github.com/quizium/quizium-backend/internal/validator"
	"github.com/quizium/quizium-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Quizium Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	clk := clock.System()

	// ─── Initialize Repositories ───────────────────────────────────────
	teacherRepo := repository.NewTeacherRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	rosterRepo := repository.NewRosterRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	teacherService := service.NewTeacherService(teacherRepo, authService)
	quizService := service.NewQuizService(quizRepo, questionRepo, rosterRepo, attemptRepo, rdb, clk, log)
	accessService := service.NewAccessService(quizService, quizRepo, attemptRepo, rosterRepo, authService, rdb, clk, log)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, questionRepo, cfg, rdb, clk, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, quizService, cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, studentService, teacherService),
		Quiz:    handler.NewQuizHandler(quizService, authService, analyticsService),
		Attempt: handler.NewAttemptHandler(accessService, attemptService, quizService),
		WS:      handler.NewWSHandler(quizService, attemptService, clk, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	tabSwitchWorker := worker.NewTabSwitchWorker(attemptRepo, rdb, log)
	janitorWorker := worker.NewJanitorWorker(attemptRepo, cfg.JanitorInterval, cfg.JanitorGrace, log)

	go autosaveWorker.Start(workerCtx)
	go tabSwitchWorker.Start(workerCtx)
	go janitorWorker.Start(workerCtx)

	// ─── Start Lifecycle Scheduler ────────────────────────────────────
	sched := scheduler.New(quizRepo, quizService, clk, cfg.SchedulerInterval, cfg.SchedulerQuizTimeout, log)
	go sched.Run(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all active quizzes into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := quizService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the scheduler and workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
