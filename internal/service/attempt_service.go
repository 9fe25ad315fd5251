package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/repository"
	"github.com/quizium/quizium-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt errors.
var (
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNotAttemptOwner    = errors.New("attempt belongs to another participant")
	ErrAttemptFinished    = errors.New("attempt is already finished")
	ErrAttemptNotFinished = errors.New("attempt is still in progress")
)

// AttemptState is the resumable view of an in-progress attempt.
type AttemptState struct {
	AttemptID        uuid.UUID                    `json:"attempt_id"`
	Status           model.AttemptStatus          `json:"status"`
	RemainingSeconds float64                      `json:"remaining_seconds"`
	TabSwitchCount   int                          `json:"tab_switch_count"`
	SavedAnswers     map[string]model.SavedAnswer `json:"saved_answers"`
}

// AttemptService handles the in-flight and post-submission life of attempts.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	quizRepo     *repository.QuizRepository
	questionRepo *repository.QuestionRepository
	cfg          *config.Config
	rdb          *redis.Client
	clk          clock.Clock
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	cfg *config.Config,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		cfg:          cfg,
		rdb:          rdb,
		clk:          clk,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// GetOwned fetches an attempt and verifies the caller may touch it.
// studentID is nil for guest callers, whose token is already scoped to the
// attempt ID by the middleware.
func (s *AttemptService) GetOwned(ctx context.Context, attemptID uuid.UUID, studentID *int) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	if studentID != nil {
		if attempt.UserID == nil || *attempt.UserID != *studentID {
			return nil, ErrNotAttemptOwner
		}
	}
	return attempt, nil
}

// SaveAnswer autosaves one answer to Redis and enqueues it for background
// persistence. Answers land durably even if the browser dies mid-attempt.
func (s *AttemptService) SaveAnswer(ctx context.Context, attempt *model.Attempt, req *model.SaveAnswerRequest) error {
	if attempt.Status != model.AttemptStatusInProgress {
		return ErrAttemptFinished
	}

	saved := model.SavedAnswer{
		SelectedOptions:  req.SelectedOptions,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	savedJSON, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	key := config.CacheKey.AttemptAnswersKey(attempt.ID.String())
	if err := s.rdb.HSet(ctx, key, req.QuestionID.String(), savedJSON).Err(); err != nil {
		return fmt.Errorf("autosave answer: %w", err)
	}

	job := model.PersistAnswerJob{
		AttemptID:        attempt.ID,
		QuestionID:       req.QuestionID,
		SelectedOptions:  req.SelectedOptions,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, jobJSON).Err(); err != nil {
		// The Redis hash still holds the answer; the submit path scores
		// from there, so queue loss costs only draft durability.
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to enqueue answer persistence")
	}
	return nil
}

// AddTabSwitch records one visibility change. The count is informational
// and never blocks the attempt, finished or not.
func (s *AttemptService) AddTabSwitch(ctx context.Context, attemptID uuid.UUID) error {
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistTabSwitchesQueue, attemptID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue tab switch: %w", err)
	}
	return nil
}

// GetState returns the resumable state of an attempt. The remaining time
// comes from the cached deadline, falling back to PostgreSQL with a
// self-healing re-cache. A state read past the deadline auto-submits first.
func (s *AttemptService) GetState(ctx context.Context, attempt *model.Attempt) (*AttemptState, error) {
	deadline, err := s.deadlineOf(ctx, attempt)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if attempt.Status == model.AttemptStatusInProgress && !now.Before(deadline) {
		if _, err := s.AutoSubmit(ctx, attempt); err != nil && !errors.Is(err, ErrAttemptFinished) {
			return nil, err
		}
		refreshed, err := s.attemptRepo.GetByID(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		attempt = refreshed
	}

	remaining := deadline.Sub(now).Seconds()
	if remaining < 0 || attempt.Status != model.AttemptStatusInProgress {
		remaining = 0
	}

	saved, err := s.savedAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	return &AttemptState{
		AttemptID:        attempt.ID,
		Status:           attempt.Status,
		RemainingSeconds: remaining,
		TabSwitchCount:   attempt.TabSwitchCount,
		SavedAnswers:     saved,
	}, nil
}

// Submit finishes an attempt with the client's final answers. Missing
// answers fall back to the autosaved ones, so a submit after a crash still
// scores everything the participant saved.
func (s *AttemptService) Submit(ctx context.Context, attempt *model.Attempt, req *model.SubmitAttemptRequest) (*model.AttemptResult, error) {
	answers := make(map[uuid.UUID]scoring.Answer, len(req.Answers))
	for _, a := range req.Answers {
		answers[a.QuestionID] = scoring.Answer{
			SelectedOptions:  a.SelectedOptions,
			TimeSpentSeconds: a.TimeSpentSeconds,
		}
	}
	saved, err := s.savedAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	for qid, sa := range saved {
		id, err := uuid.Parse(qid)
		if err != nil {
			continue
		}
		if _, ok := answers[id]; !ok {
			answers[id] = scoring.Answer{
				SelectedOptions:  sa.SelectedOptions,
				TimeSpentSeconds: sa.TimeSpentSeconds,
			}
		}
	}

	return s.finish(ctx, attempt, answers, model.AttemptStatusCompleted)
}

// AutoSubmit finishes an attempt at deadline expiry using only the
// autosaved answers.
func (s *AttemptService) AutoSubmit(ctx context.Context, attempt *model.Attempt) (*model.AttemptResult, error) {
	saved, err := s.savedAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	answers := make(map[uuid.UUID]scoring.Answer, len(saved))
	for qid, sa := range saved {
		id, err := uuid.Parse(qid)
		if err != nil {
			continue
		}
		answers[id] = scoring.Answer{
			SelectedOptions:  sa.SelectedOptions,
			TimeSpentSeconds: sa.TimeSpentSeconds,
		}
	}
	return s.finish(ctx, attempt, answers, model.AttemptStatusAutoSubmitted)
}

// FinishWithAnswers finishes an attempt with an already-assembled answer
// map. The WebSocket stream uses this to submit its in-memory session.
func (s *AttemptService) FinishWithAnswers(ctx context.Context, attempt *model.Attempt, answers map[uuid.UUID]scoring.Answer, status model.AttemptStatus) (*model.AttemptResult, error) {
	return s.finish(ctx, attempt, answers, status)
}

// finish scores the answers and persists the terminal state. The
// repository's status guard makes racing submits settle on one winner; the
// loser gets ErrAttemptFinished.
func (s *AttemptService) finish(ctx context.Context, attempt *model.Attempt, answers map[uuid.UUID]scoring.Answer, status model.AttemptStatus) (*model.AttemptResult, error) {
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptFinished
	}

	questions, err := s.questionRepo.ListByQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	result := scoring.Score(questions, answers)

	won, err := s.attemptRepo.Complete(ctx, attempt.ID, status, result.Score, result.TotalScore, result.Records)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !won {
		return nil, ErrAttemptFinished
	}

	// The autosave hash and cached deadline are dead weight now.
	s.rdb.Del(ctx,
		config.CacheKey.AttemptAnswersKey(attempt.ID.String()),
		config.CacheKey.AttemptDeadlineKey(attempt.ID.String()))

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("status", string(status)).
		Int("score", result.Score).
		Int("total_score", result.TotalScore).
		Msg("Attempt finished")

	return s.buildResult(ctx, attempt.QuizID, attempt.ID)
}

// GetResult returns the scored outcome of a finished attempt.
func (s *AttemptService) GetResult(ctx context.Context, attempt *model.Attempt) (*model.AttemptResult, error) {
	if attempt.Status == model.AttemptStatusInProgress {
		return nil, ErrAttemptNotFinished
	}
	return s.buildResult(ctx, attempt.QuizID, attempt.ID)
}

func (s *AttemptService) buildResult(ctx context.Context, quizID, attemptID uuid.UUID) (*model.AttemptResult, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	records, err := s.attemptRepo.ListAnswerRecords(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.AnswerRecord{}
	}

	pct := scoring.Percentage(attempt.Score, attempt.TotalScore)
	return &model.AttemptResult{
		AttemptID:      attempt.ID,
		QuizTitle:      quiz.Title,
		Status:         attempt.Status,
		Score:          attempt.Score,
		TotalScore:     attempt.TotalScore,
		Percentage:     pct,
		Passed:         pct >= s.cfg.ResultPassPercent,
		TabSwitchCount: attempt.TabSwitchCount,
		Answers:        records,
		CompletedAt:    attempt.CompletedAt,
	}, nil
}

// deadlineOf reads the attempt deadline from Redis, healing a miss from
// the attempt row itself.
func (s *AttemptService) deadlineOf(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		unix, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr == nil {
			return time.Unix(unix, 0), nil
		}
		// Corrupt entry falls through to the DB value.
	} else if !errors.Is(err, redis.Nil) {
		return time.Time{}, fmt.Errorf("get deadline: %w", err)
	}

	if attempt.Status == model.AttemptStatusInProgress {
		_ = s.rdb.Set(ctx, key, attempt.DeadlineAt.Unix(), 0).Err()
	}
	return attempt.DeadlineAt, nil
}

func (s *AttemptService) savedAnswers(ctx context.Context, attemptID uuid.UUID) (map[string]model.SavedAnswer, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get saved answers: %w", err)
	}
	saved := make(map[string]model.SavedAnswer, len(raw))
	for qid, data := range raw {
		var sa model.SavedAnswer
		if err := json.Unmarshal([]byte(data), &sa); err != nil {
			continue
		}
		saved[qid] = sa
	}
	return saved, nil
}
