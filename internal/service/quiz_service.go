package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/lifecycle"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/repository"
	"github.com/quizium/quizium-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNotQuizOwner       = errors.New("not the owner of this quiz")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrNoCorrectOption    = errors.New("question must mark at least one option correct")
	ErrSingleMultiCorrect = errors.New("single-choice question must mark exactly one option correct")
	ErrPartialSchedule    = errors.New("scheduled_date and scheduled_time must be set together")
)

// accessKeyAlphabet excludes look-alike characters so keys survive being
// read aloud or written on a whiteboard.
const accessKeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const accessKeyLength = 5

// QuizService handles quiz business logic and Redis payload caching.
type QuizService struct {
	quizRepo     *repository.QuizRepository
	questionRepo *repository.QuestionRepository
	rosterRepo   *repository.RosterRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	clk          clock.Clock
	log          zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	rosterRepo *repository.RosterRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		rosterRepo:   rosterRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		clk:          clk,
		log:          log.With().Str("component", "quiz_service").Logger(),
	}
}

// GenerateAccessKey produces a 5-character key from the restricted alphabet.
func GenerateAccessKey() (string, error) {
	buf := make([]byte, accessKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = accessKeyAlphabet[int(b)%len(accessKeyAlphabet)]
	}
	return string(buf), nil
}

// Create validates and inserts a quiz with its questions.
func (s *QuizService) Create(ctx context.Context, ownerID int, req *model.CreateQuizRequest) (*model.Quiz, error) {
	if (req.ScheduledDate == "") != (req.ScheduledTime == "") {
		return nil, ErrPartialSchedule
	}

	questions := make([]model.Question, len(req.Questions))
	for i, qr := range req.Questions {
		correct := 0
		opts := make([]model.Option, len(qr.Options))
		for j, or := range qr.Options {
			opts[j] = model.Option{Text: or.Text, IsCorrect: or.IsCorrect}
			if or.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return nil, ErrNoCorrectOption
		}
		if qr.Type == string(model.QuestionTypeSingle) && correct != 1 {
			return nil, ErrSingleMultiCorrect
		}
		questions[i] = model.Question{
			Text:             qr.Text,
			Type:             model.QuestionType(qr.Type),
			Options:          opts,
			Points:           qr.Points,
			TimeLimitSeconds: qr.TimeLimitSeconds,
			ImageURL:         qr.ImageURL,
			OrderNum:         i + 1,
		}
	}

	key, err := GenerateAccessKey()
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		OwnerID:            ownerID,
		Title:              req.Title,
		TimingMode:         model.TimingMode(req.TimingMode),
		DurationSeconds:    req.DurationSeconds,
		PerQuestionSeconds: req.PerQuestionSeconds,
		AccessKey:          key,
	}
	if req.ScheduledDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.ScheduledDate, s.clk.Now().Location())
		if err != nil {
			return nil, fmt.Errorf("parse scheduled_date: %w", err)
		}
		quiz.ScheduledDate = &d
		quiz.ScheduledTime = &req.ScheduledTime
	}

	if err := s.quizRepo.Create(ctx, quiz, questions); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	quiz.QuestionCount = len(questions)

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Int("owner_id", ownerID).
		Int("questions", len(questions)).
		Msg("Quiz created")
	return quiz, nil
}

// GetOwned retrieves a quiz and verifies ownership.
func (s *QuizService) GetOwned(ctx context.Context, id uuid.UUID, ownerID int) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.OwnerID != ownerID {
		return nil, ErrNotQuizOwner
	}
	return quiz, nil
}

// ListByOwner retrieves quizzes owned by a teacher with pagination.
func (s *QuizService) ListByOwner(ctx context.Context, ownerID, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	quizzes, total, err := s.quizRepo.ListByOwnerPaginated(ctx, ownerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return quizzes, pagination, nil
}

// Delete removes a quiz owned by the teacher.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID, ownerID int) error {
	deleted, err := s.quizRepo.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrQuizNotFound
	}
	s.rdb.Del(ctx, config.CacheKey.QuizPayloadKey(id.String()))
	return nil
}

// State reports the lifecycle state of a quiz at the current instant.
func (s *QuizService) State(q *model.Quiz) lifecycle.State {
	return lifecycle.StateOf(q, s.clk.Now())
}

// Activate opens a quiz for attempts. Activating before the scheduled start
// requires confirmEarly; the returned ScheduleConflictError carries the
// would-be start so the client can render a confirmation prompt. The flip
// itself is a compare-and-set, so racing activations resolve to one winner.
func (s *QuizService) Activate(ctx context.Context, id uuid.UUID, ownerID int, confirmEarly bool) (*model.Quiz, error) {
	quiz, err := s.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	early, err := lifecycle.CheckActivate(quiz, s.clk.Now(), confirmEarly)
	if err != nil {
		return nil, err
	}

	flipped, err := s.quizRepo.Activate(ctx, id, early)
	if err != nil {
		return nil, fmt.Errorf("activate quiz: %w", err)
	}
	if !flipped {
		return nil, lifecycle.ErrAlreadyActive
	}

	// Warm the payload cache so the first joiner does not pay the DB read.
	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Failed to warm payload cache")
	}

	s.log.Info().Str("quiz_id", id.String()).Bool("early", early).Msg("Quiz activated")
	return s.quizRepo.GetByID(ctx, id)
}

// Deactivate closes a quiz, mirroring Activate against the scheduled end.
func (s *QuizService) Deactivate(ctx context.Context, id uuid.UUID, ownerID int, confirmEarly bool) (*model.Quiz, error) {
	quiz, err := s.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	early, err := lifecycle.CheckDeactivate(quiz, s.clk.Now(), confirmEarly)
	if err != nil {
		return nil, err
	}

	flipped, err := s.quizRepo.Deactivate(ctx, id, early)
	if err != nil {
		return nil, fmt.Errorf("deactivate quiz: %w", err)
	}
	if !flipped {
		return nil, lifecycle.ErrAlreadyInactive
	}

	s.log.Info().Str("quiz_id", id.String()).Bool("early", early).Msg("Quiz deactivated")
	return s.quizRepo.GetByID(ctx, id)
}

// WarmQuizCache builds the sanitized payload and stores it in Redis.
func (s *QuizService) WarmQuizCache(ctx context.Context, quiz *model.Quiz) error {
	payload, err := s.buildPayload(ctx, quiz)
	if err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuizPayloadKey(quiz.ID.String()), payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", quiz.ID.String()).
		Int("questions", len(payload.Questions)).
		Msg("Payload cache warmed")
	return nil
}

// PrewarmAllCaches loads every active quiz payload into Redis on startup.
func (s *QuizService) PrewarmAllCaches(ctx context.Context) error {
	quizzes, err := s.quizRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active quizzes: %w", err)
	}

	warmed := 0
	for i := range quizzes {
		if err := s.WarmQuizCache(ctx, &quizzes[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("quiz_id", quizzes[i].ID.String()).
				Msg("Failed to warm quiz, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(quizzes)).Msg("Prewarming complete")
	return nil
}

// GetQuizPayload returns the sanitized payload, preferring Redis and
// falling back to PostgreSQL with a self-healing re-cache.
func (s *QuizService) GetQuizPayload(ctx context.Context, quizID uuid.UUID) (*model.QuizPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.QuizPayloadKey(quizID.String())).Bytes()
	if err == nil {
		var payload model.QuizPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			return &payload, nil
		}
		// Corrupt cache entry falls through to the DB path.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	payload, err := s.buildPayload(ctx, quiz)
	if err != nil {
		return nil, err
	}

	// Self-heal so the next reader hits the cache.
	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Cache self-heal failed")
	}
	return payload, nil
}

func (s *QuizService) buildPayload(ctx context.Context, quiz *model.Quiz) (*model.QuizPayload, error) {
	questions, err := s.questionRepo.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	return &model.QuizPayload{
		QuizID:             quiz.ID,
		Title:              quiz.Title,
		TimingMode:         quiz.TimingMode,
		DurationSeconds:    quiz.DurationSeconds,
		PerQuestionSeconds: quiz.PerQuestionSeconds,
		Questions:          studentQuestions,
	}, nil
}

// ReplaceRoster swaps the quiz's roster, hashing each secret first.
func (s *QuizService) ReplaceRoster(ctx context.Context, quizID uuid.UUID, ownerID int, auth *AuthService, req *model.ReplaceRosterRequest) error {
	if _, err := s.GetOwned(ctx, quizID, ownerID); err != nil {
		return err
	}

	entries := make([]model.RosterEntry, len(req.Entries))
	for i, er := range req.Entries {
		hash, err := auth.HashPassword(er.Secret)
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		entries[i] = model.RosterEntry{
			ExternalID: er.ExternalID,
			Name:       er.Name,
			SecretHash: hash,
		}
	}

	if err := s.rosterRepo.Replace(ctx, quizID, entries); err != nil {
		return fmt.Errorf("replace roster: %w", err)
	}
	s.log.Info().Str("quiz_id", quizID.String()).Int("entries", len(entries)).Msg("Roster replaced")
	return nil
}

// ListRoster returns the roster of an owned quiz.
func (s *QuizService) ListRoster(ctx context.Context, quizID uuid.UUID, ownerID int) ([]model.RosterEntry, error) {
	if _, err := s.GetOwned(ctx, quizID, ownerID); err != nil {
		return nil, err
	}
	entries, err := s.rosterRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.RosterEntry{}
	}
	return entries, nil
}

// ListResults returns paginated attempt rows for an owned quiz.
func (s *QuizService) ListResults(ctx context.Context, quizID uuid.UUID, ownerID, page, perPage int) ([]repository.AttemptRow, *response.Pagination, error) {
	if _, err := s.GetOwned(ctx, quizID, ownerID); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	rows, total, err := s.attemptRepo.ListByQuizPaginated(ctx, quizID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if rows == nil {
		rows = []repository.AttemptRow{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return rows, pagination, nil
}
