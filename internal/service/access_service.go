package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/lifecycle"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Admission errors, ordered by the check that raises them.
var (
	ErrQuizNotStarted   = errors.New("quiz has not started yet")
	ErrQuizEnded        = errors.New("quiz has ended")
	ErrQuizInactive     = errors.New("quiz is not active")
	ErrAlreadyAttempted = errors.New("quiz was already attempted")
	ErrInvalidAccessKey = errors.New("invalid access key")
	ErrNotOnRoster      = errors.New("not on the quiz roster")
)

// GateResult is what a successful admission hands back: the attempt row,
// the sanitized payload, and whether an in-progress attempt was resumed
// rather than created.
type GateResult struct {
	Attempt *model.Attempt     `json:"attempt"`
	Payload *model.QuizPayload `json:"payload"`
	Resumed bool               `json:"resumed"`
}

// AccessService is the admission gate in front of attempt creation. Checks
// run in a fixed order: lifecycle first, then duplicate attempts, then
// credentials. A caller with a wrong key on an inactive quiz learns about
// the inactive quiz, not the wrong key.
type AccessService struct {
	quizSvc     *QuizService
	quizRepo    *repository.QuizRepository
	attemptRepo *repository.AttemptRepository
	rosterRepo  *repository.RosterRepository
	authSvc     *AuthService
	rdb         *redis.Client
	clk         clock.Clock
	log         zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	quizSvc *QuizService,
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	rosterRepo *repository.RosterRepository,
	authSvc *AuthService,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		quizSvc:     quizSvc,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		rosterRepo:  rosterRepo,
		authSvc:     authSvc,
		rdb:         rdb,
		clk:         clk,
		log:         log.With().Str("component", "access_service").Logger(),
	}
}

// checkLifecycle maps the quiz's lifecycle state to an admission error.
func (s *AccessService) checkLifecycle(q *model.Quiz) error {
	switch lifecycle.StateOf(q, s.clk.Now()) {
	case lifecycle.StateActive:
		return nil
	case lifecycle.StatePending:
		return ErrQuizNotStarted
	case lifecycle.StateEnded:
		return ErrQuizEnded
	default:
		return ErrQuizInactive
	}
}

// JoinAsStudent admits a logged-in student into a quiz. The access key is
// an anonymous-entry credential; a student joining by quiz ID does not
// present one. An existing in-progress attempt is resumed; a finished one
// blocks re-entry. Abandoned attempts do not count and a fresh attempt is
// allowed over them.
func (s *AccessService) JoinAsStudent(ctx context.Context, quizID uuid.UUID, studentID int) (*GateResult, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if err := s.checkLifecycle(quiz); err != nil {
		return nil, err
	}

	existing, err := s.attemptRepo.GetByQuizAndUser(ctx, quizID, studentID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		return s.resumeOrReject(ctx, quiz, existing)
	}

	attempt := &model.Attempt{
		QuizID: quizID,
		UserID: &studentID,
	}
	return s.admit(ctx, quiz, attempt)
}

// JoinByKey admits an anonymous participant via the quiz access key. When
// the quiz carries a roster, the {external_id, secret} pair must match a
// roster entry; an empty roster leaves the quiz open to any key holder.
func (s *AccessService) JoinByKey(ctx context.Context, req *model.JoinByKeyRequest) (*GateResult, string, error) {
	// Keys are matched case-sensitive but tolerate copy-paste whitespace.
	quiz, err := s.quizRepo.GetByAccessKey(ctx, strings.TrimSpace(req.AccessKey))
	if err != nil {
		if repository.IsNotFound(err) {
			// An unknown key reveals nothing about which quiz exists.
			return nil, "", ErrInvalidAccessKey
		}
		return nil, "", fmt.Errorf("get quiz: %w", err)
	}
	if err := s.checkLifecycle(quiz); err != nil {
		return nil, "", err
	}

	existing, err := s.attemptRepo.GetByQuizAndGuest(ctx, quiz.ID, req.ExternalID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, "", fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		result, err := s.resumeOrReject(ctx, quiz, existing)
		if err != nil {
			return nil, "", err
		}
		token, err := s.authSvc.GenerateGuestToken(result.Attempt.ID, result.Attempt.DeadlineAt)
		if err != nil {
			return nil, "", fmt.Errorf("sign guest token: %w", err)
		}
		return result, token, nil
	}

	rosterSize, err := s.rosterRepo.CountByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, "", fmt.Errorf("count roster: %w", err)
	}
	name := req.Name
	if rosterSize > 0 {
		entry, err := s.rosterRepo.GetByQuizAndExternalID(ctx, quiz.ID, req.ExternalID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, "", ErrNotOnRoster
			}
			return nil, "", fmt.Errorf("get roster entry: %w", err)
		}
		if err := s.authSvc.CheckPassword(entry.SecretHash, req.Secret); err != nil {
			return nil, "", ErrInvalidCredentials
		}
		// Roster name wins over whatever the participant typed.
		name = entry.Name
	}

	attempt := &model.Attempt{
		QuizID:          quiz.ID,
		GuestName:       &name,
		GuestExternalID: &req.ExternalID,
	}
	result, err := s.admit(ctx, quiz, attempt)
	if err != nil {
		return nil, "", err
	}
	token, err := s.authSvc.GenerateGuestToken(result.Attempt.ID, result.Attempt.DeadlineAt)
	if err != nil {
		return nil, "", fmt.Errorf("sign guest token: %w", err)
	}
	return result, token, nil
}

// resumeOrReject maps an existing non-abandoned attempt to either a resume
// of the in-progress one or an already-attempted rejection.
func (s *AccessService) resumeOrReject(ctx context.Context, quiz *model.Quiz, existing *model.Attempt) (*GateResult, error) {
	if existing.Status != model.AttemptStatusInProgress {
		return nil, ErrAlreadyAttempted
	}

	payload, err := s.quizSvc.GetQuizPayload(ctx, existing.QuizID)
	if err != nil {
		return nil, err
	}
	s.cacheDeadline(ctx, existing)
	return &GateResult{Attempt: existing, Payload: payload, Resumed: true}, nil
}

// admit creates the attempt and assembles the gate result. Concurrent joins
// race in the repository; the loser re-reads the winner's row and resumes it.
func (s *AccessService) admit(ctx context.Context, quiz *model.Quiz, attempt *model.Attempt) (*GateResult, error) {
	payload, err := s.quizSvc.GetQuizPayload(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	attempt.TotalScore = totalPoints(payload)
	attempt.DeadlineAt = now.Add(attemptBudget(quiz, payload))

	if err := s.attemptRepo.CreateIfAbsent(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptExists) {
			existing, fetchErr := s.refetch(ctx, attempt)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent join detected, but fetch failed: %w", fetchErr)
			}
			return s.resumeOrReject(ctx, quiz, existing)
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheDeadline(ctx, attempt)
	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("quiz_id", quiz.ID.String()).
		Msg("Attempt admitted")
	return &GateResult{Attempt: attempt, Payload: payload}, nil
}

func (s *AccessService) refetch(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error) {
	if attempt.UserID != nil {
		return s.attemptRepo.GetByQuizAndUser(ctx, attempt.QuizID, *attempt.UserID)
	}
	return s.attemptRepo.GetByQuizAndGuest(ctx, attempt.QuizID, *attempt.GuestExternalID)
}

// cacheDeadline mirrors the attempt deadline into Redis so state reads and
// the WebSocket stream avoid a DB round trip. Failures are non-fatal; reads
// fall back to PostgreSQL.
func (s *AccessService) cacheDeadline(ctx context.Context, attempt *model.Attempt) {
	key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
	if err := s.rdb.Set(ctx, key, attempt.DeadlineAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache deadline")
	}
}

// totalPoints sums the point values of a payload's questions.
func totalPoints(payload *model.QuizPayload) int {
	total := 0
	for _, q := range payload.Questions {
		total += q.Points
	}
	return total
}

// attemptBudget is the wall-clock budget of one attempt: the quiz duration
// in total mode, the sum of per-question allotments otherwise.
func attemptBudget(quiz *model.Quiz, payload *model.QuizPayload) time.Duration {
	if quiz.TimingMode != model.TimingModePerQuestion {
		return time.Duration(quiz.DurationSeconds) * time.Second
	}
	total := 0
	for _, q := range payload.Questions {
		if q.TimeLimitSeconds != nil && *q.TimeLimitSeconds > 0 {
			total += *q.TimeLimitSeconds
		} else {
			total += quiz.PerQuestionSeconds
		}
	}
	return time.Duration(total) * time.Second
}
