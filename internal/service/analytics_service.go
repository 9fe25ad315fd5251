package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/repository"
)

// AnalyticsService aggregates attempt outcomes for teacher views. The pass
// threshold here is a distinct knob from the student-facing one.
type AnalyticsService struct {
	analyticsRepo *repository.AnalyticsRepository
	quizSvc       *QuizService
	cfg           *config.Config
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(analyticsRepo *repository.AnalyticsRepository, quizSvc *QuizService, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{analyticsRepo: analyticsRepo, quizSvc: quizSvc, cfg: cfg}
}

// QuizSummary aggregates the attempts of an owned quiz.
func (s *AnalyticsService) QuizSummary(ctx context.Context, quizID uuid.UUID, ownerID int) (*repository.QuizSummary, error) {
	if _, err := s.quizSvc.GetOwned(ctx, quizID, ownerID); err != nil {
		return nil, err
	}
	return s.analyticsRepo.GetQuizSummary(ctx, quizID, s.cfg.AnalyticsPassPercent)
}

// QuestionBreakdown returns per-question stats for an owned quiz.
func (s *AnalyticsService) QuestionBreakdown(ctx context.Context, quizID uuid.UUID, ownerID int) ([]repository.QuestionBreakdown, error) {
	if _, err := s.quizSvc.GetOwned(ctx, quizID, ownerID); err != nil {
		return nil, err
	}
	return s.analyticsRepo.GetQuestionBreakdown(ctx, quizID)
}

// OwnerSummary returns the teacher's home view aggregate.
func (s *AnalyticsService) OwnerSummary(ctx context.Context, ownerID int) (*repository.OwnerSummary, error) {
	return s.analyticsRepo.GetOwnerSummary(ctx, ownerID)
}
