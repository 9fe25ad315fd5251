package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizium/quizium-backend/internal/model"
)

// AnalyticsRepository aggregates attempt outcomes for teacher views.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// QuizSummary is the aggregate view of one quiz's attempts. Percentages are
// computed over the attempt's own total score, so quizzes with different
// point sums remain comparable.
type QuizSummary struct {
	QuizID            uuid.UUID `json:"quiz_id"`
	AttemptCount      int       `json:"attempt_count"`
	CompletedCount    int       `json:"completed_count"`
	AutoSubmitted     int       `json:"auto_submitted_count"`
	AbandonedCount    int       `json:"abandoned_count"`
	AveragePercentage *float64  `json:"average_percentage"`
	PassedCount       int       `json:"passed_count"`
	TotalTabSwitches  int       `json:"total_tab_switches"`
}

// GetQuizSummary aggregates all attempts of a quiz. Attempts still in
// progress count toward attempt_count only. passPercent is the minimum
// percentage counted as a pass.
func (r *AnalyticsRepository) GetQuizSummary(ctx context.Context, quizID uuid.UUID, passPercent int) (*QuizSummary, error) {
	s := &QuizSummary{QuizID: quizID}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			AVG(score * 100.0 / NULLIF(total_score, 0)) FILTER (WHERE status IN ($2, $3)),
			COUNT(*) FILTER (WHERE status IN ($2, $3) AND score * 100.0 / NULLIF(total_score, 0) >= $5),
			COALESCE(SUM(tab_switch_count), 0)
		 FROM attempts WHERE quiz_id = $1`,
		quizID, model.AttemptStatusCompleted, model.AttemptStatusAutoSubmitted,
		model.AttemptStatusAbandoned, passPercent,
	).Scan(&s.AttemptCount, &s.CompletedCount, &s.AutoSubmitted, &s.AbandonedCount,
		&s.AveragePercentage, &s.PassedCount, &s.TotalTabSwitches)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// QuestionBreakdown is the per-question correctness distribution of a quiz.
type QuestionBreakdown struct {
	QuestionID   uuid.UUID `json:"question_id"`
	OrderNum     int       `json:"order_num"`
	AnswerCount  int       `json:"answer_count"`
	CorrectCount int       `json:"correct_count"`
	AvgSeconds   *float64  `json:"avg_time_spent_seconds"`
}

// GetQuestionBreakdown returns per-question stats over all finished attempts.
func (r *AnalyticsRepository) GetQuestionBreakdown(ctx context.Context, quizID uuid.UUID) ([]QuestionBreakdown, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.order_num,
		        COUNT(ar.attempt_id),
		        COUNT(ar.attempt_id) FILTER (WHERE ar.is_correct),
		        AVG(ar.time_spent_seconds)
		 FROM questions q
		 LEFT JOIN answer_records ar ON ar.question_id = q.id
		 WHERE q.quiz_id = $1
		 GROUP BY q.id, q.order_num
		 ORDER BY q.order_num`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []QuestionBreakdown
	for rows.Next() {
		var b QuestionBreakdown
		if err := rows.Scan(&b.QuestionID, &b.OrderNum, &b.AnswerCount, &b.CorrectCount, &b.AvgSeconds); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	if breakdown == nil {
		breakdown = []QuestionBreakdown{}
	}
	return breakdown, rows.Err()
}

// OwnerSummary is the teacher's home view aggregate.
type OwnerSummary struct {
	TotalQuizzes  int `json:"total_quizzes"`
	ActiveQuizzes int `json:"active_quizzes"`
	TotalAttempts int `json:"total_attempts"`
}

// GetOwnerSummary aggregates quiz and attempt counts across one teacher.
func (r *AnalyticsRepository) GetOwnerSummary(ctx context.Context, ownerID int) (*OwnerSummary, error) {
	s := &OwnerSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM quizzes WHERE owner_id = $1),
			(SELECT COUNT(*) FROM quizzes WHERE owner_id = $1 AND is_active = true),
			(SELECT COUNT(*) FROM attempts a JOIN quizzes q ON q.id = a.quiz_id WHERE q.owner_id = $1)`,
		ownerID,
	).Scan(&s.TotalQuizzes, &s.ActiveQuizzes, &s.TotalAttempts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
