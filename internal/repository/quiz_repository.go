package repository

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizium/quizium-backend/internal/model"
)

// QuizRepository handles quiz data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, owner_id, title, timing_mode, duration_seconds, per_question_seconds,
	        scheduled_date, scheduled_time, is_active, actual_start_time, actual_end_time,
	        early_start, early_end, access_key, created_at, updated_at`

func scanQuiz(row pgx.Row, q *model.Quiz) error {
	return row.Scan(&q.ID, &q.OwnerID, &q.Title, &q.TimingMode, &q.DurationSeconds, &q.PerQuestionSeconds,
		&q.ScheduledDate, &q.ScheduledTime, &q.IsActive, &q.ActualStartTime, &q.ActualEndTime,
		&q.EarlyStart, &q.EarlyEnd, &q.AccessKey, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id), q)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByAccessKey retrieves a quiz by its 5-character access key.
func (r *QuizRepository) GetByAccessKey(ctx context.Context, key string) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE access_key = $1`, key), q)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByOwnerPaginated retrieves quizzes owned by a teacher with pagination.
func (r *QuizRepository) ListByOwnerPaginated(ctx context.Context, ownerID, limit, offset int) ([]model.Quiz, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+`, (SELECT COUNT(*) FROM questions WHERE quiz_id = quizzes.id)
		 FROM quizzes WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Title, &q.TimingMode, &q.DurationSeconds, &q.PerQuestionSeconds,
			&q.ScheduledDate, &q.ScheduledTime, &q.IsActive, &q.ActualStartTime, &q.ActualEndTime,
			&q.EarlyStart, &q.EarlyEnd, &q.AccessKey, &q.CreatedAt, &q.UpdatedAt, &q.QuestionCount); err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, rows.Err()
}

// Create inserts a quiz and its questions in a single transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (owner_id, title, timing_mode, duration_seconds, per_question_seconds,
		                      scheduled_date, scheduled_time, access_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		q.OwnerID, q.Title, q.TimingMode, q.DurationSeconds, q.PerQuestionSeconds,
		q.ScheduledDate, q.ScheduledTime, q.AccessKey,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return err
	}

	rows := make([][]any, len(questions))
	for i := range questions {
		questions[i].QuizID = q.ID
		questions[i].ID = uuid.New()
		qq := &questions[i]
		rows[i] = []any{qq.ID, qq.QuizID, qq.Text, qq.Type, qq.Options, qq.Points, qq.TimeLimitSeconds, qq.ImageURL, qq.OrderNum}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "quiz_id", "text", "type", "options", "points", "time_limit_seconds", "image_url", "order_num"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes a quiz. Questions and attempts cascade at the schema level.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID, ownerID int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM quizzes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Activate flips a quiz to active iff it is currently inactive. The first
// activation pins actual_start_time; reactivation within the same window
// keeps the original anchor. Returns false when another writer won the race
// or the quiz was already active.
func (r *QuizRepository) Activate(ctx context.Context, id uuid.UUID, early bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET is_active = true,
		     actual_start_time = COALESCE(actual_start_time, NOW()),
		     early_start = early_start OR $2,
		     updated_at = NOW()
		 WHERE id = $1 AND is_active = false`, id, early)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Deactivate flips a quiz to inactive iff it is currently active.
func (r *QuizRepository) Deactivate(ctx context.Context, id uuid.UUID, early bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET is_active = false,
		     actual_end_time = NOW(),
		     early_end = early_end OR $2,
		     updated_at = NOW()
		 WHERE id = $1 AND is_active = true`, id, early)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListScheduled returns every quiz that carries a calendar schedule.
// The scheduler sweep inspects each one against the current time.
func (r *QuizRepository) ListScheduled(ctx context.Context) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes
		 WHERE scheduled_date IS NOT NULL AND scheduled_time IS NOT NULL
		 ORDER BY scheduled_date, scheduled_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// ListActive returns every currently active quiz.
// Used for cache prewarming on application startup.
func (r *QuizRepository) ListActive(ctx context.Context) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE is_active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// IsNotFound reports whether err is the driver's no-rows sentinel, so
// callers do not have to import pgx directly.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
