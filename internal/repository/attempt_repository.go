package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizium/quizium-backend/internal/model"
)

// ErrAttemptExists is returned by CreateIfAbsent when the identity already
// holds a non-abandoned attempt on the quiz.
var ErrAttemptExists = errors.New("attempt already exists")

// AttemptRow combines an attempt with identity display fields for teacher
// result listings.
type AttemptRow struct {
	AttemptID      uuid.UUID           `json:"attempt_id"`
	DisplayName    string              `json:"display_name"`
	ExternalID     string              `json:"external_id"`
	Status         model.AttemptStatus `json:"status"`
	Score          int                 `json:"score"`
	TotalScore     int                 `json:"total_score"`
	TabSwitchCount int                 `json:"tab_switch_count"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, quiz_id, user_id, guest_name, guest_external_id,
	        status, score, total_score, tab_switch_count, started_at, deadline_at, completed_at`

func scanAttempt(row pgx.Row, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.GuestName, &a.GuestExternalID,
		&a.Status, &a.Score, &a.TotalScore, &a.TabSwitchCount, &a.StartedAt, &a.DeadlineAt, &a.CompletedAt)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByQuizAndUser retrieves the latest non-abandoned attempt for a
// registered user on a quiz.
func (r *AttemptRepository) GetByQuizAndUser(ctx context.Context, quizID uuid.UUID, userID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE quiz_id = $1 AND user_id = $2 AND status <> $3
		 ORDER BY started_at DESC LIMIT 1`,
		quizID, userID, model.AttemptStatusAbandoned), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByQuizAndGuest retrieves the latest non-abandoned attempt for a guest
// identity on a quiz.
func (r *AttemptRepository) GetByQuizAndGuest(ctx context.Context, quizID uuid.UUID, externalID string) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE quiz_id = $1 AND guest_external_id = $2 AND status <> $3
		 ORDER BY started_at DESC LIMIT 1`,
		quizID, externalID, model.AttemptStatusAbandoned), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateIfAbsent inserts a new attempt unless the identity already holds a
// non-abandoned one. Concurrent joins race against the partial unique
// indexes; the loser's insert matches zero rows and ErrAttemptExists is
// returned, so exactly one attempt survives.
func (r *AttemptRepository) CreateIfAbsent(ctx context.Context, a *model.Attempt) error {
	err := scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO attempts (quiz_id, user_id, guest_name, guest_external_id, status, total_score, deadline_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT DO NOTHING
		 RETURNING `+attemptColumns,
		a.QuizID, a.UserID, a.GuestName, a.GuestExternalID,
		model.AttemptStatusInProgress, a.TotalScore, a.DeadlineAt), a)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAttemptExists
	}
	return err
}

// Complete finalizes an attempt iff it is still in progress. The status
// guard makes double submission a no-op for the second writer.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, status model.AttemptStatus, score, total int, records []model.AnswerRecord) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, total_score = $3, completed_at = NOW()
		 WHERE id = $4 AND status = $5`,
		status, score, total, id, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{id, rec.QuestionID, rec.SelectedOptions, rec.IsCorrect, rec.PointsEarned, rec.TimeSpentSeconds}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"answer_records"},
		[]string{"attempt_id", "question_id", "selected_options", "is_correct", "points_earned", "time_spent_seconds"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// ListAnswerRecords returns the scored answers of an attempt in question order.
func (r *AttemptRepository) ListAnswerRecords(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ar.question_id, ar.selected_options, ar.is_correct, ar.points_earned, ar.time_spent_seconds
		 FROM answer_records ar
		 JOIN questions q ON q.id = ar.question_id
		 WHERE ar.attempt_id = $1
		 ORDER BY q.order_num`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var rec model.AnswerRecord
		if err := rows.Scan(&rec.QuestionID, &rec.SelectedOptions, &rec.IsCorrect, &rec.PointsEarned, &rec.TimeSpentSeconds); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BulkAddTabSwitches applies batched visibility-change counts in one round
// trip. Counts are per attempt and additive.
func (r *AttemptRepository) BulkAddTabSwitches(ctx context.Context, attemptIDs []uuid.UUID, counts []int) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	if len(attemptIDs) != len(counts) {
		return fmt.Errorf("mismatched batch lengths: %d ids, %d counts", len(attemptIDs), len(counts))
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts AS a
		 SET tab_switch_count = a.tab_switch_count + u.delta
		 FROM (SELECT UNNEST($1::uuid[]) AS id, UNNEST($2::int[]) AS delta) AS u
		 WHERE a.id = u.id`,
		attemptIDs, counts)
	return err
}

// MarkStaleAbandoned flips in-progress attempts whose deadline passed more
// than grace ago to ABANDONED. Returns the number of attempts swept.
func (r *AttemptRepository) MarkStaleAbandoned(ctx context.Context, grace time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1
		 WHERE status = $2 AND deadline_at < NOW() - $3::interval`,
		model.AttemptStatusAbandoned, model.AttemptStatusInProgress,
		fmt.Sprintf("%d seconds", int(grace.Seconds())))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByQuizPaginated returns attempts on a quiz with display identities
// resolved, for teacher result views.
func (r *AttemptRepository) ListByQuizPaginated(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]AttemptRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id = $1`, quizID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id,
		        COALESCE(s.name, a.guest_name, ''),
		        COALESCE(s.username, a.guest_external_id, ''),
		        a.status, a.score, a.total_score, a.tab_switch_count, a.started_at, a.completed_at
		 FROM attempts a
		 LEFT JOIN students s ON s.id = a.user_id
		 WHERE a.quiz_id = $1
		 ORDER BY a.started_at ASC
		 LIMIT $2 OFFSET $3`, quizID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptRow
	for rows.Next() {
		var row AttemptRow
		if err := rows.Scan(&row.AttemptID, &row.DisplayName, &row.ExternalID,
			&row.Status, &row.Score, &row.TotalScore, &row.TabSwitchCount, &row.StartedAt, &row.CompletedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}
