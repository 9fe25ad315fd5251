package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizium/quizium-backend/internal/model"
)

// RosterRepository handles roster entry data access. A roster is the
// pre-registered set of anonymous participants allowed into a quiz via
// its access key.
type RosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(pool *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// GetByQuizAndExternalID retrieves the roster entry for one participant.
func (r *RosterRepository) GetByQuizAndExternalID(ctx context.Context, quizID uuid.UUID, externalID string) (*model.RosterEntry, error) {
	e := &model.RosterEntry{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, external_id, name, secret_hash, created_at
		 FROM roster_entries
		 WHERE quiz_id = $1 AND external_id = $2`, quizID, externalID,
	).Scan(&e.ID, &e.QuizID, &e.ExternalID, &e.Name, &e.SecretHash, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByQuiz retrieves all roster entries for a quiz.
func (r *RosterRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.RosterEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, external_id, name, secret_hash, created_at
		 FROM roster_entries
		 WHERE quiz_id = $1
		 ORDER BY name`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		if err := rows.Scan(&e.ID, &e.QuizID, &e.ExternalID, &e.Name, &e.SecretHash, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Replace swaps the full roster of a quiz in one transaction. Entries carry
// pre-hashed secrets.
func (r *RosterRepository) Replace(ctx context.Context, quizID uuid.UUID, entries []model.RosterEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM roster_entries WHERE quiz_id = $1`, quizID); err != nil {
		return err
	}

	rows := make([][]any, len(entries))
	for i := range entries {
		entries[i].QuizID = quizID
		entries[i].ID = uuid.New()
		e := &entries[i]
		rows[i] = []any{e.ID, e.QuizID, e.ExternalID, e.Name, e.SecretHash}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"roster_entries"},
		[]string{"id", "quiz_id", "external_id", "name", "secret_hash"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CountByQuiz returns the roster size of a quiz. Zero means the quiz is
// open to any guest who holds the access key.
func (r *RosterRepository) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM roster_entries WHERE quiz_id = $1`, quizID).Scan(&n)
	return n, err
}
