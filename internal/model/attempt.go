package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. An attempt is immutable once its
// status leaves IN_PROGRESS.
type AttemptStatus string

const (
	AttemptStatusInProgress    AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted     AttemptStatus = "COMPLETED"
	AttemptStatusAutoSubmitted AttemptStatus = "AUTO_SUBMITTED"
	AttemptStatusAbandoned     AttemptStatus = "ABANDONED"
)

// Attempt represents one identity's single pass through a quiz.
// Identity is either a registered UserID or a guest {name, external_id}
// pair; at least one of the two is always present.
type Attempt struct {
	ID     uuid.UUID `json:"id"`
	QuizID uuid.UUID `json:"quiz_id"`

	UserID          *int    `json:"user_id,omitempty"`
	GuestName       *string `json:"guest_name,omitempty"`
	GuestExternalID *string `json:"guest_external_id,omitempty"`

	Status         AttemptStatus `json:"status"`
	Score          int           `json:"score"`
	TotalScore     int           `json:"total_score"`
	TabSwitchCount int           `json:"tab_switch_count"`

	StartedAt   time.Time  `json:"started_at"`
	DeadlineAt  time.Time  `json:"deadline_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AnswerRecord is the scored outcome of one question within an attempt.
type AnswerRecord struct {
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptions  []string  `json:"selected_options"`
	IsCorrect        bool      `json:"is_correct"`
	PointsEarned     int       `json:"points_earned"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
}

// SubmittedAnswer is one answer inside a submission payload.
type SubmittedAnswer struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptions  []string  `json:"selected_options"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
}

// SubmitAttemptRequest is the payload for finishing an attempt.
type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"dive"`
}

// SaveAnswerRequest is the payload for autosaving a single answer.
type SaveAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptions  []string  `json:"selected_options" binding:"required"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
}

// SavedAnswer is one autosaved answer as held in the Redis hash.
type SavedAnswer struct {
	SelectedOptions  []string `json:"selected_options"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
}

// PersistAnswerJob is one queued background persistence job for an
// autosaved answer.
type PersistAnswerJob struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptions  []string  `json:"selected_options"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
}

// JoinByKeyRequest is the payload for anonymous access-key entry. The key
// is trimmed before matching, so the length bound leaves room for pasted
// whitespace.
type JoinByKeyRequest struct {
	AccessKey  string `json:"access_key" binding:"required,max=16"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	ExternalID string `json:"external_id" binding:"required,min=2,max=64"`
	Secret     string `json:"secret" binding:"required,min=4,max=128"`
}

// AttemptResult is the student-facing view of a finished attempt.
type AttemptResult struct {
	AttemptID      uuid.UUID      `json:"attempt_id"`
	QuizTitle      string         `json:"quiz_title"`
	Status         AttemptStatus  `json:"status"`
	Score          int            `json:"score"`
	TotalScore     int            `json:"total_score"`
	Percentage     int            `json:"percentage"`
	Passed         bool           `json:"passed"`
	TabSwitchCount int            `json:"tab_switch_count"`
	Answers        []AnswerRecord `json:"answers"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}
