package model

import (
	"time"

	"github.com/google/uuid"
)

// TimingMode determines how an attempt is timed.
type TimingMode string

const (
	// TimingModeTotal runs one countdown over the whole quiz; students may
	// navigate freely between questions.
	TimingModeTotal TimingMode = "TOTAL"
	// TimingModePerQuestion restarts the countdown on every question and
	// forbids backward navigation.
	TimingModePerQuestion TimingMode = "PER_QUESTION"
)

// Quiz represents a quiz entity.
type Quiz struct {
	ID                 uuid.UUID  `json:"id"`
	OwnerID            int        `json:"owner_id"`
	Title              string     `json:"title"`
	TimingMode         TimingMode `json:"timing_mode"`
	DurationSeconds    int        `json:"duration_seconds"`
	PerQuestionSeconds int        `json:"per_question_seconds,omitempty"`

	// ScheduledDate and ScheduledTime are both nil for manually-activated
	// quizzes. When both are set they combine into the scheduled start.
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`

	IsActive        bool       `json:"is_active"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`
	EarlyStart      bool       `json:"early_start"`
	EarlyEnd        bool       `json:"early_end"`

	AccessKey string `json:"access_key,omitempty"`

	QuestionCount int       `json:"question_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasSchedule reports whether the quiz carries a calendar schedule. A quiz
// without one is only ever moved by manual activate/deactivate.
func (q *Quiz) HasSchedule() bool {
	return q.ScheduledDate != nil && q.ScheduledTime != nil
}

// CreateQuizRequest is the payload for creating a quiz with its questions.
type CreateQuizRequest struct {
	Title              string                  `json:"title" binding:"required,min=3,max=255"`
	TimingMode         string                  `json:"timing_mode" binding:"required,oneof=TOTAL PER_QUESTION"`
	DurationSeconds    int                     `json:"duration_seconds" binding:"required,min=30,max=28800"`
	PerQuestionSeconds int                     `json:"per_question_seconds" binding:"omitempty,min=5,max=3600"`
	ScheduledDate      string                  `json:"scheduled_date" binding:"omitempty,datetime=2006-01-02"`
	ScheduledTime      string                  `json:"scheduled_time" binding:"omitempty,datetime=15:04"`
	Questions          []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// QuizPayload is the sanitized quiz sent to a student at session start.
// It never carries option correctness flags.
type QuizPayload struct {
	QuizID             uuid.UUID            `json:"quiz_id"`
	Title              string               `json:"title"`
	TimingMode         TimingMode           `json:"timing_mode"`
	DurationSeconds    int                  `json:"duration_seconds"`
	PerQuestionSeconds int                  `json:"per_question_seconds,omitempty"`
	Questions          []QuestionForStudent `json:"questions"`
}
