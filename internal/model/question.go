package model

import (
	"github.com/google/uuid"
)

// QuestionType distinguishes single-answer from multi-answer questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "SINGLE"
	QuestionTypeMultiple QuestionType = "MULTIPLE"
)

// Option is one selectable answer of a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single quiz question.
type Question struct {
	ID               uuid.UUID    `json:"id"`
	QuizID           uuid.UUID    `json:"quiz_id"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Options          []Option     `json:"options"`
	Points           int          `json:"points"`
	TimeLimitSeconds *int         `json:"time_limit_seconds,omitempty"`
	ImageURL         *string      `json:"image_url,omitempty"`
	OrderNum         int          `json:"order_num"`
}

// CorrectOptionTexts returns the texts of all options marked correct,
// in option order.
func (q *Question) CorrectOptionTexts() []string {
	var texts []string
	for _, o := range q.Options {
		if o.IsCorrect {
			texts = append(texts, o.Text)
		}
	}
	return texts
}

// CreateQuestionRequest is one question inside a quiz creation payload.
type CreateQuestionRequest struct {
	Text             string                `json:"text" binding:"required,min=1,max=2000"`
	Type             string                `json:"type" binding:"required,oneof=SINGLE MULTIPLE"`
	Options          []CreateOptionRequest `json:"options" binding:"required,min=2,dive"`
	Points           int                   `json:"points" binding:"required,min=1,max=1000"`
	TimeLimitSeconds *int                  `json:"time_limit_seconds" binding:"omitempty,min=5,max=3600"`
	ImageURL         *string               `json:"image_url" binding:"omitempty,max=500"`
}

// CreateOptionRequest is one option inside a question creation payload.
type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required,min=1,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionForStudent is a question stripped of correctness flags.
type QuestionForStudent struct {
	ID               uuid.UUID    `json:"id"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Options          []string     `json:"options"`
	Points           int          `json:"points"`
	TimeLimitSeconds *int         `json:"time_limit_seconds,omitempty"`
	ImageURL         *string      `json:"image_url,omitempty"`
	OrderNum         int          `json:"order_num"`
}

// ForStudent strips the correctness flags off a question.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = o.Text
	}
	return QuestionForStudent{
		ID:               q.ID,
		Text:             q.Text,
		Type:             q.Type,
		Options:          opts,
		Points:           q.Points,
		TimeLimitSeconds: q.TimeLimitSeconds,
		ImageURL:         q.ImageURL,
		OrderNum:         q.OrderNum,
	}
}
