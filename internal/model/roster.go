package model

import (
	"time"

	"github.com/google/uuid"
)

// RosterEntry is one pre-registered anonymous participant of a quiz.
// The secret is stored hashed; AccessGate verifies it on access-key entry.
type RosterEntry struct {
	ID         uuid.UUID `json:"id"`
	QuizID     uuid.UUID `json:"quiz_id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReplaceRosterRequest bulk-replaces the roster of a quiz. An empty entry
// list clears the roster and reopens the quiz to any access key holder.
type ReplaceRosterRequest struct {
	Entries []RosterEntryRequest `json:"entries" binding:"omitempty,dive"`
}

// RosterEntryRequest is one roster entry in a replace payload.
type RosterEntryRequest struct {
	ExternalID string `json:"external_id" binding:"required,min=2,max=64"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Secret     string `json:"secret" binding:"required,min=4,max=128"`
}
