package question

import (
	"github.com/google/uuid"
)

// Difficulty band bounds. Every question and every run difficulty lives in
// this range.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Question is a single bank entry. CorrectAnswer is server-side only and must
// never reach a learner before they answer.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Difficulty    int       `json:"difficulty"`
	Topic         string    `json:"topic,omitempty"`
}

// ValidDifficulty reports whether d falls inside the supported band range.
func ValidDifficulty(d int) bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}
