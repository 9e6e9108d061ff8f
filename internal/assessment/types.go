package assessment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of an assessment run. The only transition is in_progress ->
// completed, and completed is terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CompletionReason records which rule ended a run.
type CompletionReason string

const (
	// ReasonMaxQuestions fires once the attempt cap is reached.
	ReasonMaxQuestions CompletionReason = "max_questions_reached"
	// ReasonFailedAtFloor fires on an incorrect answer at the lowest band.
	ReasonFailedAtFloor CompletionReason = "failed_at_floor"
	// ReasonMasteredCeiling fires after the mastery streak at the top band.
	ReasonMasteredCeiling CompletionReason = "mastered_ceiling"
	// ReasonNoQuestionsAvailable is the degraded-mode termination: the bank
	// ran out of unused questions near the run's difficulty.
	ReasonNoQuestionsAvailable CompletionReason = "no_questions_available"
)

var (
	ErrAlreadyCompleted = errors.New("assessment run already completed")
	ErrRunNotFound      = errors.New("assessment run not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrVersionConflict  = errors.New("assessment run modified concurrently")
)

// Attempt is one answered question, recorded with snapshots of the question
// text and correct answer at answer time. Attempts are append-only.
type Attempt struct {
	QuestionID     uuid.UUID `json:"question_id"`
	QuestionText   string    `json:"question_text"`
	SelectedAnswer string    `json:"selected_answer"`
	CorrectAnswer  string    `json:"correct_answer"`
	IsCorrect      bool      `json:"is_correct"`
	Difficulty     int       `json:"difficulty"`
	AttemptedAt    time.Time `json:"attempted_at"`
}

// Run is one learner's adaptive assessment session. OwnerID is an opaque
// reference: the run never dereferences it, and the store never enriches it.
// Version backs optimistic concurrency on save.
type Run struct {
	ID                      uuid.UUID        `json:"run_id"`
	OwnerID                 uuid.UUID        `json:"owner_id"`
	InviteCode              string           `json:"invite_code"`
	Attempts                []Attempt        `json:"attempts"`
	Score                   int              `json:"score"`
	CurrentDifficulty       int              `json:"current_difficulty"`
	ConsecutiveCorrectAtMax int              `json:"consecutive_correct_at_max"`
	Status                  Status           `json:"status"`
	CompletedReason         CompletionReason `json:"completed_reason,omitempty"`
	CompletedAt             *time.Time       `json:"completed_at,omitempty"`
	Version                 int64            `json:"version"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// Completed reports whether the run is terminal.
func (r Run) Completed() bool {
	return r.Status == StatusCompleted
}

// AttemptedQuestionIDs returns the set of question IDs already used in this
// run, for exclusion during selection.
func (r Run) AttemptedQuestionIDs() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(r.Attempts))
	for _, a := range r.Attempts {
		ids[a.QuestionID] = struct{}{}
	}
	return ids
}

// NextQuestion is the presentation view handed to the learner. It carries
// everything needed to render the question and deliberately omits the
// correct answer.
type NextQuestion struct {
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	Options    []string  `json:"options"`
	Difficulty int       `json:"difficulty"`
}

// AnswerResult is what a submission returns: immediate feedback plus the
// run's updated progress.
type AnswerResult struct {
	IsCorrect       bool             `json:"is_correct"`
	CorrectAnswer   string           `json:"correct_answer"`
	CurrentScore    int              `json:"current_score"`
	Completed       bool             `json:"completed"`
	CompletedReason CompletionReason `json:"completed_reason,omitempty"`
	TotalAttempts   int              `json:"total_attempts"`
}
