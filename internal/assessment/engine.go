package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/question"
)

// RunStore is the persistence collaborator for the state machine. Save
// replaces the whole record and enforces the optimistic version check.
type RunStore interface {
	Load(ctx context.Context, runID uuid.UUID) (*Run, error)
	Save(ctx context.Context, run Run) (*Run, error)
}

// Config holds the termination tunables. The defaults match the production
// rules: 20-question cap, start at band 5, three-in-a-row mastery at the top.
type Config struct {
	MaxQuestions    int
	StartDifficulty int
	MasteryStreak   int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxQuestions:    20,
		StartDifficulty: 5,
		MasteryStreak:   3,
	}
}

// Engine is the adaptive assessment state machine. It owns how difficulty
// moves, how score accumulates, and when a run terminates. All durable state
// lives in the Run record: each operation loads a snapshot, computes a new
// value through a pure transition, and saves it back once.
type Engine struct {
	store    RunStore
	bank     QuestionBank
	selector *Selector
	config   Config
	events   EventPublisher
	now      func() time.Time
	logger   zerolog.Logger
}

// EngineOptions configures the engine.
type EngineOptions struct {
	Config Config
	Events EventPublisher   // optional live-monitor feed
	Clock  func() time.Time // defaults to time.Now
}

func NewEngine(store RunStore, bank QuestionBank, selector *Selector, opts EngineOptions, logger zerolog.Logger) *Engine {
	cfg := opts.Config
	if cfg.MaxQuestions == 0 {
		cfg = DefaultConfig()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		store:    store,
		bank:     bank,
		selector: selector,
		config:   cfg,
		events:   opts.Events,
		now:      clock,
		logger:   logger.With().Str("component", "assessment_engine").Logger(),
	}
}

// NewRun builds a fresh in-progress run value for the given owner. It does
// not persist anything.
func (e *Engine) NewRun(ownerID uuid.UUID, inviteCode string) Run {
	return Run{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		InviteCode:        inviteCode,
		Attempts:          []Attempt{},
		CurrentDifficulty: e.config.StartDifficulty,
		Status:            StatusInProgress,
	}
}

// RequestNextQuestion picks the next unused question at the run's current
// difficulty. When the bank is exhausted around that difficulty the run is
// force-completed with ReasonNoQuestionsAvailable and (nil, nil) is
// returned: no next question, by design rather than by failure.
func (e *Engine) RequestNextQuestion(ctx context.Context, runID uuid.UUID) (*NextQuestion, error) {
	run, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Completed() {
		return nil, ErrAlreadyCompleted
	}

	q, err := e.selector.Select(ctx, run.CurrentDifficulty, run.AttemptedQuestionIDs())
	if err != nil {
		return nil, fmt.Errorf("select question: %w", err)
	}

	if q == nil {
		completed := completeRun(*run, ReasonNoQuestionsAvailable, e.now())
		saved, err := e.store.Save(ctx, completed)
		if err != nil {
			return nil, fmt.Errorf("save degraded completion: %w", err)
		}
		e.publishCompleted(ctx, *saved)
		e.logger.Info().
			Str("run_id", runID.String()).
			Int("difficulty", run.CurrentDifficulty).
			Msg("run completed: question bank exhausted")
		return nil, nil
	}

	return &NextQuestion{
		QuestionID: q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
	}, nil
}

// SubmitAnswer evaluates one answer, appends the attempt, updates score,
// streak and difficulty, checks termination, and persists the whole updated
// run atomically.
func (e *Engine) SubmitAnswer(ctx context.Context, runID uuid.UUID, questionID uuid.UUID, selectedAnswer string) (*AnswerResult, error) {
	run, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Completed() {
		return nil, ErrAlreadyCompleted
	}

	q, err := e.bank.FindByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("resolve question: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	updated, result := applyAnswer(*run, *q, selectedAnswer, e.now(), e.config)

	saved, err := e.store.Save(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	e.publishAttempt(ctx, *saved, q.Difficulty, result.IsCorrect)
	if result.Completed {
		e.publishCompleted(ctx, *saved)
	}

	e.logger.Info().
		Str("run_id", runID.String()).
		Str("question_id", questionID.String()).
		Bool("correct", result.IsCorrect).
		Int("score", result.CurrentScore).
		Int("attempts", result.TotalAttempts).
		Bool("completed", result.Completed).
		Msg("answer submitted")

	return &result, nil
}

// applyAnswer is the pure transition function: given an immutable run
// snapshot and the resolved question, it produces the next run value and the
// submission result. No aliasing with the input: the attempt slice is copied
// before appending.
func applyAnswer(run Run, q question.Question, selectedAnswer string, now time.Time, cfg Config) (Run, AnswerResult) {
	// Exact string equality: case-sensitive, no trimming.
	isCorrect := q.CorrectAnswer == selectedAnswer

	attempts := make([]Attempt, len(run.Attempts), len(run.Attempts)+1)
	copy(attempts, run.Attempts)
	run.Attempts = append(attempts, Attempt{
		QuestionID:     q.ID,
		QuestionText:   q.Text,
		SelectedAnswer: selectedAnswer,
		CorrectAnswer:  q.CorrectAnswer,
		IsCorrect:      isCorrect,
		Difficulty:     q.Difficulty,
		AttemptedAt:    now,
	})

	if isCorrect {
		run.Score += q.Difficulty
	}

	// The streak counts unbroken correct answers at the top band only. Any
	// other event resets it, including a correct answer at a lower band.
	if q.Difficulty == question.MaxDifficulty && isCorrect {
		run.ConsecutiveCorrectAtMax++
	} else {
		run.ConsecutiveCorrectAtMax = 0
	}

	// Termination rules in priority order; first match wins.
	switch {
	case len(run.Attempts) >= cfg.MaxQuestions:
		run = completeRun(run, ReasonMaxQuestions, now)
	case q.Difficulty == question.MinDifficulty && !isCorrect:
		run = completeRun(run, ReasonFailedAtFloor, now)
	case run.ConsecutiveCorrectAtMax >= cfg.MasteryStreak:
		run = completeRun(run, ReasonMasteredCeiling, now)
	default:
		// Unit step against the run's difficulty, not the question's: the
		// selector's fallback may have drawn from a nearby band.
		run.CurrentDifficulty = nextDifficulty(run.CurrentDifficulty, isCorrect)
	}

	return run, AnswerResult{
		IsCorrect:       isCorrect,
		CorrectAnswer:   q.CorrectAnswer,
		CurrentScore:    run.Score,
		Completed:       run.Completed(),
		CompletedReason: run.CompletedReason,
		TotalAttempts:   len(run.Attempts),
	}
}

func completeRun(run Run, reason CompletionReason, now time.Time) Run {
	run.Status = StatusCompleted
	run.CompletedReason = reason
	completedAt := now
	run.CompletedAt = &completedAt
	return run
}

func nextDifficulty(current int, isCorrect bool) int {
	if isCorrect {
		return min(current+1, question.MaxDifficulty)
	}
	return max(current-1, question.MinDifficulty)
}

func (e *Engine) publishAttempt(ctx context.Context, run Run, questionDifficulty int, isCorrect bool) {
	if e.events == nil {
		return
	}
	evt := RunEvent{
		Type:          EventTypeAttempt,
		RunID:         run.ID,
		OwnerID:       run.OwnerID,
		Difficulty:    questionDifficulty,
		IsCorrect:     &isCorrect,
		Score:         run.Score,
		TotalAttempts: len(run.Attempts),
		OccurredAt:    e.now(),
	}
	if err := e.events.Publish(ctx, evt); err != nil {
		e.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to publish attempt event")
	}
}

func (e *Engine) publishCompleted(ctx context.Context, run Run) {
	if e.events == nil {
		return
	}
	evt := RunEvent{
		Type:            EventTypeCompleted,
		RunID:           run.ID,
		OwnerID:         run.OwnerID,
		Score:           run.Score,
		TotalAttempts:   len(run.Attempts),
		CompletedReason: run.CompletedReason,
		OccurredAt:      e.now(),
	}
	if err := e.events.Publish(ctx, evt); err != nil {
		e.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to publish completion event")
	}
}
