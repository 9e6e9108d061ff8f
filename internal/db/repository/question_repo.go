package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillgauge/assessment-platform/internal/question"
)

// QuestionRepository persists the question bank in Postgres.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a question repository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByDifficulty returns all questions in a difficulty band.
func (r *QuestionRepository) GetByDifficulty(ctx context.Context, difficulty int) ([]question.Question, error) {
	const query = `
		SELECT question_id, text, options, correct_answer, difficulty, topic
		FROM questions
		WHERE difficulty = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, difficulty)
	if err != nil {
		return nil, fmt.Errorf("query questions by difficulty: %w", err)
	}
	defer rows.Close()

	var questions []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

// GetByID fetches a single question. Returns (nil, nil) when it does not
// exist.
func (r *QuestionRepository) GetByID(ctx context.Context, questionID uuid.UUID) (*question.Question, error) {
	const query = `
		SELECT question_id, text, options, correct_answer, difficulty, topic
		FROM questions
		WHERE question_id = $1`

	row := r.pool.QueryRow(ctx, query, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// Insert stores a new question and returns the stored row.
func (r *QuestionRepository) Insert(ctx context.Context, q question.Question) (question.Question, error) {
	const query = `
		INSERT INTO questions (question_id, text, options, correct_answer, difficulty, topic)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING question_id, text, options, correct_answer, difficulty, topic`

	row := r.pool.QueryRow(ctx, query,
		q.ID, q.Text, q.Options, q.CorrectAnswer, q.Difficulty, q.Topic,
	)
	stored, err := scanQuestion(row)
	if err != nil {
		return question.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return stored, nil
}

// CountAll returns the size of the question bank.
func (r *QuestionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func scanQuestion(row pgx.Row) (question.Question, error) {
	var (
		q     question.Question
		topic *string
	)
	err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswer, &q.Difficulty, &topic)
	if err != nil {
		return question.Question{}, err
	}
	if topic != nil {
		q.Topic = *topic
	}
	return q, nil
}
