package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidQuestion rejects bank entries that fail validation.
var ErrInvalidQuestion = errors.New("invalid question")

// store is the persistence contract the bank sits on (implemented by
// repository.QuestionRepository).
type store interface {
	GetByDifficulty(ctx context.Context, difficulty int) ([]Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Question, error)
	Insert(ctx context.Context, q Question) (Question, error)
	CountAll(ctx context.Context) (int64, error)
}

// Service is the question bank: curated questions in Postgres fronted by a
// per-difficulty Redis cache. It only ever reads questions on the hot path;
// inserts exist for administrative seeding and invalidate the touched band.
type Service struct {
	store  store
	cache  BandCache
	logger zerolog.Logger
}

func NewService(store store, cache BandCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "question_bank").Logger(),
	}
}

// FindByDifficulty returns every question in the given band, cache first.
// Cache failures degrade to a direct store read.
func (s *Service) FindByDifficulty(ctx context.Context, difficulty int) ([]Question, error) {
	if !ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("difficulty %d outside supported range", difficulty)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, difficulty)
		if err != nil {
			s.logger.Warn().Err(err).Int("difficulty", difficulty).Msg("band cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	questions, err := s.store.GetByDifficulty(ctx, difficulty)
	if err != nil {
		return nil, fmt.Errorf("load difficulty band %d: %w", difficulty, err)
	}

	if s.cache != nil {
		if questions == nil {
			// Cache empty bands too, otherwise an exhausted band hits the DB
			// on every selector probe.
			questions = []Question{}
		}
		if err := s.cache.Set(ctx, difficulty, questions); err != nil {
			s.logger.Warn().Err(err).Int("difficulty", difficulty).Msg("band cache write failed")
		}
	}

	return questions, nil
}

// FindByID resolves one question; returns (nil, nil) when it does not exist.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*Question, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load question %s: %w", id, err)
	}
	return q, nil
}

// Add stores a new bank entry and drops the cached band it lands in.
func (s *Service) Add(ctx context.Context, q Question) (Question, error) {
	if !ValidDifficulty(q.Difficulty) {
		return Question{}, fmt.Errorf("%w: difficulty %d outside supported range", ErrInvalidQuestion, q.Difficulty)
	}
	if len(q.Options) < 2 {
		return Question{}, fmt.Errorf("%w: needs at least two options", ErrInvalidQuestion)
	}
	valid := false
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			valid = true
			break
		}
	}
	if !valid {
		return Question{}, fmt.Errorf("%w: correct answer must be one of the options", ErrInvalidQuestion)
	}

	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}

	inserted, err := s.store.Insert(ctx, q)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, inserted.Difficulty); err != nil {
			s.logger.Warn().Err(err).Int("difficulty", inserted.Difficulty).Msg("band cache invalidate failed")
		}
	}

	return inserted, nil
}

// Count reports the total bank size.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.CountAll(ctx)
}
