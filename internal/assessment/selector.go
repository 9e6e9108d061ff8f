package assessment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/skillgauge/assessment-platform/internal/question"
)

// QuestionBank is the read-only collaborator the core selects and resolves
// questions through (implemented by question.Service).
type QuestionBank interface {
	FindByDifficulty(ctx context.Context, difficulty int) ([]question.Question, error)
	FindByID(ctx context.Context, id uuid.UUID) (*question.Question, error)
}

// probeOffsets is the fallback order relative to the requested difficulty.
// The order is observable behavior under bank exhaustion; do not reorder.
var probeOffsets = [...]int{0, +1, -1, +2, -2}

// Selector picks an unused question for a difficulty band, widening to
// nearby bands when the exact one is exhausted. It is stateless: a pure
// function of the bank contents and its inputs.
type Selector struct {
	bank QuestionBank
}

func NewSelector(bank QuestionBank) *Selector {
	return &Selector{bank: bank}
}

// Select draws uniformly at random from the unused questions at the given
// difficulty, probing nearby bands in fixed order when it is empty. A (nil,
// nil) return means the bank is exhausted around this difficulty; that is an
// expected outcome, not an error.
func (s *Selector) Select(ctx context.Context, difficulty int, excluded map[uuid.UUID]struct{}) (*question.Question, error) {
	if !question.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("difficulty %d outside supported range", difficulty)
	}

	for _, offset := range probeOffsets {
		band := difficulty + offset
		if !question.ValidDifficulty(band) {
			continue
		}

		candidates, err := s.bank.FindByDifficulty(ctx, band)
		if err != nil {
			return nil, fmt.Errorf("probe difficulty %d: %w", band, err)
		}

		eligible := candidates[:0:0]
		for _, q := range candidates {
			if _, used := excluded[q.ID]; !used {
				eligible = append(eligible, q)
			}
		}

		if len(eligible) > 0 {
			picked := eligible[rand.Intn(len(eligible))]
			return &picked, nil
		}
	}

	return nil, nil
}
