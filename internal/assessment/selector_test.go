package assessment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exclude(ids ...uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestSelectPicksFromRequestedBand(t *testing.T) {
	bank := newStubBank()
	q := bank.add(5, "A")
	bank.add(6, "A")
	selector := NewSelector(bank)

	picked, err := selector.Select(context.Background(), 5, nil)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, q.ID, picked.ID)
}

func TestSelectPrefersHigherBandBeforeLower(t *testing.T) {
	bank := newStubBank()
	below := bank.add(4, "A")
	above := bank.add(6, "A")
	selector := NewSelector(bank)

	picked, err := selector.Select(context.Background(), 5, nil)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, above.ID, picked.ID)
	assert.NotEqual(t, below.ID, picked.ID)
}

func TestSelectProbeOrderWidensSymmetrically(t *testing.T) {
	bank := newStubBank()
	far := bank.add(3, "A")
	selector := NewSelector(bank)

	// Bands 5, 6, 4 and 7 are empty; +2/-2 probes reach band 3 last.
	picked, err := selector.Select(context.Background(), 5, nil)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, far.ID, picked.ID)
}

func TestSelectSkipsExcludedQuestions(t *testing.T) {
	bank := newStubBank()
	used := bank.add(5, "A")
	fresh := bank.add(5, "B")
	selector := NewSelector(bank)

	picked, err := selector.Select(context.Background(), 5, exclude(used.ID))
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, fresh.ID, picked.ID)
}

func TestSelectFallsThroughFullyExcludedBand(t *testing.T) {
	bank := newStubBank()
	used := bank.add(5, "A")
	next := bank.add(6, "A")
	selector := NewSelector(bank)

	picked, err := selector.Select(context.Background(), 5, exclude(used.ID))
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, next.ID, picked.ID)
}

func TestSelectReturnsNilWhenExhausted(t *testing.T) {
	bank := newStubBank()
	used := bank.add(5, "A")
	selector := NewSelector(bank)

	picked, err := selector.Select(context.Background(), 5, exclude(used.ID))
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestSelectSkipsOutOfRangeProbes(t *testing.T) {
	bank := newStubBank()
	q := bank.add(8, "A")
	selector := NewSelector(bank)

	// From band 10 the +1/+2 probes fall outside the scale and must be
	// skipped, not clamped onto band 10 again.
	picked, err := selector.Select(context.Background(), 10, nil)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, q.ID, picked.ID)
}

func TestSelectRejectsInvalidDifficulty(t *testing.T) {
	selector := NewSelector(newStubBank())

	_, err := selector.Select(context.Background(), 0, nil)
	assert.Error(t, err)

	_, err = selector.Select(context.Background(), 11, nil)
	assert.Error(t, err)
}
