package assessment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRunRepo struct {
	*memoryRunStore
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{memoryRunStore: newMemoryRunStore()}
}

func (r *memoryRunRepo) Create(_ context.Context, run Run) (*Run, error) {
	run.Version = 1
	r.runs[run.ID] = run
	return &run, nil
}

func (r *memoryRunRepo) FindByInviteCode(_ context.Context, code string) (*Run, error) {
	for _, run := range r.runs {
		if run.InviteCode == code {
			run := run
			return &run, nil
		}
	}
	return nil, ErrRunNotFound
}

func (r *memoryRunRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Run, error) {
	var out []Run
	for _, run := range r.runs {
		if run.OwnerID == ownerID {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *memoryRunRepo) ListAll(_ context.Context) ([]Run, error) {
	out := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, nil
}

func newTestService(repo *memoryRunRepo, bank *stubBank) *Service {
	engine := newTestEngine(repo.memoryRunStore, bank, nil)
	return NewService(repo, engine, zerolog.Nop())
}

func TestClaimRunCreatesOnFirstUse(t *testing.T) {
	repo := newMemoryRunRepo()
	svc := newTestService(repo, newStubBank())
	owner := uuid.New()
	code := svc.GenerateInviteCode()

	run, err := svc.ClaimRun(context.Background(), owner, code)
	require.NoError(t, err)

	assert.Equal(t, owner, run.OwnerID)
	assert.Equal(t, code, run.InviteCode)
	assert.Equal(t, 5, run.CurrentDifficulty)
	assert.Equal(t, StatusInProgress, run.Status)
	assert.Empty(t, run.Attempts)
	assert.Equal(t, int64(1), run.Version)
}

func TestClaimRunIsIdempotentForSameOwner(t *testing.T) {
	repo := newMemoryRunRepo()
	svc := newTestService(repo, newStubBank())
	owner := uuid.New()
	code := svc.GenerateInviteCode()

	first, err := svc.ClaimRun(context.Background(), owner, code)
	require.NoError(t, err)
	second, err := svc.ClaimRun(context.Background(), owner, code)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.runs, 1)
}

func TestClaimRunRejectsDifferentOwner(t *testing.T) {
	repo := newMemoryRunRepo()
	svc := newTestService(repo, newStubBank())
	code := svc.GenerateInviteCode()

	_, err := svc.ClaimRun(context.Background(), uuid.New(), code)
	require.NoError(t, err)

	_, err = svc.ClaimRun(context.Background(), uuid.New(), code)
	assert.ErrorIs(t, err, ErrInviteClaimed)
}

func TestListByOwnerFiltersRuns(t *testing.T) {
	repo := newMemoryRunRepo()
	svc := newTestService(repo, newStubBank())
	owner := uuid.New()

	_, err := svc.ClaimRun(context.Background(), owner, svc.GenerateInviteCode())
	require.NoError(t, err)
	_, err = svc.ClaimRun(context.Background(), uuid.New(), svc.GenerateInviteCode())
	require.NoError(t, err)

	mine, err := svc.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
