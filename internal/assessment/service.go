package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInviteClaimed signals that an invite code is already bound to a
// different learner.
var ErrInviteClaimed = errors.New("invite code already claimed")

// RunRepository is the full persistence contract for runs: the core
// Load/Save pair plus the provisioning and reporting queries the HTTP layer
// needs (implemented by repository.RunRepository).
type RunRepository interface {
	RunStore
	Create(ctx context.Context, run Run) (*Run, error)
	FindByInviteCode(ctx context.Context, code string) (*Run, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Run, error)
	ListAll(ctx context.Context) ([]Run, error)
}

// Service handles run provisioning and queries around the engine: invite
// codes, idempotent claim-on-first-use, and listings.
type Service struct {
	runs   RunRepository
	engine *Engine
	logger zerolog.Logger
}

func NewService(runs RunRepository, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{
		runs:   runs,
		engine: engine,
		logger: logger.With().Str("component", "assessment_service").Logger(),
	}
}

// GenerateInviteCode mints an opaque code an admin can hand out. The run
// itself is created lazily when a learner claims the code.
func (s *Service) GenerateInviteCode() string {
	return uuid.NewString()
}

// ClaimRun binds an invite code to a learner, creating the run on first use.
// Claiming the same code again with the same owner returns the existing run
// unchanged; a different owner is rejected.
func (s *Service) ClaimRun(ctx context.Context, ownerID uuid.UUID, inviteCode string) (*Run, error) {
	existing, err := s.runs.FindByInviteCode(ctx, inviteCode)
	if err == nil {
		if existing.OwnerID != ownerID {
			return nil, ErrInviteClaimed
		}
		return existing, nil
	}
	if !errors.Is(err, ErrRunNotFound) {
		return nil, fmt.Errorf("lookup invite code: %w", err)
	}

	run := s.engine.NewRun(ownerID, inviteCode)
	created, err := s.runs.Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info().
		Str("run_id", created.ID.String()).
		Str("owner_id", ownerID.String()).
		Msg("run created from invite code")

	return created, nil
}

// GetRun fetches a run by ID.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	return s.runs.Load(ctx, runID)
}

// FindByInviteCode fetches a run by its invite code.
func (s *Service) FindByInviteCode(ctx context.Context, code string) (*Run, error) {
	return s.runs.FindByInviteCode(ctx, code)
}

// ListByOwner returns all runs belonging to one learner, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Run, error) {
	return s.runs.ListByOwner(ctx, ownerID)
}

// ListAll returns every run (admin reporting).
func (s *Service) ListAll(ctx context.Context) ([]Run, error) {
	return s.runs.ListAll(ctx)
}
