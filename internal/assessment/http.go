package assessment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/auth"
	"github.com/skillgauge/assessment-platform/internal/auth/jwt"
	httperrors "github.com/skillgauge/assessment-platform/pkg/http/errors"
)

// HTTPHandlers exposes the assessment run endpoints.
type HTTPHandlers struct {
	svc    *Service
	engine *Engine
	logger zerolog.Logger
}

func NewHTTPHandlers(svc *Service, engine *Engine, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		engine: engine,
		logger: logger.With().Str("component", "run_handlers").Logger(),
	}
}

// CreateInvite handles POST /v1/runs/invites. Admin only: mints an invite
// code a learner can later claim into a run.
func (h *HTTPHandlers) CreateInvite(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}

	code := h.svc.GenerateInviteCode()

	respondJSON(w, http.StatusCreated, map[string]any{
		"invite_code": code,
		"invite_path": "/v1/runs/claim",
	})
}

// LookupInvite handles GET /v1/runs/code/{inviteCode}. It reports whether an
// invite has been claimed without exposing run contents.
func (h *HTTPHandlers) LookupInvite(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("inviteCode")
	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invite code is required")
		return
	}

	run, err := h.svc.FindByInviteCode(r.Context(), code)
	if errors.Is(err, ErrRunNotFound) {
		respondJSON(w, http.StatusOK, map[string]any{"invite_code": code, "claimed": false})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("invite lookup failed")
		httperrors.RespondInternalError(w, "Could not look up invite code")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"invite_code": code,
		"claimed":     true,
		"status":      run.Status,
	})
}

type claimRequest struct {
	InviteCode string `json:"invite_code"`
}

// ClaimRun handles POST /v1/runs/claim. First claim creates the run; a
// repeat claim by the same learner returns the existing run.
func (h *HTTPHandlers) ClaimRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.RequireClaims(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteCode == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invite code is required")
		return
	}

	run, err := h.svc.ClaimRun(r.Context(), claims.UserID, req.InviteCode)
	if err != nil {
		if errors.Is(err, ErrInviteClaimed) {
			httperrors.RespondConflict(w, httperrors.ErrCodeConflict, "Invite code already claimed by another learner")
			return
		}
		h.logger.Error().Err(err).Msg("claim failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeRunCreationFailed, "Could not claim invite code")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// Start handles POST /v1/runs/{runID}/start. It returns the first (or next
// pending) question for the learner's run.
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.RequireClaims(w, r)
	if !ok {
		return
	}

	runID, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, ok := h.loadOwnedRun(w, r, runID, claims)
	if !ok {
		return
	}

	next, err := h.engine.RequestNextQuestion(r.Context(), runID)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	if next == nil {
		// Degraded completion: the bank had nothing left near this band.
		completed, err := h.svc.GetRun(r.Context(), runID)
		if err != nil {
			httperrors.RespondInternalError(w, "Could not load run")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"completed":        true,
			"completed_reason": completed.CompletedReason,
			"score":            completed.Score,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"run_id":             run.ID,
		"current_difficulty": run.CurrentDifficulty,
		"question":           next,
	})
}

type submitRequest struct {
	SelectedAnswer string `json:"selected_answer"`
}

// SubmitAnswer handles POST /v1/runs/{runID}/questions/{questionID}/answer.
// On a non-terminal submission the response chains the next question so the
// client needs a single round trip per step.
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.RequireClaims(w, r)
	if !ok {
		return
	}

	runID, ok := parseRunID(w, r)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(r.PathValue("questionID"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid question ID")
		return
	}

	if _, ok := h.loadOwnedRun(w, r, runID, claims); !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	result, err := h.engine.SubmitAnswer(r.Context(), runID, questionID, req.SelectedAnswer)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	payload := map[string]any{"result": result}
	if !result.Completed {
		next, err := h.engine.RequestNextQuestion(r.Context(), runID)
		if err != nil && !errors.Is(err, ErrAlreadyCompleted) {
			h.respondEngineError(w, err)
			return
		}
		if next != nil {
			payload["next_question"] = next
		}
	}

	respondJSON(w, http.StatusOK, payload)
}

// GetRun handles GET /v1/runs/{runID}. Owners see their own run, admins see
// any.
func (h *HTTPHandlers) GetRun(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.RequireClaims(w, r)
	if !ok {
		return
	}

	runID, ok := parseRunID(w, r)
	if !ok {
		return
	}

	run, ok := h.loadOwnedRun(w, r, runID, claims)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /v1/runs. Admin reporting across all learners.
func (h *HTTPHandlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}

	runs, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list runs failed")
		httperrors.RespondInternalError(w, "Could not list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": len(runs)})
}

// ListMyRuns handles GET /v1/users/me/runs.
func (h *HTTPHandlers) ListMyRuns(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.RequireClaims(w, r)
	if !ok {
		return
	}

	runs, err := h.svc.ListByOwner(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list owner runs failed")
		httperrors.RespondInternalError(w, "Could not list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": len(runs)})
}

// loadOwnedRun fetches a run and enforces ownership. Admins may access any
// run.
func (h *HTTPHandlers) loadOwnedRun(w http.ResponseWriter, r *http.Request, runID uuid.UUID, claims *jwt.Claims) (*Run, bool) {
	run, err := h.svc.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeRunNotFound, "Run not found")
		} else {
			h.logger.Error().Err(err).Msg("load run failed")
			httperrors.RespondInternalError(w, "Could not load run")
		}
		return nil, false
	}

	if run.OwnerID != claims.UserID && !claims.IsAdmin() {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "You do not have access to this run")
		return nil, false
	}

	return run, true
}

func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("runID"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRunID, "Invalid run ID")
		return uuid.Nil, false
	}
	return runID, true
}

func (h *HTTPHandlers) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeRunNotFound, "Run not found")
	case errors.Is(err, ErrAlreadyCompleted):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeRunCompleted, "Run is already completed")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.Is(err, ErrVersionConflict):
		httperrors.RespondConflict(w, httperrors.ErrCodeConflict, "Run was modified concurrently, retry")
	default:
		h.logger.Error().Err(err).Msg("run operation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Operation failed")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
