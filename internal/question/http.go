package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/auth"
	httperrors "github.com/skillgauge/assessment-platform/pkg/http/errors"
)

// HTTPHandlers exposes the administrative surface of the question bank.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "question_handlers").Logger(),
	}
}

type createQuestionRequest struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Difficulty    int      `json:"difficulty"`
	Topic         string   `json:"topic"`
}

// Create handles POST /v1/questions. Admin only: adds a bank entry and drops
// the cached difficulty band it lands in.
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}

	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}

	inserted, err := h.svc.Add(r.Context(), Question{
		Text:          req.Text,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Difficulty:    req.Difficulty,
		Topic:         req.Topic,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidQuestion) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("question insert failed")
		httperrors.RespondInternalError(w, "Could not store question")
		return
	}

	respondJSON(w, http.StatusCreated, inserted)
}

// Stats handles GET /v1/questions/stats. Admin reporting on bank size.
func (h *HTTPHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}

	total, err := h.svc.Count(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("question count failed")
		httperrors.RespondInternalError(w, "Could not count questions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"total_questions": total})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
