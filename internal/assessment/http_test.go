package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgauge/assessment-platform/internal/auth"
	"github.com/skillgauge/assessment-platform/internal/auth/jwt"
)

type httpFixture struct {
	repo     *memoryRunRepo
	bank     *stubBank
	handlers *HTTPHandlers
	mux      *http.ServeMux
}

func newHTTPFixture() *httpFixture {
	repo := newMemoryRunRepo()
	bank := newStubBank()
	engine := newTestEngine(repo.memoryRunStore, bank, nil)
	svc := NewService(repo, engine, zerolog.Nop())
	handlers := NewHTTPHandlers(svc, engine, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/runs/invites", handlers.CreateInvite)
	mux.HandleFunc("GET /v1/runs/code/{inviteCode}", handlers.LookupInvite)
	mux.HandleFunc("POST /v1/runs/claim", handlers.ClaimRun)
	mux.HandleFunc("POST /v1/runs/{runID}/start", handlers.Start)
	mux.HandleFunc("POST /v1/runs/{runID}/questions/{questionID}/answer", handlers.SubmitAnswer)
	mux.HandleFunc("GET /v1/runs/{runID}", handlers.GetRun)
	mux.HandleFunc("GET /v1/runs", handlers.ListRuns)

	return &httpFixture{repo: repo, bank: bank, handlers: handlers, mux: mux}
}

func learnerClaims(userID uuid.UUID) *jwt.Claims {
	return &jwt.Claims{UserID: userID, Role: auth.RoleLearner}
}

func adminClaims() *jwt.Claims {
	return &jwt.Claims{UserID: uuid.New(), Role: auth.RoleAdmin}
}

func (f *httpFixture) do(t *testing.T, claims *jwt.Claims, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(auth.ContextWithClaims(context.Background(), claims))
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestCreateInviteRequiresAdmin(t *testing.T) {
	f := newHTTPFixture()

	rec := f.do(t, learnerClaims(uuid.New()), http.MethodPost, "/v1/runs/invites", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, nil, http.MethodPost, "/v1/runs/invites", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, adminClaims(), http.MethodPost, "/v1/runs/invites", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["invite_code"])
}

func TestLookupInviteReportsClaimState(t *testing.T) {
	f := newHTTPFixture()
	owner := uuid.New()

	rec := f.do(t, nil, http.MethodGet, "/v1/runs/code/unclaimed-code", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["claimed"])

	claim := f.do(t, learnerClaims(owner), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "unclaimed-code"})
	require.Equal(t, http.StatusOK, claim.Code)

	rec = f.do(t, nil, http.MethodGet, "/v1/runs/code/unclaimed-code", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["claimed"])
}

func TestClaimConflictForSecondOwner(t *testing.T) {
	f := newHTTPFixture()

	rec := f.do(t, learnerClaims(uuid.New()), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "shared-code"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, learnerClaims(uuid.New()), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "shared-code"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartReturnsFirstQuestion(t *testing.T) {
	f := newHTTPFixture()
	f.bank.add(5, "A")
	owner := uuid.New()

	claim := f.do(t, learnerClaims(owner), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "code-1"})
	require.Equal(t, http.StatusOK, claim.Code)
	runID := decodeBody(t, claim)["run_id"].(string)

	rec := f.do(t, learnerClaims(owner), http.MethodPost, fmt.Sprintf("/v1/runs/%s/start", runID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	question := body["question"].(map[string]any)
	assert.Equal(t, float64(5), question["difficulty"])
	assert.NotContains(t, question, "correct_answer")
}

func TestStartRejectsNonOwner(t *testing.T) {
	f := newHTTPFixture()
	f.bank.add(5, "A")

	claim := f.do(t, learnerClaims(uuid.New()), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "code-2"})
	require.Equal(t, http.StatusOK, claim.Code)
	runID := decodeBody(t, claim)["run_id"].(string)

	rec := f.do(t, learnerClaims(uuid.New()), http.MethodPost, fmt.Sprintf("/v1/runs/%s/start", runID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitChainsNextQuestion(t *testing.T) {
	f := newHTTPFixture()
	q5 := f.bank.add(5, "Right")
	f.bank.add(6, "Right")
	owner := uuid.New()

	claim := f.do(t, learnerClaims(owner), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "code-3"})
	runID := decodeBody(t, claim)["run_id"].(string)

	rec := f.do(t, learnerClaims(owner), http.MethodPost,
		fmt.Sprintf("/v1/runs/%s/questions/%s/answer", runID, q5.ID),
		map[string]string{"selected_answer": "Right"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	result := body["result"].(map[string]any)
	assert.Equal(t, true, result["is_correct"])
	assert.Equal(t, float64(5), result["current_score"])

	next := body["next_question"].(map[string]any)
	assert.Equal(t, float64(6), next["difficulty"])
}

func TestSubmitOnCompletedRunReturnsBadRequest(t *testing.T) {
	f := newHTTPFixture()
	q1 := f.bank.add(1, "Right")
	owner := uuid.New()

	claim := f.do(t, learnerClaims(owner), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "code-4"})
	runID := decodeBody(t, claim)["run_id"].(string)

	parsed := uuid.MustParse(runID)
	run := f.repo.runs[parsed]
	run.CurrentDifficulty = 1
	f.repo.put(run)

	rec := f.do(t, learnerClaims(owner), http.MethodPost,
		fmt.Sprintf("/v1/runs/%s/questions/%s/answer", runID, q1.ID),
		map[string]string{"selected_answer": "Wrong"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody(t, rec)["result"].(map[string]any)
	assert.Equal(t, true, result["completed"])
	assert.Equal(t, string(ReasonFailedAtFloor), result["completed_reason"])

	rec = f.do(t, learnerClaims(owner), http.MethodPost,
		fmt.Sprintf("/v1/runs/%s/questions/%s/answer", runID, q1.ID),
		map[string]string{"selected_answer": "Right"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunAllowsAdmin(t *testing.T) {
	f := newHTTPFixture()
	owner := uuid.New()

	claim := f.do(t, learnerClaims(owner), http.MethodPost, "/v1/runs/claim",
		map[string]string{"invite_code": "code-5"})
	runID := decodeBody(t, claim)["run_id"].(string)

	rec := f.do(t, adminClaims(), http.MethodGet, "/v1/runs/"+runID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, adminClaims(), http.MethodGet, "/v1/runs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])
}

func TestGetRunUnknownID(t *testing.T) {
	f := newHTTPFixture()

	rec := f.do(t, adminClaims(), http.MethodGet, "/v1/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, adminClaims(), http.MethodGet, "/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
