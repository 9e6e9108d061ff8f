package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/assessment"
	"github.com/skillgauge/assessment-platform/internal/auth"
	"github.com/skillgauge/assessment-platform/internal/config"
	"github.com/skillgauge/assessment-platform/internal/question"
	ws "github.com/skillgauge/assessment-platform/pkg/http/ws"
)

// WSUpgrader upgrades monitor connections. CheckOrigin is permissive; the
// deployment fronts this with a gateway that enforces origins.
var WSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dependencies carries everything the HTTP server routes to.
type Dependencies struct {
	Pool            *pgxpool.Pool
	Redis           *redis.Client
	AuthHandler     *auth.HTTPHandlers
	RunHandler      *assessment.HTTPHandlers
	QuestionHandler *question.HTTPHandlers
	AuthService     *auth.Service
	Hub             *ws.Hub
}

// NewHTTPServer builds the route table and returns a configured server.
func NewHTTPServer(cfg config.App, deps Dependencies, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/ping", pingDependencies(deps.Pool, deps.Redis))

	// Auth
	mux.HandleFunc("POST /v1/auth/register", deps.AuthHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", deps.AuthHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", deps.AuthHandler.Refresh)
	mux.HandleFunc("GET /v1/auth/google", deps.AuthHandler.OAuthStart)
	mux.HandleFunc("GET /v1/auth/google/callback", deps.AuthHandler.OAuthCallback)
	mux.HandleFunc("GET /v1/users/me", deps.AuthHandler.GetMe)

	// Assessment runs
	mux.HandleFunc("POST /v1/runs/invites", deps.RunHandler.CreateInvite)
	mux.HandleFunc("GET /v1/runs/code/{inviteCode}", deps.RunHandler.LookupInvite)
	mux.HandleFunc("POST /v1/runs/claim", deps.RunHandler.ClaimRun)
	mux.HandleFunc("POST /v1/runs/{runID}/start", deps.RunHandler.Start)
	mux.HandleFunc("POST /v1/runs/{runID}/questions/{questionID}/answer", deps.RunHandler.SubmitAnswer)
	mux.HandleFunc("GET /v1/runs/{runID}", deps.RunHandler.GetRun)
	mux.HandleFunc("GET /v1/runs", deps.RunHandler.ListRuns)
	mux.HandleFunc("GET /v1/users/me/runs", deps.RunHandler.ListMyRuns)

	// Question bank administration
	mux.HandleFunc("POST /v1/questions", deps.QuestionHandler.Create)
	mux.HandleFunc("GET /v1/questions/stats", deps.QuestionHandler.Stats)

	// Live monitor
	mux.HandleFunc("GET /ws/runs", monitorHandler(deps.Hub, logger))

	handler := auth.Middleware(deps.AuthService, logger)(mux)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// monitorHandler upgrades admin connections for live run monitoring. An
// optional run_id query parameter narrows the feed to a single run.
func monitorHandler(hub *ws.Hub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}

		runID := uuid.Nil
		if raw := r.URL.Query().Get("run_id"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid run_id", http.StatusBadRequest)
				return
			}
			runID = parsed
		}

		conn, err := WSUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := ws.NewConnection(conn, logger)
		hub.Register(client, runID)

		go client.WritePump()
		go func() {
			client.ReadPump()
			hub.Unregister(client)
		}()
	}
}

func pingDependencies(pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"postgres": "ok", "redis": "ok"}
		code := http.StatusOK

		if err := pool.Ping(ctx); err != nil {
			status["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}
