package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feitianbubu/animago"
	"github.com/feitianbubu/animago/internal/metrics"
)

// MaxRequestBodyBytes bounds the JSON request body
const MaxRequestBodyBytes = 1 << 20

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
	UptimeS   int64    `json:"uptimeS"`
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector("", cfg.Logger)
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(CORSMiddleware())

	r.MethodNotAllowed(methodNotAllowedHandler)
	r.NotFound(notFoundHandler)

	r.Get("/healthz", healthHandler(cfg))
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Use(TimeoutMiddleware(cfg.RequestTimeout))

		generate := generateHandler(cfg)
		r.Post("/", generate)
		r.Post("/generate-video", generate)
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Providers: cfg.Providers,
			UptimeS:   int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	logger := cfg.Logger.With(zap.String("component", "api"))

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.With(zap.String("request_id", RequestIDFromContext(ctx)))

		var req animago.GenerationRequest
		body := http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			rejected := &animago.Rejected{Reason: animago.RejectMalformedBody, Detail: err.Error()}
			log.Info("malformed request body", zap.Error(err))
			cfg.Metrics.ObserveOutcome(rejected.Kind())
			status, resp := animago.Report(rejected)
			writeReport(w, status, resp)
			return
		}

		outcome, err := cfg.Generator.Generate(ctx, req)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				log.Info("client went away before generation finished", zap.Error(err))
				cfg.Metrics.ObserveOutcome("abandoned")
				return
			}
			log.Error("generation failed", zap.Error(err))
			cfg.Metrics.ObserveOutcome("error")
			status, resp := animago.ReportError(err)
			writeReport(w, status, resp)
			return
		}

		cfg.Metrics.ObserveOutcome(outcome.Kind())
		status, resp := animago.Report(outcome)
		writeReport(w, status, resp)
	}
}

func writeReport(w http.ResponseWriter, status int, resp animago.Response) {
	if resp.RetryAfter != nil {
		w.Header().Set("Retry-After", strconv.Itoa(*resp.RetryAfter))
	}
	WriteJSON(w, status, resp)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", corsAllowMethods)
	WriteJSON(w, http.StatusMethodNotAllowed, animago.Response{Error: "method not allowed"})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, animago.Response{Error: "not found"})
}
