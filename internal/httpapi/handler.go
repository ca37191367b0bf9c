// Package httpapi exposes the quiz service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hackohio/quizd/internal/quiz"
	"hackohio/quizd/pkg/worker"
)

// MaxRequestBodySize limits request bodies to 1 MiB.
const MaxRequestBodySize = 1 << 20

// MetricsSource reports worker channel counters.
type MetricsSource interface {
	Metrics() worker.Metrics
}

type Handler struct {
	service *quiz.Service
	metrics MetricsSource
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler. metrics may be nil.
func NewHandler(service *quiz.Service, metrics MetricsSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, metrics: metrics, logger: logger}
}

// Routes returns the full handler chain: CORS, request logging and the mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate-quiz", h.limitBody(h.GenerateQuiz))
	mux.HandleFunc("POST /generate-feedback", h.limitBody(h.GenerateFeedback))
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /stats", h.Stats)
	return cors(logRequests(h.logger, mux))
}

func (h *Handler) limitBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next(w, r)
	}
}

type quizRequest struct {
	Topic string `json:"topic"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// POST /generate-quiz
func (h *Handler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.GenerateQuiz(r.Context(), req.Topic)
	if err != nil {
		h.logger.Error("generate-quiz failed",
			slog.Int("attempts", res.Attempts),
			slog.Any("error", err),
		)
		h.writeError(w, statusFor(err), "Failed to generate quiz", worker.Summary(err))
		return
	}
	h.writeRaw(w, http.StatusOK, res.Raw)
}

// POST /generate-feedback
func (h *Handler) GenerateFeedback(w http.ResponseWriter, r *http.Request) {
	var req quiz.FeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.GenerateFeedback(r.Context(), req)
	if err != nil {
		h.logger.Error("generate-feedback failed",
			slog.Int("attempts", res.Attempts),
			slog.Any("error", err),
		)
		var valErr *worker.ValidationError
		if errors.As(err, &valErr) {
			h.writeError(w, statusFor(err), "Invalid feedback from AI", "")
			return
		}
		h.writeError(w, statusFor(err), "Failed to generate feedback", worker.Summary(err))
		return
	}
	h.writeRaw(w, http.StatusOK, res.Raw)
}

// GET /health does not depend on the worker.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		h.writeJSON(w, http.StatusOK, worker.Metrics{})
		return
	}
	h.writeJSON(w, http.StatusOK, h.metrics.Metrics())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return false
	}
	return true
}

// statusFor maps invocation failures onto HTTP statuses.
func statusFor(err error) int {
	var (
		exitErr *worker.ProcessExitError
		decErr  *worker.DecodeError
		valErr  *worker.ValidationError
	)
	switch {
	case errors.Is(err, worker.ErrNoExecutableFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &exitErr), errors.As(err, &decErr), errors.As(err, &valErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeRaw sends a worker document unchanged.
func (h *Handler) writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(raw); err != nil {
		h.logger.Error("failed to write response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
