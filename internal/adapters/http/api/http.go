// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/cognitrend/internal/app"
	"github.com/okian/cognitrend/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	Assess(ctx context.Context, elderID string) (*service.Assessment, error)
	AssessOn(ctx context.Context, elderID string, date time.Time) (*service.Assessment, error)
	EnqueueBatch(ctx context.Context, elderIDs []string, date time.Time) (service.BatchResult, error)
	AssessAll(ctx context.Context, date time.Time) (service.BatchResult, error)
	History(ctx context.Context, elderID string, limit int) ([]model.CognitiveScoreRecord, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	assessmentHandler *AssessmentHandler
	scoresHandler     *ScoresHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		assessmentHandler: NewAssessmentHandler(deps),
		scoresHandler:     NewScoresHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /assessments", MetricsMiddleware(s.assessmentHandler.HandleBatch, "assessments_batch"))
	mux.HandleFunc("POST /assessments/{elder_id}", MetricsMiddleware(s.assessmentHandler.HandleAssess, "assessments"))
	mux.HandleFunc("GET /scores/{elder_id}", MetricsMiddleware(s.scoresHandler.HandleHistory, "scores"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidElderID):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_data", WrapKind(op, ErrInsufficientData, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}

// parseDate reads an optional YYYY-MM-DD value. ok is false when raw is empty.
func parseDate(raw string) (date time.Time, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	date, err = time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, false, errors.New("invalid date; must be YYYY-MM-DD")
	}
	return date, true, nil
}
