// Package httpapi exposes the recommendation entry point alongside health,
// readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/pipeline"
)

// Recommender runs one recommendation pipeline invocation.
type Recommender interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the API and ops HTTP endpoints.
type Server struct {
	httpServer  *http.Server
	recommender Recommender
	logger      *slog.Logger
}

// NewServer creates an HTTP server with the recommendation endpoint plus
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, recommender Recommender, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		recommender: recommender,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/recommendations", s.handleRecommend)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// recommendRequest is the wire form of the pipeline entry point.
type recommendRequest struct {
	Latitude      *float64          `json:"latitude,omitempty"`
	Longitude     *float64          `json:"longitude,omitempty"`
	Grid          *domain.GridCell  `json:"grid,omitempty"`
	Selections    map[string]string `json:"selections,omitempty"`
	ExcludeTitles []string          `json:"exclude_titles,omitempty"`
}

type recommendResponse struct {
	RunID   string                   `json:"run_id"`
	Weather domain.NormalizedWeather `json:"weather"`
	Movies  []domain.ResolvedMovie   `json:"movies"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Kind:    string(domain.KindInvalidInput),
			Message: "invalid request body: " + err.Error(),
		}})
		return
	}

	req := pipeline.Request{
		Grid:          body.Grid,
		Selections:    body.Selections,
		ExcludeTitles: body.ExcludeTitles,
	}
	if body.Grid == nil && body.Latitude != nil && body.Longitude != nil {
		req.Position = &domain.Position{Latitude: *body.Latitude, Longitude: *body.Longitude}
	}

	result, err := s.recommender.Run(r.Context(), req)
	if err != nil {
		s.writeStageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendResponse{
		RunID:   result.RunID,
		Weather: result.Weather,
		Movies:  result.Movies,
	})
}

// writeStageError maps a pipeline failure to an HTTP status, surfacing the
// originating stage and kind verbatim.
func (s *Server) writeStageError(w http.ResponseWriter, err error) {
	var se *domain.StageError
	if !errors.As(err, &se) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Kind:    "internal",
			Message: err.Error(),
		}})
		return
	}

	status := http.StatusBadGateway
	if se.Kind == domain.KindInvalidInput {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Stage:   se.Stage,
		Kind:    string(se.Kind),
		Message: se.Error(),
	}})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
