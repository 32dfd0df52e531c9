// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/flip7/internal/domain/scoring"
)

const (
	defaultMaxListLimit = 100
	defaultListLimit    = 20
	maxBodyBytes        = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	SubmissionDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoreHandler       *ScoreHandler
	submissionsHandler *SubmissionsHandler
}

// ServerOption configures NewServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxListLimit int
}

// WithMaxListLimit caps GET /submissions?limit.
func WithMaxListLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxListLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxListLimit: defaultMaxListLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoreHandler:       NewScoreHandler(deps),
		submissionsHandler: NewSubmissionsHandler(deps, cfg.maxListLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/modes", MetricsMiddleware(s.scoreHandler.HandleGetModes, "modes"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/submissions", MetricsMiddleware(s.submissionsHandler.HandleSubmissions, "submissions"))
	mux.HandleFunc("/submissions/", MetricsMiddleware(s.submissionsHandler.HandleGetSubmission, "submission"))
}

// handRequest mirrors the hand fields shared by POST /score and POST /submissions.
type handRequest struct {
	Mode      string `json:"mode"`
	Numbers   []int  `json:"numbers"`
	Modifiers []int  `json:"modifiers"`
	Doubled   bool   `json:"doubled"`
	Halved    bool   `json:"halved"`
}

func (h handRequest) parse() (scoring.Mode, scoring.Hand, error) {
	if h.Mode == "" {
		return 0, scoring.Hand{}, errors.New("missing mode")
	}
	mode, err := scoring.ParseMode(h.Mode)
	if err != nil {
		return 0, scoring.Hand{}, err
	}
	return mode, scoring.Hand{
		Numbers:   h.Numbers,
		Modifiers: h.Modifiers,
		Doubled:   h.Doubled,
		Halved:    h.Halved,
	}, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
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

// isHandError reports whether err comes from deck or mode validation.
func isHandError(err error) bool {
	for _, kind := range []error{
		scoring.ErrUnknownMode,
		scoring.ErrCardNotInDeck,
		scoring.ErrTooManyCopies,
		scoring.ErrModifierNotInDeck,
		scoring.ErrDuplicateModifiers,
		scoring.ErrToggleUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
