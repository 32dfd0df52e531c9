package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/flip7/internal/adapters/repository"
	"github.com/okian/flip7/internal/domain/dedupe"
	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/internal/domain/scoring"
)

// SubmissionDependencies defines the interface for asynchronous scoring and
// the submission ledger.
type SubmissionDependencies interface {
	dedupe.Deduper

	// CheckHand rejects hands the server refuses to queue.
	CheckHand(mode scoring.Mode, hand scoring.Hand) error

	// Enqueue pushes a submission for async scoring. Returns false on backpressure.
	Enqueue(ctx context.Context, s model.Submission) bool

	Submission(ctx context.Context, id string) (model.ScoredSubmission, error)
	Submissions(ctx context.Context, playerID string, limit int) ([]model.ScoredSubmission, error)
}

// SubmissionsHandler handles submission requests.
type SubmissionsHandler struct {
	deps     SubmissionDependencies
	maxLimit int
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies, maxLimit int) *SubmissionsHandler {
	if maxLimit < 1 {
		maxLimit = defaultMaxListLimit
	}
	return &SubmissionsHandler{deps: deps, maxLimit: maxLimit}
}

// submissionRequest mirrors the OpenAPI schema for POST /submissions.
type submissionRequest struct {
	SubmissionID string `json:"submission_id"`
	PlayerID     string `json:"player_id"`
	TS           string `json:"ts,omitempty"`
	handRequest
}

func (s submissionRequest) toModel() (model.Submission, error) {
	switch {
	case strings.TrimSpace(s.SubmissionID) == "":
		return model.Submission{}, errors.New("missing submission_id")
	case strings.TrimSpace(s.PlayerID) == "":
		return model.Submission{}, errors.New("missing player_id")
	}
	mode, hand, err := s.parse()
	if err != nil {
		return model.Submission{}, err
	}
	sub := model.Submission{
		ID:       s.SubmissionID,
		PlayerID: s.PlayerID,
		Mode:     mode,
		Hand:     hand,
	}
	if s.TS != "" {
		ts, err := time.Parse(time.RFC3339, s.TS)
		if err != nil {
			return model.Submission{}, errors.New("invalid ts; must be RFC3339")
		}
		sub.SubmittedAt = ts.UTC()
	}
	return sub, nil
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

type handResponse struct {
	Numbers   []int `json:"numbers"`
	Modifiers []int `json:"modifiers"`
	Doubled   bool  `json:"doubled"`
	Halved    bool  `json:"halved"`
}

type submissionResponse struct {
	SubmissionID string         `json:"submission_id"`
	PlayerID     string         `json:"player_id"`
	Mode         scoring.Mode   `json:"mode"`
	Hand         handResponse   `json:"hand"`
	Result       scoring.Result `json:"result"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	ScoredAt     time.Time      `json:"scored_at"`
}

func toResponse(s model.ScoredSubmission) submissionResponse { //nolint:gocritic // hugeParam: read-only copy
	return submissionResponse{
		SubmissionID: s.ID,
		PlayerID:     s.PlayerID,
		Mode:         s.Mode,
		Hand: handResponse{
			Numbers:   nonNil(s.Hand.Numbers),
			Modifiers: nonNil(s.Hand.Modifiers),
			Doubled:   s.Hand.Doubled,
			Halved:    s.Hand.Halved,
		},
		Result:      s.Result,
		SubmittedAt: s.SubmittedAt,
		ScoredAt:    s.ScoredAt,
	}
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

// HandleSubmissions dispatches POST and GET /submissions.
func (h *SubmissionsHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandlePostSubmission(w, r)
	case http.MethodGet:
		h.HandleListSubmissions(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandlePostSubmission handles POST /submissions requests.
func (h *SubmissionsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submission"
	var req submissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sub, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.CheckHand(sub.Mode, sub.Hand); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_hand", WrapKind(op, ErrInvalidHand, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), sub.ID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: sub.ID, Duplicate: true})
		return
	}
	if ok := h.deps.Enqueue(r.Context(), sub); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), sub.ID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: sub.ID})
}

// HandleListSubmissions handles GET /submissions?player=ID&limit=N requests.
func (h *SubmissionsHandler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_submissions"
	q := r.URL.Query()
	player := strings.TrimSpace(q.Get("player"))
	if player == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing player")))
		return
	}
	n := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	subs, err := h.deps.Submissions(r.Context(), player, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]submissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetSubmission handles GET /submissions/{id} requests.
func (h *SubmissionsHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submission"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/submissions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	sub, err := h.deps.Submission(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sub))
}
