package api

import (
	"context"
	"net/http"

	"github.com/okian/flip7/internal/domain/scoring"
)

// ScoreDependencies defines the interface for synchronous scoring.
type ScoreDependencies interface {
	Calculate(ctx context.Context, mode scoring.Mode, hand scoring.Hand) (scoring.Result, error)
	Modes() []scoring.Rules
}

// ScoreHandler handles score and mode requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

type scoreResponse struct {
	Mode scoring.Mode `json:"mode"`
	scoring.Result
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req handRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	mode, hand, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Calculate(r.Context(), mode, hand)
	if err != nil {
		if isHandError(err) {
			writeError(w, http.StatusBadRequest, "invalid_hand", WrapKind(op, ErrInvalidHand, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Mode: mode, Result: res})
}

// HandleGetModes handles GET /modes requests.
func (h *ScoreHandler) HandleGetModes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Modes())
}
