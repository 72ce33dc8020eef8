package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/cognitrend/internal/domain/model"
)

const maxHistoryLimit = 365

// ScoresHandler serves stored score history.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type historyResponse struct {
	ElderID string                       `json:"elder_id"`
	Scores  []model.CognitiveScoreRecord `json:"scores"`
}

// HandleHistory handles GET /scores/{elder_id}?limit=N.
func (h *ScoresHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_history"
	elderID := strings.TrimSpace(r.PathValue("elder_id"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, errors.New("limit must be between 1 and 365")))
			return
		}
		limit = n
	}

	recs, err := h.deps.History(r.Context(), elderID, limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if recs == nil {
		recs = []model.CognitiveScoreRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{ElderID: elderID, Scores: recs})
}
