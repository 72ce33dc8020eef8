package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/cognitrend/internal/app"
)

// AssessmentHandler runs and schedules assessments.
type AssessmentHandler struct {
	deps Dependencies
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(deps Dependencies) *AssessmentHandler {
	return &AssessmentHandler{deps: deps}
}

// HandleAssess handles POST /assessments/{elder_id}?date=YYYY-MM-DD.
func (h *AssessmentHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	const op = "api.assess"
	elderID := strings.TrimSpace(r.PathValue("elder_id"))
	if elderID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, service.ErrInvalidElderID))
		return
	}
	date, ok, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var res *service.Assessment
	if ok {
		res, err = h.deps.AssessOn(r.Context(), elderID, date)
	} else {
		res, err = h.deps.Assess(r.Context(), elderID)
	}
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// batchRequest is the body of POST /assessments.
type batchRequest struct {
	ElderIDs []string `json:"elder_ids"`
	Date     string   `json:"date"`
	All      bool     `json:"all"`
}

func (b batchRequest) validate() error {
	if b.All && len(b.ElderIDs) > 0 {
		return errors.New("all and elder_ids are mutually exclusive")
	}
	if !b.All && len(b.ElderIDs) == 0 {
		return errors.New("missing elder_ids")
	}
	for _, id := range b.ElderIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("empty elder id")
		}
	}
	return nil
}

type batchResponse struct {
	Status string `json:"status"`
	service.BatchResult
}

// HandleBatch handles POST /assessments.
func (h *AssessmentHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.assess_batch"
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	date, ok, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if !ok {
		date = time.Now()
	}

	var res service.BatchResult
	if req.All {
		res, err = h.deps.AssessAll(r.Context(), date)
	} else {
		res, err = h.deps.EnqueueBatch(r.Context(), req.ElderIDs, date)
	}
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, batchResponse{Status: "accepted", BatchResult: res})
}
