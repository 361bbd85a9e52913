package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/fanpulse/fanpulse/internal/application"
	"github.com/fanpulse/fanpulse/internal/persistence"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// Handlers serves the scoring read endpoints.
type Handlers struct {
	service *application.ScoringService
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(service *application.ScoringService) *Handlers {
	return &Handlers{service: service}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type historyResponse struct {
	Results    interface{} `json:"results"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// LatestFVS returns the most recent Fan Value Score for an artist.
func (h *Handlers) LatestFVS(w http.ResponseWriter, r *http.Request) {
	artistID := mux.Vars(r)["id"]

	result, err := h.service.LatestFVS(r.Context(), artistID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LatestMomentum returns the most recent Momentum Index for an artist.
func (h *Handlers) LatestMomentum(w http.ResponseWriter, r *http.Request) {
	artistID := mux.Vars(r)["id"]

	result, err := h.service.LatestMomentum(r.Context(), artistID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Breakout returns the breakout probability derived from the artist's latest
// momentum result.
func (h *Handlers) Breakout(w http.ResponseWriter, r *http.Request) {
	artistID := mux.Vars(r)["id"]

	prediction, err := h.service.PredictBreakout(r.Context(), artistID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// FVSHistory pages stored FVS results ascending by date. Query params: from,
// to (RFC 3339 dates), cursor (RFC 3339, exclusive), limit.
func (h *Handlers) FVSHistory(w http.ResponseWriter, r *http.Request) {
	artistID := mux.Vars(r)["id"]

	tr, cursor, limit, err := historyParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := h.service.FVSHistory(r.Context(), artistID, tr, cursor, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := historyResponse{Results: results}
	if len(results) == limit {
		resp.NextCursor = results[len(results)-1].AsOf.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MomentumHistory pages stored momentum results ascending by date.
func (h *Handlers) MomentumHistory(w http.ResponseWriter, r *http.Request) {
	artistID := mux.Vars(r)["id"]

	tr, cursor, limit, err := historyParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := h.service.MomentumHistory(r.Context(), artistID, tr, cursor, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := historyResponse{Results: results}
	if len(results) == limit {
		resp.NextCursor = results[len(results)-1].AsOf.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// errBadRequest wraps query parsing failures for status mapping.
var errBadRequest = errors.New("bad request")

// historyParams parses the shared history query parameters. An absent range
// defaults to the trailing year ending now.
func historyParams(r *http.Request) (persistence.TimeRange, time.Time, int, error) {
	q := r.URL.Query()

	now := time.Now().UTC()
	tr := persistence.TimeRange{From: now.AddDate(-1, 0, 0), To: now}
	var cursor time.Time
	limit := 100

	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return tr, cursor, limit, err
		}
		tr.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return tr, cursor, limit, err
		}
		tr.To = t
	}
	if v := q.Get("cursor"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return tr, cursor, limit, err
		}
		cursor = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return tr, cursor, limit, errors.Join(errBadRequest, errors.New("limit must be a positive integer"))
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}
	if !tr.To.After(tr.From) {
		return tr, cursor, limit, errors.Join(errBadRequest, errors.New("from must precede to"))
	}
	return tr, cursor, limit, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Join(errBadRequest, errors.New("invalid date: "+v))
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scoring.ErrInvalidWindow), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, scoring.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: requestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "endpoint not found"})
}
