package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gamestake/models"
	"gamestake/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	board, err := s.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	view, err := s.service.PlayerStats(r.Context(), address)
	switch {
	case errors.Is(err, service.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*models.PlayerView
		Status models.IngestionStatus `json:"status"`
	}{view, s.service.Status(r.Context())})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	recent, err := s.service.RecentMatches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

// handleHealth answers 503 once ingestion is stale so load balancers notice
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.Status(r.Context())
	code := http.StatusOK
	if status.State == models.IngestionStateStale {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// parseLimit reads ?limit=. Missing means the service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		log.WithError(err).Error("Query failed")
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
