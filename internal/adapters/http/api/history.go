package api

import (
	"net/http"
	"strconv"

	"github.com/molehit/molehit/internal/domain/session"
)

const defaultHistoryLimit = 20

// handleHistory handles GET /history?limit=N&offset=M requests.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > s.maxHistoryLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		offset = n
	}

	recs, err := s.deps.History(r.Context(), userIDFrom(r), limit, offset)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if recs == nil {
		recs = []session.CompletedSession{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleBestScore handles GET /history/best?levelId=N requests. Without
// a levelId the best score across all levels is returned.
func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.history_best"
	levelID := 0
	if raw := r.URL.Query().Get("levelId"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		levelID = n
	}
	rec, err := s.deps.BestScore(r.Context(), userIDFrom(r), levelID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
