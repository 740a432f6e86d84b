package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// createSessionRequest mirrors the body of POST /sessions.
type createSessionRequest struct {
	LevelID int `json:"levelId"`
}

// keyRequest mirrors the body of POST /sessions/{id}/keys.
type keyRequest struct {
	Key string `json:"key"`
}

// hitResponse reports the outcome of one keystroke.
type hitResponse struct {
	Hit        bool   `json:"hit"`
	TargetID   string `json:"targetId,omitempty"`
	Points     int    `json:"points,omitempty"`
	Combo      int    `json:"combo,omitempty"`
	ReactionMs int64  `json:"reactionMs,omitempty"`
}

// handleCreateSession handles POST /sessions requests.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := s.deps.StartSession(r.Context(), req.LevelID, userIDFrom(r))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleGetSession handles GET /sessions/{id} requests.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	view, err := s.deps.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleActiveSession handles GET /sessions/active requests, resuming
// the caller's live session if one exists.
func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.active_session"
	view, err := s.deps.ActiveSession(r.Context(), userIDFrom(r))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePauseSession handles POST /sessions/{id}/pause requests.
func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.pause_session"
	view, err := s.deps.PauseSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleResumeSession handles POST /sessions/{id}/resume requests.
func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.resume_session"
	view, err := s.deps.ResumeSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleEndSession handles POST /sessions/{id}/end requests. On success
// the response carries the reconciled completed-session record.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.end_session"
	id := chi.URLParam(r, "id")
	if _, err := s.deps.EndSession(r.Context(), id); err != nil {
		writeDomainError(w, op, err)
		return
	}
	rec, err := s.deps.CompletedSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleResetSession handles POST /sessions/{id}/reset requests.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_session"
	view, err := s.deps.ResetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleKeys handles POST /sessions/{id}/keys requests.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_keys"
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	runes := []rune(req.Key)
	if len(runes) != 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	res, err := s.deps.HandleKey(r.Context(), chi.URLParam(r, "id"), runes[0])
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusOK, hitResponse{Hit: false})
		return
	}
	writeJSON(w, http.StatusOK, hitResponse{
		Hit:        true,
		TargetID:   res.TargetID,
		Points:     res.Points,
		Combo:      res.Combo,
		ReactionMs: res.ReactionMs,
	})
}
