package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/molehit/molehit/internal/domain/level"
)

// levelResponse is the wire shape of a level definition. Durations are
// flattened to milliseconds.
type levelResponse struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Difficulty      string  `json:"difficulty"`
	Multiplier      float64 `json:"multiplier"`
	MaxTargets      int     `json:"maxTargets"`
	SpawnIntervalMs int64   `json:"spawnIntervalMs"`
	LifetimeMs      int64   `json:"lifetimeMs"`
	TimeLimitMs     int64   `json:"timeLimitMs"`
	TargetScore     int     `json:"targetScore"`
	CharacterSet    string  `json:"characterSet"`
}

func levelToResponse(def level.Definition) levelResponse {
	return levelResponse{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		Difficulty:      string(def.Difficulty),
		Multiplier:      def.Difficulty.Multiplier(),
		MaxTargets:      def.MaxTargets,
		SpawnIntervalMs: def.SpawnInterval.Milliseconds(),
		LifetimeMs:      def.Lifetime.Milliseconds(),
		TimeLimitMs:     def.TimeLimit.Milliseconds(),
		TargetScore:     def.TargetScore,
		CharacterSet:    string(def.CharacterSet),
	}
}

// handleListLevels handles GET /levels requests.
func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_levels"
	defs, err := s.deps.Levels(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	out := make([]levelResponse, len(defs))
	for i, def := range defs {
		out[i] = levelToResponse(def)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetLevel handles GET /levels/{id} requests.
func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_level"
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	def, err := s.deps.Level(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, levelToResponse(def))
}
