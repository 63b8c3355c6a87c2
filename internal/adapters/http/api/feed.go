package api

import (
	"errors"
	"net/http"
)

const maxAchievementsLimit = 200

// FeedHandler serves the achievement and competition feeds.
type FeedHandler struct {
	deps Dependencies
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps Dependencies) *FeedHandler {
	return &FeedHandler{deps: deps}
}

// HandleGetAchievements handles GET /api/achievements?limit=N.
func (h *FeedHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_achievements"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	n := 0
	if limit != nil {
		if *limit < 1 || *limit > maxAchievementsLimit {
			writeErr(w, WrapKind(op, ErrBadRequest, errors.New("limit must be between 1 and 200")))
			return
		}
		n = *limit
	}
	rows, err := h.deps.Achievements(r.Context(), n)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetCompetitions handles GET /api/competitions.
func (h *FeedHandler) HandleGetCompetitions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competitions"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	c, err := h.deps.Competitions(r.Context())
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
