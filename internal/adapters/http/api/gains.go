package api

import "net/http"

// GainsHandler serves the group gains summary.
type GainsHandler struct {
	deps Dependencies
}

// NewGainsHandler creates a new gains handler.
func NewGainsHandler(deps Dependencies) *GainsHandler {
	return &GainsHandler{deps: deps}
}

// HandleGetGains handles GET /api/gains?metric=..&period=..
// Empty values fall back to the overall metric and the configured period.
func (h *GainsHandler) HandleGetGains(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_gains"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	rep, err := h.deps.Gains(r.Context(), q.Get("metric"), q.Get("period"))
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
