package api

import "net/http"

// RefreshHandler drops cached upstream data.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandlePostRefresh handles POST /api/refresh. The next read refetches from
// upstream, so the response is 202 rather than the new report.
func (h *RefreshHandler) HandlePostRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	res, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}
