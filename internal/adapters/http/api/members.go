package api

import (
	"fmt"
	"net/http"

	"github.com/okian/clanpulse/internal/domain/types"
)

// MembersHandler serves the member table and the risk ranking.
type MembersHandler struct {
	deps Dependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps Dependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

// HandleGetMembers handles GET /api/members?status=..&role=..&sort=..
func (h *MembersHandler) HandleGetMembers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_members"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := types.MemberQuery{
		States: listParam(r, "status"),
		Roles:  listParam(r, "role"),
		Sort:   r.URL.Query().Get("sort"),
	}
	rows, err := h.deps.Members(r.Context(), q)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetRisk handles GET /api/risk?limit=N.
func (h *MembersHandler) HandleGetRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_risk"
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
		maxLimit := h.deps.MaxRiskLimit()
		if *limit < 1 || *limit > maxLimit {
			writeErr(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be between 1 and %d", maxLimit)))
			return
		}
		n = *limit
	}
	entries, err := h.deps.Risk(r.Context(), n)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
