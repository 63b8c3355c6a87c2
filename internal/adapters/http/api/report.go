package api

import (
	"net/http"

	"github.com/okian/clanpulse/internal/domain/types"
)

// ReportHandler serves the full clan report.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleGetReport handles GET /api/report. The active, at_risk and inactive
// parameters override the configured thresholds for this request only.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_report"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	var o types.ThresholdOverride
	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"active", &o.Active},
		{"at_risk", &o.AtRisk},
		{"inactive", &o.Inactive},
	} {
		v, err := intParam(r, p.name)
		if err != nil {
			writeErr(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		*p.dst = v
	}

	rep, err := h.deps.Report(r.Context(), o)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
