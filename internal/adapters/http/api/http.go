// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/clanpulse/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Report(ctx context.Context, o types.ThresholdOverride) (types.Report, error)
	Members(ctx context.Context, q types.MemberQuery) ([]types.MemberRow, error)
	Risk(ctx context.Context, limit int) ([]types.RiskEntry, error)
	Gains(ctx context.Context, metric, period string) (types.GainsReport, error)
	Achievements(ctx context.Context, limit int) ([]types.Achievement, error)
	Competitions(ctx context.Context) (types.Competitions, error)
	Refresh(ctx context.Context) (types.RefreshResult, error)

	// MaxRiskLimit caps the limit accepted by /api/risk.
	MaxRiskLimit() int
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() types.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	reportHandler  *ReportHandler
	membersHandler *MembersHandler
	gainsHandler   *GainsHandler
	feedHandler    *FeedHandler
	refreshHandler *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		reportHandler:  NewReportHandler(deps),
		membersHandler: NewMembersHandler(deps),
		gainsHandler:   NewGainsHandler(deps),
		feedHandler:    NewFeedHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/report", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
	mux.HandleFunc("/api/members", MetricsMiddleware(s.membersHandler.HandleGetMembers, "members"))
	mux.HandleFunc("/api/risk", MetricsMiddleware(s.membersHandler.HandleGetRisk, "risk"))
	mux.HandleFunc("/api/gains", MetricsMiddleware(s.gainsHandler.HandleGetGains, "gains"))
	mux.HandleFunc("/api/achievements", MetricsMiddleware(s.feedHandler.HandleGetAchievements, "achievements"))
	mux.HandleFunc("/api/competitions", MetricsMiddleware(s.feedHandler.HandleGetCompetitions, "competitions"))
	mux.HandleFunc("/api/refresh", MetricsMiddleware(s.refreshHandler.HandlePostRefresh, "refresh"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
