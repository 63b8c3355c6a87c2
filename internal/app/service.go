// Package service fetches the clan roster through the gateway, runs the
// activity engine over it and shapes the results for the HTTP API and CLI.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/clanpulse/internal/adapters/wom"
	"github.com/okian/clanpulse/internal/domain/activity"
	"github.com/okian/clanpulse/internal/domain/types"
	"github.com/okian/clanpulse/pkg/logger"
	"github.com/okian/clanpulse/pkg/metrics"
)

// Gateway is the upstream data source.
type Gateway interface {
	GroupDetails(ctx context.Context, groupID int) (wom.GroupDetails, error)
	Hiscores(ctx context.Context, groupID int, metric string) ([]wom.HiscoreEntry, error)
	Gained(ctx context.Context, groupID int, metric, period string) ([]wom.GainedEntry, error)
	Achievements(ctx context.Context, groupID, limit int) ([]wom.Achievement, error)
	Competitions(ctx context.Context, groupID int) ([]wom.Competition, error)
}

// Invalidator is implemented by caching gateways.
type Invalidator interface {
	Invalidate() int
	Entries() map[string]int
}

// Service implements the API dependencies for the clan dashboard.
type Service struct {
	mu sync.RWMutex

	gateway Gateway
	engine  *activity.Engine

	// Configuration
	groupID           int
	gainPeriod        string
	gainMetrics       []string
	snapshotSkills    []string
	fetchConcurrency  int
	achievementsLimit int
	maxRiskLimit      int
	rateLimit         float64
	now               func() time.Time

	// State
	started       bool
	startedAt     time.Time
	analyses      int64
	lastAnalysis  time.Time
	lastHealth    *float64
	refreshes     int64
	lastRefresh   time.Time
	lastRefreshID string
	lastError     string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGateway sets the upstream data source.
func WithGateway(g Gateway) Option {
	return func(s *Service) { s.gateway = g }
}

// WithGroupID sets the analysed group.
func WithGroupID(id int) Option {
	return func(s *Service) {
		if id > 0 {
			s.groupID = id
		}
	}
}

// WithEngineConfig sets the validated engine configuration.
func WithEngineConfig(cfg activity.Config) Option {
	return func(s *Service) { s.engine = activity.NewEngine(cfg) }
}

// WithGainPeriod sets the gained lookback used as activity evidence.
func WithGainPeriod(period string) Option {
	return func(s *Service) {
		if wom.ValidPeriod(period) {
			s.gainPeriod = period
		}
	}
}

// WithGainMetrics sets the metrics whose gains count as activity.
func WithGainMetrics(names ...string) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.gainMetrics = append([]string(nil), names...)
		}
	}
}

// WithSnapshotSkills sets the skills fetched into member snapshots.
func WithSnapshotSkills(skills ...string) Option {
	return func(s *Service) { s.snapshotSkills = append([]string(nil), skills...) }
}

// WithFetchConcurrency bounds parallel upstream calls per pass.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithAchievementsLimit sets the default achievements feed length.
func WithAchievementsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.achievementsLimit = n
		}
	}
}

// WithMaxRiskLimit caps the risk ranking length.
func WithMaxRiskLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRiskLimit = n
		}
	}
}

// WithRateLimit records the gateway budget for stats.
func WithRateLimit(perMinute float64) Option {
	return func(s *Service) { s.rateLimit = perMinute }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:            activity.NewEngine(activity.DefaultConfig()),
		groupID:           11625,
		gainPeriod:        wom.DefaultPeriod,
		gainMetrics:       []string{"overall"},
		fetchConcurrency:  4,
		achievementsLimit: 50,
		maxRiskLimit:      100,
		now:               time.Now,
		logger:            nil, // replaced on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks the wiring and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.gateway == nil {
		return ErrNoGateway
	}

	s.started = true
	s.startedAt = s.now()
	th := s.engine.Config().Thresholds()
	s.logger.Info(ctx, "clan service started",
		logger.Int("group_id", s.groupID),
		logger.String("gain_period", s.gainPeriod),
		logger.Any("gain_metrics", s.gainMetrics),
		logger.Int("active_days", th.Active()),
		logger.Int("at_risk_days", th.AtRisk()),
		logger.Int("inactive_days", th.Inactive()),
		logger.Int("fetch_concurrency", s.fetchConcurrency),
	)
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "clan service stopped")
}

// GroupID returns the analysed group.
func (s *Service) GroupID() int { return s.groupID }

// MaxRiskLimit returns the risk ranking cap.
func (s *Service) MaxRiskLimit() int { return s.maxRiskLimit }

// Refresh drops cached upstream data so the next read refetches it.
func (s *Service) Refresh(ctx context.Context) (types.RefreshResult, error) {
	if err := s.ready(); err != nil {
		return types.RefreshResult{}, err
	}
	res := types.RefreshResult{ID: uuid.NewString(), RequestedAt: s.now().UTC()}
	if inv, ok := s.gateway.(Invalidator); ok {
		res.Invalidated = inv.Invalidate()
	}

	s.mu.Lock()
	s.refreshes++
	s.lastRefresh = res.RequestedAt
	s.lastRefreshID = res.ID
	s.mu.Unlock()

	s.logger.Info(ctx, "cache invalidated",
		logger.String("refresh_id", res.ID),
		logger.Int("entries", res.Invalidated))
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		Started:       s.started,
		GroupID:       s.groupID,
		Analyses:      s.analyses,
		LastHealth:    s.lastHealth,
		Refreshes:     s.refreshes,
		LastRefreshID: s.lastRefreshID,
		LastError:     s.lastError,
		CacheEntries:  map[string]int{},
		RateLimit:     s.rateLimit,
	}
	if !s.lastAnalysis.IsZero() {
		t := s.lastAnalysis
		st.LastAnalysis = &t
	}
	if !s.lastRefresh.IsZero() {
		t := s.lastRefresh
		st.LastRefresh = &t
	}
	if s.started {
		st.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	}
	if inv, ok := s.gateway.(Invalidator); ok {
		st.CacheEntries = inv.Entries()
		for name, n := range st.CacheEntries {
			metrics.UpdateCacheEntries(name, n)
		}
	}
	return st
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) recordAnalysis(at time.Time, health *float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.analyses++
	s.lastAnalysis = at
	s.lastHealth = health
	s.lastError = ""
}
