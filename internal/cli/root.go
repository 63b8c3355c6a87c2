// Package cli implements the clanctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/clanpulse/internal/adapters/wom"
	"github.com/okian/clanpulse/internal/config"
	"github.com/okian/clanpulse/pkg/logger"
	"github.com/spf13/cobra"
)

// ErrProbeFailed is returned when a required endpoint check fails.
var ErrProbeFailed = errors.New("cli: probe failed")

type globalFlags struct {
	group   int
	baseURL string
	apiKey  string
	timeout time.Duration
	rate    float64
}

// NewRootCommand builds clanctl. Defaults come from the same configuration
// sources as the server; flags override them. A configuration that fails
// to load is returned as an error rather than replaced by defaults.
func NewRootCommand(ctx context.Context, out io.Writer) (*cobra.Command, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "clanctl",
		Short:         "Inspect a WiseOldMan group from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.IntVar(&g.group, "group", cfg.GroupID, "WiseOldMan group id")
	pf.StringVar(&g.baseURL, "base-url", cfg.WOMBaseURL, "WiseOldMan API base URL")
	pf.StringVar(&g.apiKey, "api-key", cfg.WOMAPIKey, "WiseOldMan API key")
	pf.DurationVar(&g.timeout, "timeout", cfg.RequestTimeout(), "per-request timeout")
	pf.Float64Var(&g.rate, "rate-limit", cfg.RateLimitPerMinute, "requests per minute, 0 picks the API default")

	root.AddCommand(newProbeCommand(g, cfg), newReportCommand(g, cfg))
	return root, nil
}

func (g *globalFlags) client(cfg *config.Config) *wom.Client {
	return wom.New(
		wom.WithBaseURL(g.baseURL),
		wom.WithAPIKey(g.apiKey),
		wom.WithUserAgent(cfg.UserAgent),
		wom.WithTimeout(g.timeout),
		wom.WithRateLimit(g.rate),
		wom.WithLogger(logger.Nop()),
	)
}
