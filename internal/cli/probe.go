package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/clanpulse/internal/adapters/wom"
	"github.com/okian/clanpulse/internal/config"
	"github.com/spf13/cobra"
)

// Prober issues raw endpoint checks. *wom.Client implements it.
type Prober interface {
	Probe(ctx context.Context, path string, q url.Values) (wom.ProbeResult, error)
}

type check struct {
	name     string
	path     string
	query    url.Values
	expect   int
	required bool
}

func checks(group int) []check {
	base := "/groups/" + strconv.Itoa(group)
	return []check{
		{name: "group details", path: base, expect: 200, required: true},
		{name: "group hiscores", path: base + "/hiscores", query: url.Values{"metric": {"overall"}}, expect: 200, required: true},
		{name: "members endpoint absent", path: base + "/members", expect: 404},
		{name: "group gained", path: base + "/gained", query: url.Values{"metric": {"overall"}, "period": {wom.DefaultPeriod}}, expect: 200, required: true},
		{name: "group achievements", path: base + "/achievements", query: url.Values{"limit": {"10"}}, expect: 200, required: true},
	}
}

func newProbeCommand(g *globalFlags, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check the WiseOldMan endpoints the dashboard depends on",
		Long: `Calls group details, hiscores, gained and achievements for the group,
and confirms that the /members endpoint does not exist. Prints PASS or FAIL
per endpoint and fails when a required endpoint fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Probe(cmd.Context(), cmd.OutOrStdout(), g.client(cfg), g.group)
		},
	}
}

// Probe runs every endpoint check against p and writes a report to out.
func Probe(ctx context.Context, out io.Writer, p Prober, group int) error {
	fmt.Fprintf(out, "probing group %d\n", group)
	passed, failedRequired := 0, 0
	list := checks(group)
	for _, c := range list {
		res, err := p.Probe(ctx, c.path, c.query)
		ok := err == nil && res.StatusCode == c.expect
		status := "PASS"
		if !ok {
			status = "FAIL"
			if c.required {
				failedRequired++
			}
		} else {
			passed++
		}
		fmt.Fprintf(out, "  %s  %-24s %s\n", status, c.name, describe(res, err))
	}
	fmt.Fprintf(out, "%d/%d checks passed\n", passed, len(list))
	if failedRequired > 0 {
		return fmt.Errorf("%w: %d required endpoint(s) failed", ErrProbeFailed, failedRequired)
	}
	return nil
}

func describe(res wom.ProbeResult, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d in %s", res.StatusCode, res.Latency.Round(1e6))
	switch {
	case res.Items >= 0 && res.StatusCode < 300:
		fmt.Fprintf(&b, ", %d items", res.Items)
	case len(res.Keys) > 0:
		fmt.Fprintf(&b, ", keys %s", strings.Join(res.Keys, ","))
	}
	return b.String()
}
