package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	service "github.com/okian/clanpulse/internal/app"
	"github.com/okian/clanpulse/internal/config"
	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/internal/domain/types"
	"github.com/okian/clanpulse/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultReportTop = 10

func newReportCommand(g *globalFlags, cfg *config.Config) *cobra.Command {
	var active, atRisk, inactive, top int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the clan health report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts, err := service.ConfigOptions(cfg)
			if err != nil {
				return err
			}
			opts = append(opts,
				service.WithGateway(g.client(cfg)),
				service.WithGroupID(g.group),
				service.WithLogger(logger.Nop()),
			)
			svc := service.New(opts...)
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			var o types.ThresholdOverride
			flags := cmd.Flags()
			if flags.Changed("active") {
				o.Active = &active
			}
			if flags.Changed("at-risk") {
				o.AtRisk = &atRisk
			}
			if flags.Changed("inactive") {
				o.Inactive = &inactive
			}
			rep, err := svc.Report(ctx, o)
			if err != nil {
				return err
			}
			PrintReport(cmd.OutOrStdout(), rep, top, time.Now())
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&active, "active", cfg.ActiveDays, "active threshold in days")
	f.IntVar(&atRisk, "at-risk", cfg.AtRiskDays, "at-risk threshold in days")
	f.IntVar(&inactive, "inactive", cfg.InactiveDays, "inactive threshold in days")
	f.IntVar(&top, "top", defaultReportTop, "risk entries to print")
	return cmd
}

// PrintReport writes a terminal summary of rep: health, state counts and
// the top of the risk ranking.
func PrintReport(out io.Writer, rep types.Report, top int, now time.Time) {
	name := rep.GroupName
	if name == "" {
		name = fmt.Sprintf("group %d", rep.GroupID)
	}
	fmt.Fprintf(out, "%s  (%d members, %d tracked)\n", name, rep.Total, rep.Tracked)
	if rep.HealthScore == nil {
		fmt.Fprintln(out, "health: n/a")
	} else {
		fmt.Fprintf(out, "health: %.1f\n", *rep.HealthScore)
	}
	fmt.Fprintf(out, "thresholds: active <=%dd, at risk <=%dd, inactive <=%dd\n",
		rep.Thresholds.Active, rep.Thresholds.AtRisk, rep.Thresholds.Inactive)
	fmt.Fprintf(out, "total xp: %s\n\n", humanize.Comma(rep.Totals.Experience))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range model.AllStates {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", s, rep.Counts[s.String()], rep.Percentages[s.String()])
	}
	_ = tw.Flush()

	if len(rep.Risk) == 0 {
		fmt.Fprintln(out, "\nno members at risk")
		return
	}
	fmt.Fprintln(out, "\nat risk:")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tmember\tstatus\tdays\txp\tlast active\tpriority")
	for i, e := range rep.Risk {
		if top > 0 && i >= top {
			break
		}
		last := "-"
		if e.LastActive != nil {
			last = humanize.RelTime(*e.LastActive, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Rank, displayName(e), strings.ReplaceAll(e.Status, "_", " "),
			e.DaysInactive, humanize.Comma(e.Experience), last, e.Priority)
	}
	_ = tw.Flush()
	if top > 0 && len(rep.Risk) > top {
		fmt.Fprintf(out, "... and %d more\n", len(rep.Risk)-top)
	}
}

func displayName(e types.RiskEntry) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Username
}
