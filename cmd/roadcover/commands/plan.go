package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadcover/internal/buildinfo"
	"roadcover/internal/graph"
	"roadcover/internal/network"
	"roadcover/internal/opt"
	"roadcover/internal/telemetry"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		out    string
		noCore bool
	)
	cmd := &cobra.Command{
		Use:   "plan NETWORK",
		Short: "Plan daily coverage routes for a network file",
		Long: `Loads a network (YAML, JSON or raw Overpass JSON), strips dead-end
spurs with a 2-core reduction, and plans depot-to-depot days until every
segment is covered or no day can make progress.

Example:
  roadcover plan turin.yaml --depot 65296337 --max-distance 42.2
  roadcover plan turin.json -a genetic --seed 7 --out plan.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			nf, err := network.Load(args[0])
			if err != nil {
				return err
			}
			if nf.Depot != 0 && !cmd.Flags().Changed("depot") {
				cfg.Planner.Depot = nf.Depot
			}

			ctx := cmd.Context()
			shutdown, err := telemetry.Init(ctx, telemetry.Options{
				Exporter:       cfg.Telemetry.Exporter,
				Endpoint:       cfg.Telemetry.Endpoint,
				ServiceName:    cfg.Telemetry.ServiceName,
				ServiceVersion: buildinfo.Version,
				Writer:         cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(ctx) }()

			g, err := loadGraph(nf.Segments)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !noCore {
				st := g.Compute2Core()
				fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("2-core: %d -> %d nodes, %d -> %d edges",
					st.NodesBefore, st.NodesAfter, st.EdgesBefore, st.EdgesAfter)))
			}
			if g.IsConnected() {
				fmt.Fprintln(w, dimStyle.Render("network: connected"))
			} else {
				fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(
					"network: disconnected, %d components; segments outside the depot's component cannot be covered",
					len(g.Components()))))
			}

			plan, err := opt.Solve(ctx, g, cfg.Algorithm, cfg.Planner, opt.WithLogger(a.logger(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			report := opt.Validate(g, plan.Days, cfg.Planner.Depot, cfg.Planner.MaxDistance)
			if err := renderPlan(w, plan, report); err != nil {
				return err
			}
			if out != "" {
				return savePlan(out, plan)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the plan to a .json or .yaml file")
	cmd.Flags().BoolVar(&noCore, "no-core", false, "plan on the full network without the 2-core reduction")
	return cmd
}

// loadGraph trusts stored segment lengths only when every segment has one.
func loadGraph(segs []graph.Segment) (*graph.Graph, error) {
	for _, s := range segs {
		if s.Distance <= 0 {
			return graph.Build(segs)
		}
	}
	return graph.Build(segs, graph.WithSegmentLengths())
}

func renderPlan(w io.Writer, plan opt.Plan, report opt.Report) error {
	fmt.Fprintln(w, titleStyle.Render(strings.ToUpper(plan.Algorithm)+" PLAN"))
	if err := opt.WriteSummary(w, plan); err != nil {
		return err
	}
	status := fmt.Sprintf("covered %d/%d segments in %d days (%s, %s)",
		plan.Covered, plan.Total, len(plan.Days), plan.StopReason, plan.Elapsed.Round(time.Millisecond))
	if plan.Complete {
		fmt.Fprintln(w, titleStyle.Render(status))
	} else {
		fmt.Fprintln(w, warnStyle.Render(status))
	}
	if len(report.OverBudget) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d days exceed the budget", len(report.OverBudget))))
	}
	if len(report.DepotViolations) > 0 || len(report.Gaps) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("invalid routes: %d depot violations, %d gaps",
			len(report.DepotViolations), len(report.Gaps))))
	}
	return nil
}

func savePlan(path string, plan opt.Plan) error {
	f, err := network.FormatOf(path)
	if err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := network.Encode(fh, f, plan); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
