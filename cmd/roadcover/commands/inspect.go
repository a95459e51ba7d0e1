package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"roadcover/internal/network"
)

func newInspectCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect NETWORK",
		Short: "Print size, connectivity and 2-core statistics of a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nf, err := network.Load(args[0])
			if err != nil {
				return err
			}
			g, err := loadGraph(nf.Segments)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(nf.Name))
			fmt.Fprintf(w, "segments:   %d\n", g.SegmentCount())
			fmt.Fprintf(w, "nodes:      %d\n", g.Len())
			fmt.Fprintf(w, "length:     %.2f km\n", g.TotalLength())
			fmt.Fprintf(w, "components: %d\n", len(g.Components()))
			if nf.Depot != 0 {
				fmt.Fprintf(w, "depot:      %d (present: %t)\n", nf.Depot, g.HasNode(nf.Depot))
			}

			st := g.Compute2Core()
			fmt.Fprintln(w, titleStyle.Render("2-CORE"))
			fmt.Fprintf(w, "nodes:      %d -> %d\n", st.NodesBefore, st.NodesAfter)
			fmt.Fprintf(w, "edges:      %d -> %d\n", st.EdgesBefore, st.EdgesAfter)
			fmt.Fprintf(w, "length:     %.2f km\n", g.TotalLength())
			if nf.Depot != 0 && !g.HasNode(nf.Depot) {
				fmt.Fprintln(w, warnStyle.Render("depot is on a spur and was removed by the 2-core reduction"))
			}
			return nil
		},
	}
}
