package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"roadcover/internal/network"
)

func newConvertCmd(_ *app) *cobra.Command {
	var name, highways string
	cmd := &cobra.Command{
		Use:   "convert OVERPASS_JSON OUT",
		Short: "Turn an Overpass API export into a segment file",
		Long: `Reads an Overpass [out:json] export, keeps routable highways, splits
ways at shared nodes, measures segments and keeps the largest connected
component. OUT may end in .yaml, .yml or .json.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			var allowed []string
			if highways != "" {
				allowed = strings.Split(highways, ",")
			}
			ex, err := network.DecodeOverpass(fh, allowed)
			if err != nil {
				return err
			}
			segs, st := network.Preprocess(ex)
			if len(segs) == 0 {
				return fmt.Errorf("%s: no routable segments", args[0])
			}
			var depot int64
			if cmd.Flags().Changed("depot") {
				depot, _ = cmd.Flags().GetInt64("depot")
			}
			if err := network.Save(args[1], &network.File{Name: name, Depot: depot, Segments: segs}); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("converted "+args[0]))
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d ways, %d intermediaries, %d pieces (%d single-node), %d missing refs",
				st.Ways, st.Intermediaries, st.Pieces, st.SingleNode, st.MissingRefs)))
			fmt.Fprintf(w, "%d segments kept from the largest of %d components -> %s\n", st.Segments, st.Components, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "network name stored in the file")
	cmd.Flags().StringVar(&highways, "highways", "", "comma-separated highway tags to keep (default: "+strings.Join(network.DefaultHighways, ",")+")")
	return cmd
}
