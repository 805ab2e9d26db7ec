package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markb/pgfngen/internal/types"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List supported column types",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tTOKEN\tOID\tNOT FOUND\tALIASES")
		for _, k := range types.Kinds() {
			t := types.Type{Kind: k}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", k, t.Token(), t.OID(), t.NullLiteral(), strings.Join(types.Aliases(k), ", "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
