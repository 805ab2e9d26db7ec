package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markb/pgfngen/internal/conformance"
	"github.com/markb/pgfngen/internal/generator"
	"github.com/markb/pgfngen/internal/log"
)

var validateCmd = &cobra.Command{
	Use:   "validate [definition files...]",
	Short: "Check definitions against the conformance rules",
	Long: `Check definitions without generating SQL.

Every violation of every definition is listed. The command exits non-zero
if any definition is rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fns, err := loadDefinitions(cmd, args)
		if err != nil {
			return err
		}

		gen := generator.New(cfg)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FUNCTION\tRULE\tFIELD\tMESSAGE")

		var rejected int
		for _, fn := range fns {
			err := gen.Check(fn)
			if err == nil {
				continue
			}
			rejected++

			var ce *conformance.ConformanceError
			if !errors.As(err, &ce) {
				fmt.Fprintf(w, "%s\t-\t-\t%v\n", fn.Name(), err)
				continue
			}
			for _, v := range ce.Violations {
				field := v.Field
				if field == "" {
					field = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fn.Name(), v.Rule, field, v.Message)
			}
		}

		log.Info("definitions checked", "count", len(fns), "rejected", rejected)
		if rejected == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d definitions conform\n", len(fns))
			return nil
		}
		w.Flush()
		return fmt.Errorf("%d of %d definitions rejected", rejected, len(fns))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
