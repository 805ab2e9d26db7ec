package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markb/pgfngen/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.sql>",
	Short: "Summarize a generated function file",
	Long: `Read a generated function file back and report its signature, RETURNS
columns and not-found fallback, along with any structural problems such
as a fallback row out of step with RETURNS TABLE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		s, err := inspect.Inspect(string(data))
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		argTypes := make([]string, len(s.Args))
		for i, a := range s.Args {
			argTypes[i] = a.Name + " " + a.Type
		}
		fmt.Fprintf(out, "Function: %s(%s)\n", s.Function, strings.Join(argTypes, ", "))
		fmt.Fprintf(out, "Owner:    %s\n", s.Owner)
		fmt.Fprintf(out, "Grantee:  %s\n", s.Grantee)
		fmt.Fprintln(out, "Returns:")
		for i, c := range s.Returns {
			fallback := "?"
			if i < len(s.Fallback) {
				fallback = s.Fallback[i].Literal
			}
			fmt.Fprintf(out, "  %-24s %-32s %s\n", c.Name, c.Type, fallback)
		}

		problems := s.Problems()
		if len(problems) == 0 {
			return nil
		}
		fmt.Fprintln(out, "Problems:")
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("%d problems found", len(problems))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
