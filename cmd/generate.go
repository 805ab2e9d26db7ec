package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markb/pgfngen/internal/generator"
	"github.com/markb/pgfngen/internal/log"
)

var generateCmd = &cobra.Command{
	Use:   "generate [definition files...]",
	Short: "Generate query functions from definition files",
	Long: `Generate PostgreSQL query functions from YAML definition files.

Each definition yields DROP, CREATE, OWNERSHIP and GRANT statements.
Definitions are generated in parallel; output keeps the input order. If
any definition fails, nothing is written and every failure is reported.

Examples:
  # Generate to stdout
  pgfngen generate crew.yaml

  # Read definitions from a pipe and write a file
  cat crew.yaml | pgfngen generate -o crew.sql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		fns, err := loadDefinitions(cmd, args)
		if err != nil {
			return err
		}

		results, err := generator.New(cfg).GenerateAll(cmd.Context(), fns)
		if err != nil {
			return err
		}

		var sb strings.Builder
		var failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Function.Name(), r.Err)
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(r.Artifact.String())
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d definitions failed", failed, len(results))
		}

		if err := writeOutput(cmd, outputPath, sb.String()); err != nil {
			return err
		}
		log.Info("functions generated", "count", len(results), "output", outputPath)
		if outputPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d functions to %s\n", len(results), outputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
}
