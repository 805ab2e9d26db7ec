package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/markb/pgfngen/internal/deffile"
	"github.com/markb/pgfngen/internal/model"
)

// loadDefinitions reads the definition files named in paths, or standard
// input when no path is given and input is piped.
func loadDefinitions(cmd *cobra.Command, paths []string) ([]*model.Function, error) {
	var files []*deffile.File

	if len(paths) == 0 {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return nil, errors.New("no definition files given and standard input is a terminal")
		}
		file, err := deffile.Decode(in)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		files = append(files, file)
	}

	for _, path := range paths {
		if path == "-" {
			file, err := deffile.Decode(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("stdin: %w", err)
			}
			files = append(files, file)
			continue
		}
		file, err := deffile.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, file)
	}

	var fns []*model.Function
	for i, file := range files {
		built, err := file.Build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sourceName(paths, i), err)
		}
		fns = append(fns, built...)
	}
	return fns, nil
}

func sourceName(paths []string, i int) string {
	if i < len(paths) && paths[i] != "-" {
		return paths[i]
	}
	return "stdin"
}

func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
