package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/pipeline"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

func newGenerateCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate <request>",
		Short: "Generate the representation of a request file",
		Long: `Generate builds the representation of one request file and writes its
summary. The format follows the extension of --output (.yaml/.yml or JSON);
without --output a short overview is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPipeline(cmd)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), args[0])
			if cerr := p.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			if output == "" {
				printOverview(cmd.OutOrStdout(), res)
				return nil
			}
			if err := writeSummary(output, res.Summary); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d genes, %d constant)\n",
				output, res.Summary.Stats.Genes, res.Summary.Stats.ConstantGenes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the summary to file (.json, .yaml or .yml)")
	return cmd
}

func printOverview(w io.Writer, res *pipeline.Result) {
	stats := res.Summary.Stats
	name := res.Name
	if name == "" {
		name = res.Path
	}
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  run:          %s\n", res.RunID)
	fmt.Fprintf(w, "  genes:        %d (%d bits)\n", stats.Genes, stats.VariableBits)
	fmt.Fprintf(w, "  constant:     %d (%d bits)\n", stats.ConstantGenes, stats.ConstantBits)
	fmt.Fprintf(w, "  sections:     %d\n", stats.Sections)
	fmt.Fprintf(w, "  search space: 2^%.1f\n", stats.SearchSpaceBits)
	if res.Cached {
		fmt.Fprintln(w, "  cached:       yes")
	}
	if res.Lint != nil {
		fmt.Fprintf(w, "  lint:         %d errors, %d warnings, %d info\n",
			res.Lint.Summary.Errors, res.Lint.Summary.Warnings, res.Lint.Summary.Info)
	}
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func writeSummary(path string, s representation.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	// YAML is produced from the JSON form so both share the json keys of
	// embedded position types.
	if isYAMLPath(path) {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// readSummary reads a summary written by writeSummary. YAML input is
// converted to JSON so the CUE contract sees the same document either way.
func readSummary(path string) ([]byte, representation.Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, representation.Summary{}, err
	}
	if isYAMLPath(path) {
		raw, err = yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, representation.Summary{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	var s representation.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, representation.Summary{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, s, nil
}
