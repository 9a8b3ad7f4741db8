package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/policy"
)

type lintOutput struct {
	Request    string             `json:"request"`
	RunID      string             `json:"run_id"`
	Cached     bool               `json:"cached"`
	Violations []policy.Violation `json:"violations"`
	Summary    policy.Summary     `json:"summary"`
}

func newLintCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "lint [request...]",
		Short: "Generate and lint request files",
		Long: `Lint generates every request file (from the arguments, or the request
patterns of the configuration) and checks the representations against the
built-in policy and the rules of lint.policyDir.

Exits with status 3 if any error level violation was found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				var err error
				paths, err = a.cfg.ResolveRequests(a.root)
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					return fmt.Errorf("no request files found in %s", a.root)
				}
			}

			p, err := a.newPipeline(cmd)
			if err != nil {
				return err
			}
			results, runErr := p.RunAll(cmd.Context(), paths)
			if err := p.Close(); err != nil {
				a.logger.Warn("saving cache", "error", err)
			}

			errorsFound := 0
			outputs := []lintOutput{}
			for _, res := range results {
				if res == nil {
					continue
				}
				errorsFound += res.Lint.Summary.Errors
				outputs = append(outputs, lintOutput{
					Request:    res.Path,
					RunID:      res.RunID,
					Cached:     res.Cached,
					Violations: res.Lint.Violations,
					Summary:    res.Lint.Summary,
				})
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(outputs); err != nil {
					return err
				}
			} else {
				printViolations(cmd.OutOrStdout(), a.cfg, outputs)
			}

			if runErr != nil {
				return runErr
			}
			if errorsFound > 0 {
				return errLintFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	return cmd
}

func printViolations(w io.Writer, cfg *config.Config, outputs []lintOutput) {
	var total policy.Summary
	for _, out := range outputs {
		for _, v := range out.Violations {
			if !cfg.IsRuleEnabled(v.Rule) {
				continue
			}
			where := v.Gene
			if v.Tile != "" {
				where = v.Tile + " " + where
			}
			fmt.Fprintf(w, "%s: %s [%s] %s: %s\n", out.Request, v.Severity, v.Rule, where, v.Message)
		}
		total.TotalViolations += out.Summary.TotalViolations
		total.Errors += out.Summary.Errors
		total.Warnings += out.Summary.Warnings
		total.Info += out.Summary.Info
	}
	fmt.Fprintf(w, "\n%d requests, %d violations (%d errors, %d warnings, %d info)\n",
		len(outputs), total.TotalViolations, total.Errors, total.Warnings, total.Info)
}
