package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		output   string
		html     bool
		maxGenes int
	)
	cmd := &cobra.Command{
		Use:   "report <request>",
		Short: "Write a markdown or HTML report of a request's representation",
		Args:  cobra.ExactArgs(1),
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

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			in := report.Input{
				Title:          res.Name,
				RunID:          res.RunID,
				Request:        res.Path,
				Representation: res.Representation,
				Lint:           res.Lint,
				MaxGenes:       maxGenes,
			}
			if html {
				return report.HTML(w, in)
			}
			return report.Markdown(w, in)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to file (default: stdout)")
	cmd.Flags().BoolVar(&html, "html", false, "render HTML instead of markdown")
	cmd.Flags().IntVar(&maxGenes, "max-genes", 0, "rows of the gene table (0 = default, -1 = all)")
	return cmd
}
