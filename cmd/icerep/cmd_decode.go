package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/validator"
)

type decodedConfig struct {
	Chromosome model.Chromosome `json:"chromosome"`
	Ones       []chipdb.Bit     `json:"ones"`
}

func newDecodeCmd(a *app) *cobra.Command {
	var (
		chromosomes []string
		highest     bool
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "decode <summary>",
		Short: "Decode chromosomes with a generated representation",
		Long: `Decode prepares a fresh configuration per chromosome, writes the
selected alleles and prints the set bits as one JSON object per line.

Chromosomes are comma separated allele indices, one per variable gene:
  icerep decode rep.json --chromosome 0,1,0,2 --highest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, summary, err := readSummary(args[0])
			if err != nil {
				return err
			}
			v, err := validator.NewSummaryValidator()
			if err != nil {
				return err
			}
			if err := v.ValidateJSON(raw); err != nil {
				return err
			}
			rep, err := representation.FromSummary(summary)
			if err != nil {
				return err
			}

			ids := model.NewIDGenerator(0)
			var chromos []model.Chromosome
			for _, s := range chromosomes {
				indices, err := parseIndices(s)
				if err != nil {
					return err
				}
				chromos = append(chromos, ids.NewChromosome(indices))
			}
			if highest {
				chromos = append(chromos, rep.Highest(ids.Next()))
			}
			if len(chromos) == 0 {
				return fmt.Errorf("no chromosomes given, use --chromosome or --highest")
			}

			p, err := a.newPipeline(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			configs, err := p.Decode(cmd.Context(), rep, chromos, workers)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, c := range configs {
				if err := enc.Encode(decodedConfig{Chromosome: chromos[i], Ones: c.Ones()}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&chromosomes, "chromosome", nil, "comma separated allele indices (repeatable)")
	cmd.Flags().BoolVar(&highest, "highest", false, "also decode the chromosome with the highest allele of every gene")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent decodes (0 = config or number of CPUs)")
	return cmd
}

func parseIndices(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid allele index %q in chromosome %q", p, s)
		}
		indices[i] = n
	}
	return indices, nil
}
