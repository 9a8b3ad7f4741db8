package representation

import (
	"fmt"
	"maps"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
)

// GeneSummary is the serialisable form of a gene.
type GeneSummary struct {
	Bits        []chipdb.Bit `json:"bits" yaml:"bits"`
	Alleles     allele.Spec  `json:"alleles" yaml:"alleles"`
	Description string       `json:"description" yaml:"description"`
}

// TileCarry is the carry data of one tile.
type TileCarry struct {
	Tile chipdb.Tile `json:"tile" yaml:"tile"`
	LUTs []CarryData `json:"luts" yaml:"luts"`
}

// Stats are derived figures for reports and logs.
type Stats struct {
	Genes         int `json:"genes" yaml:"genes"`
	ConstantGenes int `json:"constant_genes" yaml:"constant_genes"`
	VariableBits  int `json:"variable_bits" yaml:"variable_bits"`
	ConstantBits  int `json:"constant_bits" yaml:"constant_bits"`
	// SearchSpaceBits is log2 of the number of distinct chromosomes.
	SearchSpaceBits float64 `json:"search_space_bits" yaml:"search_space_bits"`
	Sections        int     `json:"sections" yaml:"sections"`
}

// Summary is the serialisable form of a Representation.
type Summary struct {
	Genes           []GeneSummary        `json:"genes" yaml:"genes"`
	Constant        []GeneSummary        `json:"constant" yaml:"constant"`
	ColBufCtrl      []chipdb.ColBufCtrl  `json:"colbufctrl" yaml:"colbufctrl"`
	ColBufCtrlItems []chipdb.IndexedItem `json:"colbufctrl_items" yaml:"colbufctrl_items"`
	Output          []chipdb.LUTPosition `json:"output" yaml:"output"`
	Carry           []TileCarry          `json:"carry" yaml:"carry"`
	SectionLengths  []int                `json:"section_lengths" yaml:"section_lengths"`
	Stats           Stats                `json:"stats" yaml:"stats"`
}

func summarizeGenes(genes []model.Gene) []GeneSummary {
	out := make([]GeneSummary, len(genes))
	for i, g := range genes {
		out[i] = GeneSummary{Bits: g.Bits, Alleles: g.Alleles.Spec(), Description: g.Description}
	}
	return out
}

// Stats computes the derived figures.
func (r *Representation) Stats() Stats {
	s := Stats{
		Genes:         len(r.Genes),
		ConstantGenes: len(r.Constant),
		Sections:      len(r.SectionLengths),
	}
	for _, g := range r.Genes {
		s.VariableBits += len(g.Bits)
		s.SearchSpaceBits += g.Alleles.SizeInBits()
	}
	for _, g := range r.Constant {
		s.ConstantBits += len(g.Bits)
	}
	return s
}

// Summary converts the representation to its serialisable form.
func (r *Representation) Summary() Summary {
	s := Summary{
		Genes:           summarizeGenes(r.Genes),
		Constant:        summarizeGenes(r.Constant),
		ColBufCtrl:      slices.Clone(r.ColBufCtrl),
		ColBufCtrlItems: slices.Clone(r.ColBufCtrlItems),
		Output:          slices.Clone(r.Output),
		SectionLengths:  slices.Clone(r.SectionLengths),
		Stats:           r.Stats(),
	}
	for _, tile := range slices.SortedFunc(maps.Keys(r.Carry), chipdb.Tile.Compare) {
		s.Carry = append(s.Carry, TileCarry{Tile: tile, LUTs: slices.Clone(r.Carry[tile])})
	}
	return s
}

func restoreGenes(sums []GeneSummary) ([]model.Gene, error) {
	genes := make([]model.Gene, len(sums))
	for i, gs := range sums {
		seq, err := gs.Alleles.Sequence()
		if err != nil {
			return nil, fmt.Errorf("gene %d (%s): %w", i, gs.Description, err)
		}
		g, err := model.NewGene(gs.Bits, seq, gs.Description)
		if err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		genes[i] = g
	}
	return genes, nil
}

// FromSummary rebuilds a Representation and checks it.
func FromSummary(s Summary) (*Representation, error) {
	genes, err := restoreGenes(s.Genes)
	if err != nil {
		return nil, err
	}
	constant, err := restoreGenes(s.Constant)
	if err != nil {
		return nil, err
	}
	r := &Representation{
		Genes:           genes,
		Constant:        constant,
		ColBufCtrl:      s.ColBufCtrl,
		ColBufCtrlItems: s.ColBufCtrlItems,
		Output:          s.Output,
		Carry:           make(map[chipdb.Tile][]CarryData, len(s.Carry)),
		SectionLengths:  s.SectionLengths,
	}
	for _, tc := range s.Carry {
		r.Carry[tc.Tile] = tc.LUTs
	}
	if err := r.Check(); err != nil {
		return nil, err
	}
	return r, nil
}
