// Package representation holds the packaged genotype of an experiment and
// decodes chromosomes onto a target configuration.
//
// A Representation is immutable once built. Decode and PrepareConfig only
// read it, so one Representation may serve any number of goroutines as long
// as every goroutine writes to its own TargetConfiguration.
package representation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
)

var (
	// ErrLengthMismatch is returned when a chromosome doesn't have one
	// allele index per gene.
	ErrLengthMismatch = errors.New("chromosome length mismatch")

	// ErrInvalid is returned by Check for representations that break the
	// bit ownership rules.
	ErrInvalid = errors.New("invalid representation")
)

// CarryData describes the carry enable bit of one LUT and the connection
// patterns that consume its carry output.
type CarryData struct {
	LUTIndex    int                 `json:"lut_index" yaml:"lut_index"`
	CarryEnable []chipdb.Bit        `json:"carry_enable" yaml:"carry_enable"`
	CarryUse    []interrep.PartConf `json:"carry_use,omitempty" yaml:"carry_use,omitempty"`
}

// Representation is the genotype of an experiment.
type Representation struct {
	// Genes are the variable genes in chromosome order.
	Genes []model.Gene
	// Constant genes have exactly one allele and are written by PrepareConfig.
	Constant        []model.Gene
	ColBufCtrl      []chipdb.ColBufCtrl
	ColBufCtrlItems []chipdb.IndexedItem
	// Output lists the LUT flip flops driving the outputs, sorted.
	Output []chipdb.LUTPosition
	// Carry maps a tile to the carry data of its LUTs, ordered by LUT index.
	Carry map[chipdb.Tile][]CarryData
	// SectionLengths are the lengths of the runs of consecutive genes that
	// share their tiles.
	SectionLengths []int
}

// PrepareConfig writes the constant genes and enables the column buffer
// controls. Calling it again has no further effect.
func (r *Representation) PrepareConfig(cfg model.TargetConfiguration) error {
	for _, g := range r.Constant {
		if err := cfg.SetMultiBits(g.Bits, g.Alleles.At(0).Values); err != nil {
			return fmt.Errorf("constant gene %s: %w", g.Description, err)
		}
	}
	for _, item := range r.ColBufCtrlItems {
		for _, b := range item.Bits {
			cfg.SetBit(b, true)
		}
	}
	return nil
}

// Decode writes the alleles selected by chromo and derives the carry enable
// bits from the result.
func (r *Representation) Decode(cfg model.TargetConfiguration, chromo model.Chromosome) error {
	if len(chromo.Indices) != len(r.Genes) {
		return fmt.Errorf("%w: chromosome %d has %d indices for %d genes",
			ErrLengthMismatch, chromo.ID, len(chromo.Indices), len(r.Genes))
	}
	for i, g := range r.Genes {
		a, err := allele.Get(g.Alleles, chromo.Indices[i])
		if err != nil {
			return fmt.Errorf("chromosome %d gene %d (%s): %w", chromo.ID, i, g.Description, err)
		}
		if err := cfg.SetMultiBits(g.Bits, a.Values); err != nil {
			return fmt.Errorf("chromosome %d gene %d (%s): %w", chromo.ID, i, g.Description, err)
		}
	}
	return r.setCarryEnable(cfg)
}

// setCarryEnable walks the LUTs of every tile from the highest index down.
// The first LUT whose carry output is consumed and all LUTs below it get
// carry enabled.
func (r *Representation) setCarryEnable(cfg model.TargetConfiguration) error {
	for _, tile := range slices.SortedFunc(maps.Keys(r.Carry), chipdb.Tile.Compare) {
		luts := r.Carry[tile]
		enable := false
		for i := len(luts) - 1; i >= 0; i-- {
			cd := luts[i]
			if !enable {
				for _, use := range cd.CarryUse {
					if use.Matches(cfg.GetMultiBits(use.Bits)) {
						enable = true
						break
					}
				}
			}
			values := make([]bool, len(cd.CarryEnable))
			for j := range values {
				values[j] = enable
			}
			if err := cfg.SetMultiBits(cd.CarryEnable, values); err != nil {
				return fmt.Errorf("carry enable of %s LUT %d: %w", tile, cd.LUTIndex, err)
			}
		}
	}
	return nil
}

// DecodeBatch decodes chromos[i] onto targets[i] using at most workers
// goroutines. workers < 1 means no limit.
func (r *Representation) DecodeBatch(ctx context.Context, targets []model.TargetConfiguration, chromos []model.Chromosome, workers int) error {
	if len(targets) != len(chromos) {
		return fmt.Errorf("%w: %d targets for %d chromosomes", ErrLengthMismatch, len(targets), len(chromos))
	}
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range chromos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.Decode(targets[i], chromos[i])
		})
	}
	return g.Wait()
}

// IterGenes yields the variable genes in chromosome order.
func (r *Representation) IterGenes() iter.Seq[model.Gene] {
	return func(yield func(model.Gene) bool) {
		for _, g := range r.Genes {
			if !yield(g) {
				return
			}
		}
	}
}

// IterCarryBits yields the carry enable bits per LUT, sorted by position.
func (r *Representation) IterCarryBits() iter.Seq2[chipdb.LUTPosition, []chipdb.Bit] {
	return func(yield func(chipdb.LUTPosition, []chipdb.Bit) bool) {
		for _, tile := range slices.SortedFunc(maps.Keys(r.Carry), chipdb.Tile.Compare) {
			for _, cd := range r.Carry[tile] {
				if !yield(chipdb.LUTPosition{Tile: tile, Z: cd.LUTIndex}, cd.CarryEnable) {
					return
				}
			}
		}
	}
}

// AlleleCounts returns the number of alleles of every variable gene.
func (r *Representation) AlleleCounts() []int {
	counts := make([]int, len(r.Genes))
	for i, g := range r.Genes {
		counts[i] = g.Alleles.Len()
	}
	return counts
}

// Highest returns the chromosome selecting the last allele of every gene.
func (r *Representation) Highest(id int) model.Chromosome {
	indices := r.AlleleCounts()
	for i := range indices {
		indices[i]--
	}
	return model.Chromosome{ID: id, Indices: indices}
}

// Check verifies that every gene has alleles of its width and that no bit
// belongs to two genes or to a gene and a derived bit.
func (r *Representation) Check() error {
	owner := make(map[chipdb.Bit]string)
	claim := func(bits []chipdb.Bit, name string) error {
		for _, b := range bits {
			if prev, ok := owner[b]; ok {
				return fmt.Errorf("%w: bit %s in %q and %q", ErrInvalid, b, prev, name)
			}
			owner[b] = name
		}
		return nil
	}
	for _, g := range slices.Concat(r.Genes, r.Constant) {
		if g.Alleles.Len() == 0 {
			return fmt.Errorf("%w: gene %q has no alleles", ErrInvalid, g.Description)
		}
		for i := 0; i < g.Alleles.Len(); i++ {
			if n := len(g.Alleles.At(i).Values); n != len(g.Bits) {
				return fmt.Errorf("%w: gene %q has %d bits, allele %d has %d values", ErrInvalid, g.Description, len(g.Bits), i, n)
			}
		}
		if err := claim(g.Bits, g.Description); err != nil {
			return err
		}
	}
	for pos, bits := range r.IterCarryBits() {
		if err := claim(bits, "carry enable "+pos.String()); err != nil {
			return err
		}
	}
	for _, item := range r.ColBufCtrlItems {
		if err := claim(item.Bits, item.Identifier()); err != nil {
			return err
		}
	}
	return nil
}
