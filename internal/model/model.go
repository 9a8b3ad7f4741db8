// Package model holds the genotype types shared by the representation
// generator and its consumers.
package model

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// Gene is a group of configuration bits together with their legal values.
type Gene struct {
	Bits        []chipdb.Bit
	Alleles     allele.Sequence
	Description string
}

// NewGene checks that every allele has one value per bit and that no bit
// is given twice.
func NewGene(bits []chipdb.Bit, alleles allele.Sequence, desc string) (Gene, error) {
	seen := make(map[chipdb.Bit]bool, len(bits))
	for _, b := range bits {
		if seen[b] {
			return Gene{}, fmt.Errorf("bit %s given twice for gene %q", b, desc)
		}
		seen[b] = true
	}
	if alleles.Len() > 0 && len(alleles.At(0).Values) != len(bits) {
		return Gene{}, fmt.Errorf("gene %q: %d bits but alleles of width %d", desc, len(bits), len(alleles.At(0).Values))
	}
	return Gene{Bits: bits, Alleles: alleles, Description: desc}, nil
}

// IsConstant reports whether the gene has exactly one allele.
func (g Gene) IsConstant() bool {
	return g.Alleles.Len() == 1
}

// Tiles returns the sorted distinct tiles of the gene bits.
func (g Gene) Tiles() []chipdb.Tile {
	tiles := make([]chipdb.Tile, 0, 1)
	for _, b := range g.Bits {
		if !slices.Contains(tiles, b.Tile) {
			tiles = append(tiles, b.Tile)
		}
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)
	return tiles
}

// Equal compares bits, allele values and description.
func (g Gene) Equal(o Gene) bool {
	return slices.Equal(g.Bits, o.Bits) && g.Description == o.Description && allele.Equal(g.Alleles, o.Alleles)
}

func (g Gene) String() string {
	parts := make([]string, len(g.Bits))
	for i, b := range g.Bits {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%s [%s] %d alleles", g.Description, strings.Join(parts, " "), g.Alleles.Len())
}

// Chromosome selects one allele index per gene.
type Chromosome struct {
	ID      int   `json:"id" yaml:"id"`
	Indices []int `json:"indices" yaml:"indices"`
}

// IDGenerator hands out unique chromosome ids. The zero value starts at 0.
type IDGenerator struct {
	next atomic.Int64
}

// NewIDGenerator starts numbering at start.
func NewIDGenerator(start int) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(int64(start))
	return g
}

// Next returns a fresh id. It is safe for concurrent use.
func (g *IDGenerator) Next() int {
	return int(g.next.Add(1) - 1)
}

// NewChromosome builds a chromosome with a fresh id.
func (g *IDGenerator) NewChromosome(indices []int) Chromosome {
	return Chromosome{ID: g.Next(), Indices: slices.Clone(indices)}
}
