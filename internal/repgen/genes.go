package repgen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
)

// CreateGenes synthesizes the genes of all vertices and tile items.
//
// Vertices driven from more than one tile come first, in insertion order.
// Then, per sorted tile, the tile items followed by the vertices driven
// only from that tile, so the genes of a tile are contiguous.
func CreateGenes(g *interrep.Graph, configs map[chipdb.Tile]chipdb.ConfigAssemblage) ([]model.Gene, error) {
	var genes []model.Gene
	single := make(map[chipdb.Tile][]*interrep.Vertex)
	for _, v := range g.Vertices() {
		drivers := v.DriverTiles()
		switch len(drivers) {
		case 0:
			continue
		case 1:
			single[drivers[0]] = append(single[drivers[0]], v)
		default:
			vg, err := g.Genes(v)
			if err != nil {
				return nil, err
			}
			genes = append(genes, vg...)
		}
	}

	tiles := make([]chipdb.Tile, 0, len(configs)+len(single))
	for t := range configs {
		tiles = append(tiles, t)
	}
	for t := range single {
		if _, ok := configs[t]; !ok {
			tiles = append(tiles, t)
		}
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)

	for _, tile := range tiles {
		tg, err := tileItemGenes(tile, configs[tile].Tile)
		if err != nil {
			return nil, err
		}
		genes = append(genes, tg...)
		for _, v := range single[tile] {
			vg, err := g.Genes(v)
			if err != nil {
				return nil, err
			}
			genes = append(genes, vg...)
		}
	}
	return genes, nil
}

// tileItemGenes gives every tile level item all values. CarryInSet has to
// be rewritten into a net beforehand.
func tileItemGenes(tile chipdb.Tile, items []chipdb.ConfigItem) ([]model.Gene, error) {
	genes := make([]model.Gene, 0, len(items))
	for _, it := range items {
		switch it.Kind {
		case chipdb.KindNegClk:
			gene, err := model.NewGene(slices.Clone(it.Bits), allele.NewAll(len(it.Bits)), fmt.Sprintf("tile %s %s", tile, it.Kind))
			if err != nil {
				return nil, err
			}
			genes = append(genes, gene)
		default:
			return nil, fmt.Errorf("%w: unsupported tile item %s in %s", interrep.ErrConfig, it.Kind, tile)
		}
	}
	return genes, nil
}

// expandConstraint replaces a wildcard tile in the bits by every tile it
// stands for. All wildcard bits of one constraint must use the same value.
func expandConstraint(c GeneConstraint, special SpecialMap) ([]GeneConstraint, error) {
	var wildcard *chipdb.Tile
	for _, b := range c.Bits {
		if !b.IsWildcard() {
			continue
		}
		if wildcard != nil && *wildcard != b.Tile {
			return nil, fmt.Errorf("%w: wildcards %s and %s in one gene constraint", ErrInput, *wildcard, b.Tile)
		}
		t := b.Tile
		wildcard = &t
	}
	if wildcard == nil {
		return []GeneConstraint{c}, nil
	}
	tiles, err := TilesFromResourceTile(*wildcard, special)
	if err != nil {
		return nil, err
	}
	out := make([]GeneConstraint, 0, len(tiles))
	for _, t := range tiles {
		bits := make([]chipdb.Bit, len(c.Bits))
		for i, b := range c.Bits {
			if b.IsWildcard() {
				b.Tile = t
			}
			bits[i] = b
		}
		out = append(out, GeneConstraint{Bits: bits, Values: c.Values})
	}
	return out, nil
}

// ApplyGeneConstraints replaces the genes touched by each constraint. A
// constraint touching one gene replaces it in place; one touching several
// genes adds a super gene at the end and removes the originals. It returns
// the new gene list and the number of super genes.
func ApplyGeneConstraints(genes []model.Gene, constraints []GeneConstraint, special SpecialMap) ([]model.Gene, int, error) {
	var expanded []GeneConstraint
	for _, c := range constraints {
		ec, err := expandConstraint(c, special)
		if err != nil {
			return nil, 0, err
		}
		expanded = append(expanded, ec...)
	}

	owner := make(map[chipdb.Bit]int)
	for i, g := range genes {
		for _, b := range g.Bits {
			owner[b] = i
		}
	}

	out := slices.Clone(genes)
	claimed := make(map[chipdb.Bit]int)
	var (
		remove     []int
		superCount int
	)
	for ci, c := range expanded {
		gene, touched, err := constrainGenes(genes, owner, claimed, ci, c)
		if err != nil {
			return nil, 0, err
		}
		if len(touched) == 1 {
			out[touched[0]] = gene
			continue
		}
		out = append(out, gene)
		remove = append(remove, touched...)
		superCount++
	}

	slices.Sort(remove)
	for i := len(remove) - 1; i >= 0; i-- {
		out = slices.Delete(out, remove[i], remove[i]+1)
	}
	return out, superCount, nil
}

func constrainGenes(genes []model.Gene, owner map[chipdb.Bit]int, claimed map[chipdb.Bit]int, ci int, c GeneConstraint) (model.Gene, []int, error) {
	pos := make(map[chipdb.Bit]int, len(c.Bits))
	var touched []int
	for i, b := range c.Bits {
		if prev, ok := claimed[b]; ok {
			return model.Gene{}, nil, fmt.Errorf("%w: bit %s in gene constraints %d and %d", ErrInput, b, prev, ci)
		}
		claimed[b] = ci
		gi, ok := owner[b]
		if !ok {
			return model.Gene{}, nil, fmt.Errorf("%w: bit %s of gene constraint %d belongs to no gene", ErrInput, b, ci)
		}
		pos[b] = i
		if !slices.Contains(touched, gi) {
			touched = append(touched, gi)
		}
	}

	for _, gi := range touched {
		for _, b := range genes[gi].Bits {
			if _, ok := pos[b]; !ok {
				return model.Gene{}, nil, fmt.Errorf("%w: gene constraint %d covers only part of gene %q, %s missing",
					ErrInput, ci, genes[gi].Description, b)
			}
		}
	}

	alleles := make([]allele.Allele, 0, len(c.Values))
	for vi, values := range c.Values {
		if len(values) != len(c.Bits) {
			return model.Gene{}, nil, fmt.Errorf("%w: gene constraint %d value %d has %d entries for %d bits",
				ErrInput, ci, vi, len(values), len(c.Bits))
		}
		if slices.ContainsFunc(alleles, func(a allele.Allele) bool { return slices.Equal(a.Values, values) }) {
			return model.Gene{}, nil, fmt.Errorf("%w: gene constraint %d lists %s twice", ErrInput, ci, allele.FormatValues(values))
		}
		var descs []string
		for _, gi := range touched {
			gene := genes[gi]
			sub := make([]bool, len(gene.Bits))
			for i, b := range gene.Bits {
				sub[i] = values[pos[b]]
			}
			idx, err := gene.Alleles.ValuesIndex(sub)
			if err != nil {
				return model.Gene{}, nil, fmt.Errorf("%w: invalid values %s for gene constraint %d: %w",
					ErrInput, allele.FormatValues(values), ci, err)
			}
			if d := gene.Alleles.At(idx).Description; d != "" {
				descs = append(descs, d)
			}
		}
		alleles = append(alleles, allele.Allele{Values: slices.Clone(values), Description: strings.Join(descs, "; ")})
	}

	var descs []string
	for _, gi := range touched {
		if d := genes[gi].Description; d != "" {
			descs = append(descs, d)
		}
	}
	descs = append(descs, "constraint")

	gene, err := model.NewGene(slices.Clone(c.Bits), allele.NewList(alleles...), strings.Join(descs, "; "))
	if err != nil {
		return model.Gene{}, nil, fmt.Errorf("%w: gene constraint %d: %w", ErrInput, ci, err)
	}
	return gene, touched, nil
}

// SortGenes splits the genes into constant and variable genes. In both
// lists genes spanning several tiles come first, otherwise the order is
// kept. The section lengths are the runs of consecutive variable genes with
// the same tiles.
func SortGenes(genes []model.Gene) (constant, variable []model.Gene, sections []int) {
	constant = []model.Gene{}
	variable = []model.Gene{}
	for _, g := range genes {
		if g.IsConstant() {
			constant = append(constant, g)
		} else {
			variable = append(variable, g)
		}
	}
	multiFirst := func(a, b model.Gene) int {
		am, bm := len(a.Tiles()) > 1, len(b.Tiles()) > 1
		switch {
		case am == bm:
			return 0
		case am:
			return -1
		default:
			return 1
		}
	}
	slices.SortStableFunc(constant, multiFirst)
	slices.SortStableFunc(variable, multiFirst)

	sections = []int{}
	var prev []chipdb.Tile
	for i, g := range variable {
		tiles := g.Tiles()
		if i > 0 && slices.Equal(prev, tiles) {
			sections[len(sections)-1]++
		} else {
			sections = append(sections, 1)
		}
		prev = tiles
	}
	return constant, variable, sections
}
