package interrep

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
)

// Genes synthesizes the genes of a vertex. Unavailable vertices, vertices
// without bits and vertices without drivers yield no genes. Unused and
// externally sourced vertices yield constant genes with the neutral value.
func (g *Graph) Genes(v *Vertex) ([]model.Gene, error) {
	if !v.Available || v.BitCount() == 0 || len(v.DriverTiles()) == 0 {
		return nil, nil
	}
	switch v.Kind {
	case KindLUT:
		return g.lutGenes(v)
	default:
		return g.conGenes(v)
	}
}

func baseDescription(v *Vertex) string {
	desc := v.Desig().String()
	switch {
	case !v.Used:
		desc += " unused"
	case v.ExtSrc:
		desc += " external source"
	}
	return desc
}

// NeutralAlleles returns one single allele sequence per bit tuple holding
// the value that leaves the resource inactive.
func (g *Graph) NeutralAlleles(v *Vertex) ([]allele.Sequence, error) {
	if v.Kind == KindLUT {
		groups := v.LUT.Bits.Groups()
		out := make([]allele.Sequence, len(groups))
		for i, bits := range groups {
			out[i] = allele.NewList(allele.Allele{Values: make([]bool, len(bits)), Description: "neutral"})
		}
		return out, nil
	}
	var values []bool
	for _, sg := range v.SrcGroups {
		vals, ok := sg.Values(EdgeDesig{Src: NetDesig(sg.Dst.Tile, chipdb.UnconnectedName), Dst: sg.Dst})
		if !ok {
			return nil, fmt.Errorf("%w: neutral allele of %s", ErrSatisfiability, v.Desig())
		}
		values = append(values, vals...)
	}
	return []allele.Sequence{allele.NewList(allele.Allele{Values: values, Description: "neutral"})}, nil
}

func (g *Graph) conGenes(v *Vertex) ([]model.Gene, error) {
	bits := v.BitTuples()[0]
	desc := baseDescription(v)

	if !v.Used || v.ExtSrc {
		neutral, err := g.NeutralAlleles(v)
		if err != nil {
			return nil, err
		}
		return []model.Gene{{Bits: bits, Alleles: neutral[0], Description: desc}}, nil
	}

	edges := make(map[EdgeDesig]*Edge, len(v.in))
	for _, e := range g.InEdges(v) {
		edges[e.Desig] = e
	}
	edgeOf := func(d EdgeDesig) (*Edge, error) {
		e, ok := edges[d]
		if !ok {
			return nil, fmt.Errorf("%w: in edge %s of %s", ErrNotFound, d, v.Desig())
		}
		return e, nil
	}

	type option struct {
		edge   *Edge
		values []bool
	}
	var (
		options     = make([][]option, len(v.SrcGroups))
		unconVals   = make([][]bool, len(v.SrcGroups))
		unconEdges  = make([]*Edge, len(v.SrcGroups))
		missingUnco []int
	)
	for i, sg := range v.SrcGroups {
		sorted := slices.Clone(sg.Options)
		slices.SortStableFunc(sorted, func(a, b SourceOption) int {
			return allele.CompareValues(a.Values, b.Values)
		})
		for _, o := range sorted {
			e, err := edgeOf(o.Edge)
			if err != nil {
				return nil, err
			}
			if o.Edge.Src.NetName() == chipdb.UnconnectedName {
				unconVals[i] = o.Values
				unconEdges[i] = e
				continue
			}
			options[i] = append(options[i], option{edge: e, values: o.Values})
		}
		if unconEdges[i] == nil {
			missingUnco = append(missingUnco, i)
		}
	}
	if len(missingUnco) > 0 {
		return nil, fmt.Errorf("%w: %s has %d source groups that have to be connected at the same time",
			ErrSatisfiability, v.Desig(), len(missingUnco))
	}

	var alleles []allele.Allele
	allUncon := true
	for _, e := range unconEdges {
		if !g.Usable(e) {
			allUncon = false
			break
		}
	}
	if allUncon {
		alleles = append(alleles, allele.Allele{Values: slices.Concat(unconVals...), Description: "unconnected"})
	}

	// later groups first, this keeps the values closer to sorted order
	for i := len(options) - 1; i >= 0; i-- {
		for _, o := range options[i] {
			if !g.Usable(o.edge) {
				continue
			}
			values := make([]bool, 0, len(bits))
			for j := range options {
				if j == i {
					values = append(values, o.values...)
				} else {
					values = append(values, unconVals[j]...)
				}
			}
			alleles = append(alleles, allele.Allele{Values: values, Description: o.edge.Desig.Src.Name})
		}
	}

	if len(alleles) == 0 {
		return nil, fmt.Errorf("%w: no usable source for %s", ErrNoAlleles, v.Desig())
	}
	return []model.Gene{{Bits: bits, Alleles: allele.NewList(alleles...), Description: desc}}, nil
}

func (g *Graph) lutGenes(v *Vertex) ([]model.Gene, error) {
	desc := baseDescription(v)
	groups := v.LUT.Bits.Groups()

	var seqs []allele.Sequence
	if !v.Used || v.ExtSrc {
		neutral, err := g.NeutralAlleles(v)
		if err != nil {
			return nil, err
		}
		seqs = neutral
	} else {
		tt, err := g.truthTableAlleles(v)
		if err != nil {
			return nil, err
		}
		seqs = []allele.Sequence{
			allele.NewAll(len(v.LUT.Bits.DffEnable)),
			allele.NewAll(len(v.LUT.Bits.SetNoReset)),
			allele.NewAll(len(v.LUT.Bits.AsyncSetReset)),
			tt,
		}
	}

	genes := make([]model.Gene, len(groups))
	for i, bits := range groups {
		genes[i] = model.Gene{
			Bits:        bits,
			Alleles:     seqs[i],
			Description: fmt.Sprintf("%s %s", desc, LUTBitNames[i]),
		}
	}
	return genes, nil
}

func (g *Graph) truthTableAlleles(v *Vertex) (allele.Sequence, error) {
	in := g.InEdges(v)
	var used, unused []int
	for i, e := range in {
		if g.Usable(e) {
			used = append(used, i)
		} else {
			unused = append(unused, i)
		}
	}

	if len(v.LUT.Functions) == 0 {
		return allele.NewPow(len(in), unused)
	}

	var (
		values [][]bool
		names  [][]string
	)
	for _, f := range v.LUT.Functions {
		tt, err := f.TruthTable(len(in), used)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Desig(), err)
		}
		idx := slices.IndexFunc(values, func(o []bool) bool { return slices.Equal(o, tt) })
		if idx >= 0 {
			names[idx] = append(names[idx], f.String())
			continue
		}
		values = append(values, tt)
		names = append(names, []string{f.String()})
	}

	alleles := make([]allele.Allele, len(values))
	for i := range values {
		alleles[i] = allele.Allele{Values: values[i], Description: strings.Join(names[i], ", ")}
	}
	slices.SortStableFunc(alleles, func(a, b allele.Allele) int {
		return allele.CompareValues(a.Values, b.Values)
	})
	return allele.NewList(alleles...), nil
}
