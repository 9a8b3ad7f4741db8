package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

// Tables is a normalized relational view of a representation.
type Tables struct {
	Genes      []GeneRow       `json:"genes"`
	GeneBits   []GeneBitRow    `json:"gene_bits"`
	Constants  []ConstantRow   `json:"constants"`
	ColBufCtrl []ColBufCtrlRow `json:"colbufctrl"`
	Carry      []CarryRow      `json:"carry"`
	Outputs    []OutputRow     `json:"outputs"`
}

// GeneRow describes one gene. Index is the position in the chromosome for
// variable genes and in the constant list otherwise. X and Y are the
// smallest tile of the gene.
type GeneRow struct {
	Index       int    `json:"index"`
	Constant    bool   `json:"constant"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	BitCount    int    `json:"bit_count"`
	AlleleCount int    `json:"allele_count"`
	TileCount   int    `json:"tile_count"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Section     int    `json:"section"`
}

type GeneBitRow struct {
	Gene        int    `json:"gene"`
	Constant    bool   `json:"constant"`
	Description string `json:"description"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Group       int    `json:"group"`
	Index       int    `json:"index"`
}

// ConstantRow is a bit value written by every prepared configuration.
type ConstantRow struct {
	Description string `json:"description"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Group       int    `json:"group"`
	Index       int    `json:"index"`
	Value       bool   `json:"value"`
}

// ColBufCtrlRow is one bit of an enabled column buffer control.
type ColBufCtrlRow struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Z     int `json:"z"`
	Group int `json:"group"`
	Index int `json:"index"`
}

type CarryRow struct {
	X           int `json:"x"`
	Y           int `json:"y"`
	LUT         int `json:"lut"`
	EnableGroup int `json:"enable_group"`
	EnableIndex int `json:"enable_index"`
	Uses        int `json:"uses"`
}

type OutputRow struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// BuildTables converts a representation into the relational model.
func BuildTables(rep *representation.Representation) Tables {
	tables := emptyTables()

	section, left := 0, 0
	if len(rep.SectionLengths) > 0 {
		left = rep.SectionLengths[0]
	}
	for i, g := range rep.Genes {
		for left == 0 && section+1 < len(rep.SectionLengths) {
			section++
			left = rep.SectionLengths[section]
		}
		left--
		addGene(&tables, i, false, section, g)
	}

	for i, g := range rep.Constant {
		addGene(&tables, i, true, -1, g)
		if g.Alleles.Len() == 0 {
			continue
		}
		values := g.Alleles.At(0).Values
		for j, b := range g.Bits {
			tables.Constants = append(tables.Constants, ConstantRow{
				Description: g.Description,
				X:           b.X,
				Y:           b.Y,
				Group:       b.Group,
				Index:       b.Index,
				Value:       values[j],
			})
		}
	}

	for _, item := range rep.ColBufCtrlItems {
		for _, b := range item.Bits {
			tables.ColBufCtrl = append(tables.ColBufCtrl, ColBufCtrlRow{
				X:     b.X,
				Y:     b.Y,
				Z:     item.Index,
				Group: b.Group,
				Index: b.Index,
			})
		}
	}

	for tile, luts := range rep.Carry {
		for _, cd := range luts {
			row := CarryRow{X: tile.X, Y: tile.Y, LUT: cd.LUTIndex, Uses: len(cd.CarryUse)}
			if len(cd.CarryEnable) > 0 {
				row.EnableGroup = cd.CarryEnable[0].Group
				row.EnableIndex = cd.CarryEnable[0].Index
			}
			tables.Carry = append(tables.Carry, row)
		}
	}

	for _, o := range rep.Output {
		tables.Outputs = append(tables.Outputs, OutputRow{X: o.X, Y: o.Y, Z: o.Z})
	}

	sort.Slice(tables.Constants, func(i, j int) bool {
		return bitLess(tables.Constants[i].X, tables.Constants[i].Y, tables.Constants[i].Group, tables.Constants[i].Index,
			tables.Constants[j].X, tables.Constants[j].Y, tables.Constants[j].Group, tables.Constants[j].Index)
	})
	sort.Slice(tables.Carry, func(i, j int) bool {
		a, b := tables.Carry[i], tables.Carry[j]
		return bitLess(a.X, a.Y, a.LUT, 0, b.X, b.Y, b.LUT, 0)
	})

	return tables
}

func addGene(tables *Tables, index int, constant bool, section int, g model.Gene) {
	tiles := g.Tiles()
	row := GeneRow{
		Index:       index,
		Constant:    constant,
		Description: g.Description,
		Kind:        g.Alleles.Spec().Kind,
		BitCount:    len(g.Bits),
		AlleleCount: g.Alleles.Len(),
		TileCount:   len(tiles),
		Section:     section,
	}
	if len(tiles) > 0 {
		row.X, row.Y = tiles[0].X, tiles[0].Y
	}
	tables.Genes = append(tables.Genes, row)

	for _, b := range g.Bits {
		tables.GeneBits = append(tables.GeneBits, GeneBitRow{
			Gene:        index,
			Constant:    constant,
			Description: g.Description,
			X:           b.X,
			Y:           b.Y,
			Group:       b.Group,
			Index:       b.Index,
		})
	}
}

func bitLess(ax, ay, ag, ai, bx, by, bg, bi int) bool {
	return chipdb.NewBit(ax, ay, ag, ai).Less(chipdb.NewBit(bx, by, bg, bi))
}
