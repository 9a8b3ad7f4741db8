package interrep

import (
	"fmt"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

type (
	VertexID int
	EdgeID   int
)

// VertexKind tells nets and LUTs apart.
type VertexKind int

const (
	KindCon VertexKind = iota
	KindLUT
)

func (k VertexKind) String() string {
	switch k {
	case KindCon:
		return "con"
	case KindLUT:
		return "lut"
	default:
		return fmt.Sprintf("VertexKind(%d)", int(k))
	}
}

// Edge is a potential signal path.
type Edge struct {
	ID        EdgeID
	Desig     EdgeDesig
	Available bool
	Used      bool

	src VertexID
	dst VertexID
}

// SourceOption is one selectable source of a source group.
type SourceOption struct {
	Edge   EdgeDesig
	Values []bool
}

// SourceGroup is a group of bits selecting the driver of a net. The all
// false pattern belongs to the unconnected source.
type SourceGroup struct {
	Bits    []chipdb.Bit
	Dst     VertexDesig
	Options []SourceOption
}

// Values returns the pattern selecting the edge.
func (s SourceGroup) Values(edge EdgeDesig) ([]bool, bool) {
	for _, o := range s.Options {
		if o.Edge == edge {
			return o.Values, true
		}
	}
	return nil, false
}

// LUTBits are the bit groups of a LUT that are turned into genes.
type LUTBits struct {
	DffEnable     []chipdb.Bit
	SetNoReset    []chipdb.Bit
	AsyncSetReset []chipdb.Bit
	TruthTable    []chipdb.Bit
}

// LUTBitNames are the kinds of the LUT bit groups in gene order.
var LUTBitNames = []string{chipdb.KindDffEnable, chipdb.KindSetNoReset, chipdb.KindAsyncSetReset, chipdb.KindTruthTable}

// Groups returns the bit groups in LUTBitNames order.
func (b LUTBits) Groups() [][]chipdb.Bit {
	return [][]chipdb.Bit{b.DffEnable, b.SetNoReset, b.AsyncSetReset, b.TruthTable}
}

// LUTData is the payload of a LUT vertex.
type LUTData struct {
	Index int
	Bits  LUTBits
	// CarryEnable is set from the decoded configuration, not by genes.
	CarryEnable []chipdb.Bit
	Functions   []LUTFunction
}

// Vertex is a net (KindCon) or a LUT (KindLUT).
type Vertex struct {
	ID     VertexID
	Kind   VertexKind
	Desigs []VertexDesig
	// Configurable is false for hard driven nets. A configurable vertex may
	// still have no bits, e.g. if its driver lies outside the loaded tiles.
	Configurable bool
	Drivers      []int

	Available bool
	Used      bool
	ExtSrc    bool

	// SrcGroups is only set for nets.
	SrcGroups []SourceGroup
	// LUT is only set for LUTs.
	LUT *LUTData

	in  []EdgeID
	out []EdgeID
}

// Desig returns the first designator.
func (v *Vertex) Desig() VertexDesig {
	return v.Desigs[0]
}

// DriverTiles returns the sorted distinct tiles of the driver entries.
func (v *Vertex) DriverTiles() []chipdb.Tile {
	var tiles []chipdb.Tile
	for _, i := range v.Drivers {
		t := v.Desigs[i].Tile
		if !slices.Contains(tiles, t) {
			tiles = append(tiles, t)
		}
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)
	return tiles
}

// Tiles returns the distinct tiles of all designators in designator order.
func (v *Vertex) Tiles() []chipdb.Tile {
	var tiles []chipdb.Tile
	for _, d := range v.Desigs {
		if !slices.Contains(tiles, d.Tile) {
			tiles = append(tiles, d.Tile)
		}
	}
	return tiles
}

// BitTuples returns the bit groups that form the genes of the vertex.
func (v *Vertex) BitTuples() [][]chipdb.Bit {
	switch v.Kind {
	case KindLUT:
		return v.LUT.Bits.Groups()
	default:
		if len(v.SrcGroups) == 0 {
			return nil
		}
		var bits []chipdb.Bit
		for _, sg := range v.SrcGroups {
			bits = append(bits, sg.Bits...)
		}
		return [][]chipdb.Bit{bits}
	}
}

// BitCount is the number of configuration bits owned by the vertex.
func (v *Vertex) BitCount() int {
	n := 0
	for _, bits := range v.BitTuples() {
		n += len(bits)
	}
	return n
}

// PartConf is a set of bits with the values they need for some purpose.
type PartConf struct {
	Bits   []chipdb.Bit `json:"bits" yaml:"bits"`
	Values []bool       `json:"values" yaml:"values"`
}

// Matches reports whether the configuration read back for the bits equals
// the values.
func (p PartConf) Matches(values []bool) bool {
	return slices.Equal(p.Values, values)
}

// EdgeConfig returns the bits and values that make edge the active source
// of the net. For hard wired nets the result is empty. Bits of other source
// groups that must stay unconnected are not included.
func (v *Vertex) EdgeConfig(g *Graph, edge EdgeDesig) (PartConf, error) {
	if v.Kind != KindCon {
		return PartConf{}, fmt.Errorf("%w: edge config of LUT %s", ErrConfig, v.Desig())
	}
	if v.Configurable {
		for _, sg := range v.SrcGroups {
			if vals, ok := sg.Values(edge); ok {
				return PartConf{Bits: slices.Clone(sg.Bits), Values: slices.Clone(vals)}, nil
			}
		}
	} else {
		for _, e := range g.InEdges(v) {
			if e.Desig == edge {
				return PartConf{}, nil
			}
		}
	}
	return PartConf{}, fmt.Errorf("%w: edge %s in %s", ErrNotFound, edge, v.Desig())
}
