package interrep

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// Separator splits the kind prefix from the resource name in a designator name.
const Separator = "#"

const (
	netPrefix = "NET" + Separator
	lutPrefix = "LUT" + Separator
)

// VertexDesig names a vertex within one tile, e.g. (4, 2) NET#lutff_0/out.
type VertexDesig struct {
	Tile chipdb.Tile
	Name string
}

// CanonicalNetName prefixes a net name, "out" becomes "NET#out".
func CanonicalNetName(name string) string {
	return netPrefix + name
}

// CanonicalLUTName names LUT i, "LUT#i".
func CanonicalLUTName(i int) string {
	return lutPrefix + strconv.Itoa(i)
}

func NetDesig(tile chipdb.Tile, name string) VertexDesig {
	return VertexDesig{Tile: tile, Name: CanonicalNetName(name)}
}

func LUTDesig(tile chipdb.Tile, index int) VertexDesig {
	return VertexDesig{Tile: tile, Name: CanonicalLUTName(index)}
}

func SegEntryDesig(e chipdb.SegEntry) VertexDesig {
	return NetDesig(e.Tile(), e.Name)
}

// IsNet reports whether the designator names a net.
func (d VertexDesig) IsNet() bool {
	return strings.HasPrefix(d.Name, netPrefix)
}

// NetName strips the kind prefix of a net designator.
func (d VertexDesig) NetName() string {
	return strings.TrimPrefix(d.Name, netPrefix)
}

func (d VertexDesig) Compare(o VertexDesig) int {
	if c := d.Tile.Compare(o.Tile); c != 0 {
		return c
	}
	return cmp.Compare(d.Name, o.Name)
}

func (d VertexDesig) String() string {
	return fmt.Sprintf("%s %s", d.Tile, d.Name)
}

// EdgeDesig names an edge. Source and destination lie in the same tile.
type EdgeDesig struct {
	Src VertexDesig
	Dst VertexDesig
}

// NetToNet is a shorthand for an edge between two nets of a tile.
func NetToNet(tile chipdb.Tile, src, dst string) EdgeDesig {
	return EdgeDesig{Src: NetDesig(tile, src), Dst: NetDesig(tile, dst)}
}

func NetToLUT(tile chipdb.Tile, src string, dst int) EdgeDesig {
	return EdgeDesig{Src: NetDesig(tile, src), Dst: LUTDesig(tile, dst)}
}

func LUTToNet(tile chipdb.Tile, src int, dst string) EdgeDesig {
	return EdgeDesig{Src: LUTDesig(tile, src), Dst: NetDesig(tile, dst)}
}

func (d EdgeDesig) Tile() chipdb.Tile {
	return d.Dst.Tile
}

func (d EdgeDesig) Compare(o EdgeDesig) int {
	if c := d.Src.Compare(o.Src); c != 0 {
		return c
	}
	return d.Dst.Compare(o.Dst)
}

func (d EdgeDesig) String() string {
	return fmt.Sprintf("%s %s -> %s", d.Dst.Tile, d.Src.Name, d.Dst.Name)
}

func (d EdgeDesig) validate() error {
	if d.Src.Tile != d.Dst.Tile {
		return fmt.Errorf("%w: edge %s -> %s spans tiles", ErrConfig, d.Src, d.Dst)
	}
	return nil
}
