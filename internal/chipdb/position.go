package chipdb

import (
	"cmp"
	"fmt"
)

// Wildcard coordinates usable in resource rules and gene constraints.
// A tile with both coordinates set to the same wildcard expands to a set of tiles.
const (
	TileAll      = -1
	TileAllLogic = -2
)

// Tile identifies one fabric tile.
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (t Tile) String() string {
	return fmt.Sprintf("(%d, %d)", t.X, t.Y)
}

// Compare orders tiles lexicographically by x, then y.
func (t Tile) Compare(o Tile) int {
	if c := cmp.Compare(t.X, o.X); c != 0 {
		return c
	}
	return cmp.Compare(t.Y, o.Y)
}

func (t Tile) Less(o Tile) bool {
	return t.Compare(o) < 0
}

// IsWildcard reports whether any coordinate is a wildcard value.
func (t Tile) IsWildcard() bool {
	return t.X < 0 || t.Y < 0
}

// TilesFromRectangle lists all tiles of the closed rectangle, x major.
func TilesFromRectangle(xMin, yMin, xMax, yMax int) []Tile {
	var tiles []Tile
	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			tiles = append(tiles, Tile{X: x, Y: y})
		}
	}
	return tiles
}

// Bit identifies one configuration bit of a tile.
type Bit struct {
	Tile
	Group int `json:"group" yaml:"group"`
	Index int `json:"index" yaml:"index"`
}

// NewBit is a shorthand for building a bit from raw coordinates.
func NewBit(x, y, group, index int) Bit {
	return Bit{Tile: Tile{X: x, Y: y}, Group: group, Index: index}
}

func (b Bit) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", b.X, b.Y, b.Group, b.Index)
}

func (b Bit) Compare(o Bit) int {
	if c := b.Tile.Compare(o.Tile); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Group, o.Group); c != 0 {
		return c
	}
	return cmp.Compare(b.Index, o.Index)
}

func (b Bit) Less(o Bit) bool {
	return b.Compare(o) < 0
}

// BitsFromRaw places raw (group, index) pairs on a tile.
func BitsFromRaw(tile Tile, raw []RawBit) []Bit {
	bits := make([]Bit, len(raw))
	for i, r := range raw {
		bits[i] = Bit{Tile: tile, Group: r[0], Index: r[1]}
	}
	return bits
}

// LUTPosition addresses one LUT (and its flip flop) inside a tile.
type LUTPosition struct {
	Tile
	Z int `json:"z" yaml:"z"`
}

func (p LUTPosition) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

func (p LUTPosition) Compare(o LUTPosition) int {
	if c := p.Tile.Compare(o.Tile); c != 0 {
		return c
	}
	return cmp.Compare(p.Z, o.Z)
}

// ColBufCtrl addresses the column buffer control of global network Z in a tile.
type ColBufCtrl LUTPosition

func (c ColBufCtrl) String() string {
	return LUTPosition(c).String()
}

func (c ColBufCtrl) Compare(o ColBufCtrl) int {
	return LUTPosition(c).Compare(LUTPosition(o))
}

// TileType classifies tiles of the chip.
type TileType int

const (
	TileUnknown TileType = iota
	TileLogic
	TileIO
	TileRAMBottom
	TileRAMTop
)

func (t TileType) String() string {
	switch t {
	case TileLogic:
		return "logic"
	case TileIO:
		return "io"
	case TileRAMBottom:
		return "ramb"
	case TileRAMTop:
		return "ramt"
	default:
		return "unknown"
	}
}
