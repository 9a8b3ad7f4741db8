// Package interreptest provides a small hand written chip excerpt for tests.
//
// Nets and connections:
//
//	left, wire_out -> internal
//	wire_out -> internal_2
//	out -> wire_in_2
//	short_span_1 <-> short_span_2
//	out -> short_span_2
//	long_span_4 -> long_span_3 -> long_span_2 -> long_span_1
//	out, long_span_1 -> long_span_4
//
// None of the connection items lists the unconnected source; it is added by
// the graph build.
package interreptest

import (
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// Bits places raw (group, index) pairs on tile (x, y).
func Bits(x, y int, raw ...[2]int) []chipdb.Bit {
	bits := make([]chipdb.Bit, len(raw))
	for i, r := range raw {
		bits[i] = chipdb.NewBit(x, y, r[0], r[1])
	}
	return bits
}

func seg(entries ...chipdb.SegEntry) chipdb.Segment {
	return chipdb.Segment(entries)
}

func e(x, y int, name string) chipdb.SegEntry {
	return chipdb.SegEntry{X: x, Y: y, Name: name}
}

// NetData returns the nets of the excerpt.
func NetData() []chipdb.NetData {
	return []chipdb.NetData{
		chipdb.NewNetData(seg(e(2, 3, "internal")), false, 0),
		chipdb.NewNetData(seg(e(2, 3, "internal_2")), false, 0),
		chipdb.NewNetData(seg(e(2, 3, "lut_out")), true, 0),
		chipdb.NewNetData(seg(e(0, 3, "right"), e(1, 3, "out"), e(2, 3, "left")), true, 1),
		chipdb.NewNetData(seg(e(0, 3, "wire_in_1"), e(1, 3, "wire_in_2"), e(2, 3, "wire_out")), false, 0, 1),
		chipdb.NewNetData(seg(e(2, 3, "empty_out")), false),
		chipdb.NewNetData(seg(e(4, 2, "short_span_1"), e(4, 3, "short_span_1")), false, 0, 1),
		chipdb.NewNetData(seg(e(4, 1, "short_span_2"), e(4, 2, "short_span_2")), false, 0, 1),
		chipdb.NewNetData(seg(e(4, 2, "out")), true, 0),
		chipdb.NewNetData(seg(e(5, 0, "long_span_1"), e(5, 3, "long_span_1")), false, 0, 1),
		chipdb.NewNetData(seg(e(5, 3, "long_span_2"), e(8, 3, "long_span_2")), false, 0, 1),
		chipdb.NewNetData(seg(e(8, 0, "long_span_3"), e(8, 3, "long_span_3")), false, 0, 1),
		chipdb.NewNetData(seg(e(5, 0, "long_span_4"), e(7, 0, "long_span_4"), e(8, 0, "long_span_4")), false, 0, 1, 2),
		chipdb.NewNetData(seg(e(7, 0, "out")), true, 0),
	}
}

// FirstEntries returns the first segment entry of every net of NetData.
func FirstEntries() []chipdb.SegEntry {
	nets := NetData()
	out := make([]chipdb.SegEntry, len(nets))
	for i, n := range nets {
		out[i] = n.Segment[0]
	}
	return out
}

// UnconnectedTiles are the tiles that get an unconnected net from ConData.
var UnconnectedTiles = []chipdb.Tile{{X: 1, Y: 3}, {X: 2, Y: 3}, {X: 4, Y: 2}, {X: 5, Y: 0}, {X: 5, Y: 3}, {X: 7, Y: 0}, {X: 8, Y: 0}, {X: 8, Y: 3}}

func con(bits []chipdb.Bit, dst string, values [][]bool, srcs ...string) chipdb.ConnectionItem {
	return chipdb.ConnectionItem{
		ConfigItem: chipdb.ConfigItem{Bits: bits, Kind: "connection"},
		DstNet:     dst,
		Values:     values,
		SrcNets:    srcs,
	}
}

// ConData returns the connection items of the excerpt.
func ConData() []chipdb.ConnectionItem {
	return []chipdb.ConnectionItem{
		con(Bits(2, 3, [2]int{7, 0}, [2]int{7, 1}), "internal", [][]bool{{true, false}, {true, true}}, "left", "wire_out"),
		con(Bits(2, 3, [2]int{7, 2}, [2]int{7, 3}), "internal_2", [][]bool{{true, true}}, "wire_out"),
		con(Bits(1, 3, [2]int{6, 10}, [2]int{6, 11}), "wire_in_2", [][]bool{{true, false}}, "out"),
		con(Bits(4, 2, [2]int{11, 30}), "short_span_1", [][]bool{{true}}, "short_span_2"),
		con(Bits(4, 2, [2]int{2, 0}, [2]int{2, 1}), "short_span_2", [][]bool{{false, true}, {true, false}}, "short_span_1", "out"),
		con(Bits(5, 3, [2]int{5, 1}), "long_span_1", [][]bool{{true}}, "long_span_2"),
		con(Bits(8, 3, [2]int{5, 1}), "long_span_2", [][]bool{{true}}, "long_span_3"),
		con(Bits(8, 0, [2]int{5, 1}), "long_span_3", [][]bool{{true}}, "long_span_4"),
		con(Bits(5, 0, [2]int{5, 1}), "long_span_4", [][]bool{{true}}, "long_span_1"),
		con(Bits(7, 0, [2]int{5, 3}), "long_span_4", [][]bool{{true}}, "out"),
	}
}

// LUTData returns the config items of the single LUT of tile (2, 3). It has
// two inputs, internal and internal_2, and drives lut_out.
func LUTData() [][]chipdb.IndexedItem {
	item := func(kind string, raw ...[2]int) chipdb.IndexedItem {
		return chipdb.IndexedItem{ConfigItem: chipdb.ConfigItem{Bits: Bits(2, 3, raw...), Kind: kind}, Index: 0}
	}
	return [][]chipdb.IndexedItem{{
		item(chipdb.KindCarryEnable, [2]int{14, 44}),
		item(chipdb.KindDffEnable, [2]int{14, 45}),
		item(chipdb.KindSetNoReset, [2]int{15, 44}),
		item(chipdb.KindAsyncSetReset, [2]int{15, 45}),
		item(chipdb.KindTruthTable, [2]int{14, 40}, [2]int{15, 40}, [2]int{15, 41}, [2]int{14, 41}),
	}}
}

func LUTIO() []chipdb.LUTIO {
	return []chipdb.LUTIO{{In: []string{"internal", "internal_2"}, Out: []string{"lut_out"}}}
}

// ConConfig groups ConData by tile.
func ConConfig() map[chipdb.Tile]chipdb.ConfigAssemblage {
	configs := make(map[chipdb.Tile]chipdb.ConfigAssemblage)
	for _, c := range ConData() {
		t := c.Bits[0].Tile
		a := configs[t]
		a.Connection = append(a.Connection, c)
		configs[t] = a
	}
	return configs
}

// FullConfig is ConConfig plus the LUT of tile (2, 3).
func FullConfig() map[chipdb.Tile]chipdb.ConfigAssemblage {
	configs := ConConfig()
	t := chipdb.Tile{X: 2, Y: 3}
	a := configs[t]
	a.LUT = LUTData()
	a.LUTIO = LUTIO()
	configs[t] = a
	return configs
}

// AllTiles returns the sorted tiles of all segment entries.
func AllTiles() []chipdb.Tile {
	seen := make(map[chipdb.Tile]bool)
	var tiles []chipdb.Tile
	for _, n := range NetData() {
		for _, s := range n.Segment {
			if !seen[s.Tile()] {
				seen[s.Tile()] = true
				tiles = append(tiles, s.Tile())
			}
		}
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)
	return tiles
}
