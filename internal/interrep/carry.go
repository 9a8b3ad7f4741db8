package interrep

import (
	"fmt"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// CarryInSetNet rewrites the CarryInSet tile item of every tile into a
// connection item that selects carry_one_in as source of carry_in_mux. The
// unconnected option is left to Build. The
// carry_one_in net and, if missing, the carry_in_mux net are appended to
// the returned nets. configs is modified in place.
func CarryInSetNet(configs map[chipdb.Tile]chipdb.ConfigAssemblage, nets []chipdb.NetData) ([]chipdb.NetData, error) {
	present := make(map[VertexDesig]bool)
	for _, n := range nets {
		for _, e := range n.Segment {
			present[SegEntryDesig(e)] = true
		}
	}

	tiles := make([]chipdb.Tile, 0, len(configs))
	for t := range configs {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)

	out := slices.Clone(nets)
	for _, tile := range tiles {
		assem := configs[tile]
		var (
			carrySet []chipdb.ConfigItem
			others   []chipdb.ConfigItem
		)
		for _, it := range assem.Tile {
			if it.Kind == chipdb.KindCarryInSet {
				carrySet = append(carrySet, it)
			} else {
				others = append(others, it)
			}
		}
		switch len(carrySet) {
		case 0:
			continue
		case 1:
		default:
			return nil, fmt.Errorf("%w: %d CarryInSet items in tile %s", ErrConfig, len(carrySet), tile)
		}

		item := carrySet[0]
		if len(item.Bits) != 1 {
			return nil, fmt.Errorf("%w: CarryInSet of tile %s has %d bits", ErrConfig, tile, len(item.Bits))
		}
		assem = assem.Clone()
		assem.Tile = others
		assem.Connection = append(assem.Connection, chipdb.ConnectionItem{
			ConfigItem: chipdb.ConfigItem{Bits: slices.Clone(item.Bits), Kind: "connection"},
			DstNet:     chipdb.CarryInMux,
			Values:     [][]bool{{true}},
			SrcNets:    []string{chipdb.CarryOneIn},
		})
		configs[tile] = assem

		out = append(out, chipdb.NewNetData(chipdb.Segment{{X: tile.X, Y: tile.Y, Name: chipdb.CarryOneIn}}, true, 0))
		if !present[NetDesig(tile, chipdb.CarryInMux)] {
			out = append(out, chipdb.NewNetData(chipdb.Segment{{X: tile.X, Y: tile.Y, Name: chipdb.CarryInMux}}, false, 0))
		}
	}
	return out, nil
}
