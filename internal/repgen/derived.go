package repgen

import (
	"fmt"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

// globalNetVertices returns the distinct available vertices of global
// network i.
func globalNetVertices(g *interrep.Graph, i int) []*interrep.Vertex {
	name := interrep.CanonicalNetName(fmt.Sprintf("%s%d", chipdb.GlobalNetPrefix, i))
	var out []*interrep.Vertex
	for _, v := range g.Vertices() {
		if v.Kind != interrep.KindCon || !v.Available || slices.Contains(out, v) {
			continue
		}
		if slices.ContainsFunc(v.Desigs, func(d interrep.VertexDesig) bool { return d.Name == name }) {
			out = append(out, v)
		}
	}
	return out
}

// ColBufCtrlCoordinates returns the column buffer controls that have to be
// enabled for the global networks reaching available resources. Global
// networks without a vertex are skipped.
func ColBufCtrlCoordinates(g *interrep.Graph, db chipdb.Database) ([]chipdb.ColBufCtrl, error) {
	var out []chipdb.ColBufCtrl
	for i := 0; i < chipdb.GlobalNetCount; i++ {
		var tiles []chipdb.Tile
		for _, v := range globalNetVertices(g, i) {
			for _, e := range g.OutEdges(v) {
				if !e.Available || !g.Dst(e).Available {
					continue
				}
				if t := e.Desig.Tile(); !slices.Contains(tiles, t) {
					tiles = append(tiles, t)
				}
			}
		}
		if len(tiles) == 0 {
			continue
		}
		cbcTiles, err := db.ColBufCtrlTiles(tiles)
		if err != nil {
			return nil, fmt.Errorf("global network %d: %w", i, err)
		}
		for _, t := range cbcTiles {
			out = append(out, chipdb.ColBufCtrl{Tile: t, Z: i})
		}
	}
	slices.SortFunc(out, chipdb.ColBufCtrl.Compare)
	return slices.Compact(out), nil
}

// CarryData collects the carry enable bits of every LUT and the connection
// patterns through which the carry output of the LUT is consumed.
func CarryData(g *interrep.Graph) (map[chipdb.Tile][]representation.CarryData, error) {
	out := make(map[chipdb.Tile][]representation.CarryData)
	for _, v := range g.LUTVertices() {
		if len(v.LUT.CarryEnable) == 0 {
			continue
		}
		tile := v.Desig().Tile
		cd := representation.CarryData{
			LUTIndex:    v.LUT.Index,
			CarryEnable: slices.Clone(v.LUT.CarryEnable),
		}
		cout, err := g.Vertex(interrep.NetDesig(tile, fmt.Sprintf("lutff_%d/cout", v.LUT.Index)))
		if err == nil {
			for _, e := range g.OutEdges(cout) {
				dst := g.Dst(e)
				if dst.Kind != interrep.KindCon {
					continue
				}
				pc, err := dst.EdgeConfig(g, e.Desig)
				if err != nil {
					return nil, fmt.Errorf("carry use of %s: %w", v.Desig(), err)
				}
				if len(pc.Bits) == 0 {
					continue
				}
				cd.CarryUse = append(cd.CarryUse, pc)
			}
		}
		out[tile] = append(out[tile], cd)
	}
	for _, luts := range out {
		slices.SortFunc(luts, func(a, b representation.CarryData) int { return a.LUTIndex - b.LUTIndex })
	}
	return out, nil
}
