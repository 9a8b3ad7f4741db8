package repgen

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
)

// SpecialMap maps wildcard coordinates to the tiles they stand for.
type SpecialMap map[int][]chipdb.Tile

// CreateSpecialMap expands TileAll to all requested tiles and TileAllLogic
// to the requested logic tiles.
func CreateSpecialMap(db chipdb.Database, tiles []chipdb.Tile) SpecialMap {
	var logic []chipdb.Tile
	for _, t := range tiles {
		if db.TileType(t) == chipdb.TileLogic {
			logic = append(logic, t)
		}
	}
	return SpecialMap{
		chipdb.TileAll:      slices.Clone(tiles),
		chipdb.TileAllLogic: logic,
	}
}

// TilesFromResourceTile resolves a possibly wildcard tile. Both coordinates
// of a wildcard have to carry the same wildcard value.
func TilesFromResourceTile(tile chipdb.Tile, special SpecialMap) ([]chipdb.Tile, error) {
	if !tile.IsWildcard() {
		return []chipdb.Tile{tile}, nil
	}
	if tile.X != tile.Y {
		return nil, fmt.Errorf("%w: mixed wildcard tile %s", ErrInput, tile)
	}
	tiles, ok := special[tile.X]
	if !ok {
		return nil, fmt.Errorf("%w: unknown wildcard %d", ErrInput, tile.X)
	}
	return tiles, nil
}

type (
	VertexCondition func(v *interrep.Vertex) bool
	EdgeCondition   func(e *interrep.Edge) bool
)

// compileAnchored matches at the start of the name only.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInput, err)
	}
	return re, nil
}

// RegexVertexCondition matches vertices with a designator in one of the
// tiles whose name starts with a match of pattern.
func RegexVertexCondition(pattern string, tiles []chipdb.Tile) (VertexCondition, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return nil, err
	}
	return func(v *interrep.Vertex) bool {
		for _, d := range v.Desigs {
			if slices.Contains(tiles, d.Tile) && re.MatchString(d.Name) {
				return true
			}
		}
		return false
	}, nil
}

// RegexEdgeCondition matches edges lying in one of the tiles whose source
// and destination vertices match the respective pattern.
func RegexEdgeCondition(g *interrep.Graph, srcPattern, dstPattern string, tiles []chipdb.Tile) (EdgeCondition, error) {
	srcCond, err := RegexVertexCondition(srcPattern, tiles)
	if err != nil {
		return nil, err
	}
	dstCond, err := RegexVertexCondition(dstPattern, tiles)
	if err != nil {
		return nil, err
	}
	return func(e *interrep.Edge) bool {
		return slices.Contains(tiles, e.Desig.Src.Tile) && srcCond(g.Src(e)) && dstCond(g.Dst(e))
	}, nil
}

// SetAvailableVertex sets the available flag of the vertices matching cond.
func SetAvailableVertex(vertices []*interrep.Vertex, cond VertexCondition, value bool) {
	for _, v := range vertices {
		if cond(v) {
			v.Available = value
		}
	}
}

// SetAvailableEdge sets the available flag of the edges matching cond.
func SetAvailableEdge(edges []*interrep.Edge, cond EdgeCondition, value bool) {
	for _, e := range edges {
		if cond(e) {
			e.Available = value
		}
	}
}

// SetVertexResources applies the resources to the available flag of the
// vertices.
func SetVertexResources(g *interrep.Graph, resources []Resource, special SpecialMap, value bool) error {
	for _, res := range resources {
		tiles, err := TilesFromResourceTile(res.Tile, special)
		if err != nil {
			return err
		}
		cond, err := RegexVertexCondition(res.NameRegex, tiles)
		if err != nil {
			return fmt.Errorf("resource %q: %w", res.NameRegex, err)
		}
		SetAvailableVertex(g.Vertices(), cond, value)
	}
	return nil
}

// SetEdgeResources applies the connection rules to the available flag of
// the edges.
func SetEdgeResources(g *interrep.Graph, rescons []ResCon, special SpecialMap, value bool) error {
	for _, rc := range rescons {
		tiles, err := TilesFromResourceTile(rc.Tile, special)
		if err != nil {
			return err
		}
		cond, err := RegexEdgeCondition(g, rc.SrcRegex, rc.DstRegex, tiles)
		if err != nil {
			return fmt.Errorf("connection %q -> %q: %w", rc.SrcRegex, rc.DstRegex, err)
		}
		SetAvailableEdge(g.Edges(), cond, value)
	}
	return nil
}

// SetExternalSource flags every vertex with a driver outside the tiles.
func SetExternalSource(g *interrep.Graph, tiles []chipdb.Tile) {
	for _, v := range g.Vertices() {
		v.ExtSrc = false
		for _, t := range v.DriverTiles() {
			if !slices.Contains(tiles, t) {
				v.ExtSrc = true
				break
			}
		}
	}
}

// ChooseResources excludes resources, then every externally sourced
// vertex, then includes resources again.
func ChooseResources(g *interrep.Graph, exclude, include []Resource, special SpecialMap) error {
	if err := SetVertexResources(g, exclude, special, false); err != nil {
		return err
	}
	SetAvailableVertex(g.Vertices(), func(v *interrep.Vertex) bool { return v.ExtSrc }, false)
	return SetVertexResources(g, include, special, true)
}

// ChooseConnections excludes and then includes connections.
func ChooseConnections(g *interrep.Graph, exclude, include []ResCon, special SpecialMap) error {
	if err := SetEdgeResources(g, exclude, special, false); err != nil {
		return err
	}
	return SetEdgeResources(g, include, special, true)
}

// SetLUTFunctions restricts the truth tables of all LUTs to the functions.
func SetLUTFunctions(g *interrep.Graph, functions []interrep.LUTFunction) {
	for _, v := range g.LUTVertices() {
		v.LUT.Functions = slices.Clone(functions)
	}
}

// PruneNoViableSrc makes nets unavailable that can't be driven by anything
// but the unconnected source. It repeats until nothing changes and returns
// the number of pruned nets.
func PruneNoViableSrc(g *interrep.Graph) int {
	pruned := 0
	for {
		changed := false
		for _, v := range g.Vertices() {
			if v.Kind != interrep.KindCon || !v.Available || !v.Configurable || v.ExtSrc || len(v.SrcGroups) == 0 {
				continue
			}
			viable := slices.ContainsFunc(g.InEdges(v), func(e *interrep.Edge) bool {
				return e.Desig.Src.NetName() != chipdb.UnconnectedName && g.Usable(e)
			})
			if !viable {
				v.Available = false
				changed = true
				pruned++
			}
		}
		if !changed {
			return pruned
		}
	}
}
