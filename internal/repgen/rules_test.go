package repgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep/interreptest"
)

func tile(x, y int) chipdb.Tile {
	return chipdb.Tile{X: x, Y: y}
}

func netDesig(x, y int, name string) interrep.VertexDesig {
	return interrep.NetDesig(tile(x, y), name)
}

func unconDesig(t chipdb.Tile) interrep.VertexDesig {
	return interrep.NetDesig(t, chipdb.UnconnectedName)
}

func edgeDesig(x, y int, src, dst string) interrep.EdgeDesig {
	return interrep.NetToNet(tile(x, y), src, dst)
}

// buildExcerpt builds the hand written excerpt with its connections.
func buildExcerpt(t *testing.T) *interrep.Graph {
	t.Helper()
	g, err := interrep.Build(interreptest.NetData(), interreptest.ConConfig())
	require.NoError(t, err)
	return g
}

func allSpecial() SpecialMap {
	return SpecialMap{chipdb.TileAll: interreptest.AllTiles()}
}

func vertexFlags(g *interrep.Graph, flag func(v *interrep.Vertex) bool) map[interrep.VertexDesig]bool {
	out := make(map[interrep.VertexDesig]bool)
	for _, v := range g.Vertices() {
		out[v.Desig()] = flag(v)
	}
	return out
}

func available(v *interrep.Vertex) bool { return v.Available }

func extSrc(v *interrep.Vertex) bool { return v.ExtSrc }

// expectVertices returns every vertex of g mapped to def, except the listed
// designators mapped to !def.
func expectVertices(g *interrep.Graph, def bool, except ...interrep.VertexDesig) map[interrep.VertexDesig]bool {
	out := make(map[interrep.VertexDesig]bool)
	for _, v := range g.Vertices() {
		out[v.Desig()] = def
	}
	for _, d := range except {
		out[d] = !def
	}
	return out
}

func edgeAvailability(g *interrep.Graph) map[interrep.EdgeDesig]bool {
	out := make(map[interrep.EdgeDesig]bool)
	for _, e := range g.Edges() {
		out[e.Desig] = e.Available
	}
	return out
}

func expectEdges(g *interrep.Graph, def bool, except ...interrep.EdgeDesig) map[interrep.EdgeDesig]bool {
	out := make(map[interrep.EdgeDesig]bool)
	for _, e := range g.Edges() {
		out[e.Desig] = def
	}
	for _, d := range except {
		out[d] = !def
	}
	return out
}

func TestTilesFromResourceTile(t *testing.T) {
	special := SpecialMap{
		chipdb.TileAll:      {tile(1, 1), tile(0, 1)},
		chipdb.TileAllLogic: {tile(1, 1)},
	}

	got, err := TilesFromResourceTile(tile(3, 4), special)
	require.NoError(t, err)
	assert.Equal(t, []chipdb.Tile{tile(3, 4)}, got)

	got, err = TilesFromResourceTile(tile(chipdb.TileAllLogic, chipdb.TileAllLogic), special)
	require.NoError(t, err)
	assert.Equal(t, []chipdb.Tile{tile(1, 1)}, got)

	_, err = TilesFromResourceTile(tile(chipdb.TileAll, chipdb.TileAllLogic), special)
	assert.ErrorIs(t, err, ErrInput)

	_, err = TilesFromResourceTile(tile(-7, -7), special)
	assert.ErrorIs(t, err, ErrInput)
}

func TestCreateSpecialMap(t *testing.T) {
	db, err := chipdb.Fixture(chipdb.FixtureOptions{Width: 1, Height: 1})
	require.NoError(t, err)

	special := CreateSpecialMap(db, []chipdb.Tile{tile(0, 1), tile(1, 1)})
	assert.Equal(t, []chipdb.Tile{tile(0, 1), tile(1, 1)}, special[chipdb.TileAll])
	assert.Equal(t, []chipdb.Tile{tile(1, 1)}, special[chipdb.TileAllLogic])
}

func TestRegexVertexCondition(t *testing.T) {
	g := buildExcerpt(t)
	all := interreptest.AllTiles()

	tests := []struct {
		name    string
		pattern string
		tiles   []chipdb.Tile
		want    []interrep.VertexDesig
	}{
		{"never matches", "never_seen", all, nil},
		{"prefix", "NET#internal", all, []interrep.VertexDesig{
			netDesig(2, 3, "internal"), netDesig(2, 3, "internal_2"),
		}},
		{"anchored at start", "internal", all, nil},
		{"span nets", `NET#.*span_\d`, all, []interrep.VertexDesig{
			netDesig(4, 2, "short_span_1"), netDesig(4, 1, "short_span_2"),
			netDesig(5, 0, "long_span_1"), netDesig(5, 3, "long_span_2"),
			netDesig(8, 0, "long_span_3"), netDesig(5, 0, "long_span_4"),
		}},
		{"wrong tile", "NET#out$", []chipdb.Tile{tile(2, 3)}, nil},
		{"any designator", "NET#out$", []chipdb.Tile{tile(1, 3)}, []interrep.VertexDesig{
			netDesig(0, 3, "right"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := RegexVertexCondition(tt.pattern, tt.tiles)
			require.NoError(t, err)
			var got []interrep.VertexDesig
			for _, v := range g.Vertices() {
				if cond(v) {
					got = append(got, v.Desig())
				}
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	cond, err := RegexVertexCondition("", all)
	require.NoError(t, err)
	for _, v := range g.Vertices() {
		assert.True(t, cond(v), "%s", v.Desig())
	}

	_, err = RegexVertexCondition("(", all)
	assert.ErrorIs(t, err, ErrInput)
}

func TestRegexEdgeCondition(t *testing.T) {
	g := buildExcerpt(t)
	all := interreptest.AllTiles()

	count := func(cond EdgeCondition) int {
		n := 0
		for _, e := range g.Edges() {
			if cond(e) {
				n++
			}
		}
		return n
	}

	cond, err := RegexEdgeCondition(g, "", "", all)
	require.NoError(t, err)
	assert.Equal(t, len(g.Edges()), count(cond))

	cond, err = RegexEdgeCondition(g, "no src", "", all)
	require.NoError(t, err)
	assert.Zero(t, count(cond))

	cond, err = RegexEdgeCondition(g, "", "no dst", all)
	require.NoError(t, err)
	assert.Zero(t, count(cond))

	cond, err = RegexEdgeCondition(g, "", "", []chipdb.Tile{tile(13, 4)})
	require.NoError(t, err)
	assert.Zero(t, count(cond))

	cond, err = RegexEdgeCondition(g, "NET#out$", "NET#short_span_2$", []chipdb.Tile{tile(4, 2)})
	require.NoError(t, err)
	for _, e := range g.Edges() {
		assert.Equal(t, e.Desig == edgeDesig(4, 2, "out", "short_span_2"), cond(e), "%s", e.Desig)
	}
}

func TestSetVertexResources(t *testing.T) {
	tests := []struct {
		name    string
		res     Resource
		special SpecialMap
		want    []interrep.VertexDesig
	}{
		{"special no match", Resource{tile(-1, -1), "NET#wire_out$"}, SpecialMap{-1: {tile(0, 3)}}, nil},
		{"tile no match", Resource{tile(1, 3), "NET#wire_out$"}, allSpecial(), nil},
		{"prefix required", Resource{tile(-1, -1), "has to have NET in front"}, allSpecial(), nil},
		{"all tiles", Resource{tile(-1, -1), "NET#out$"}, allSpecial(), []interrep.VertexDesig{
			netDesig(0, 3, "right"), netDesig(4, 2, "out"), netDesig(7, 0, "out"),
		}},
		{"single tile", Resource{tile(1, 3), "NET#out$"}, allSpecial(), []interrep.VertexDesig{
			netDesig(0, 3, "right"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildExcerpt(t)
			require.NoError(t, SetVertexResources(g, []Resource{tt.res}, tt.special, false))
			assert.Equal(t, expectVertices(g, true, tt.want...), vertexFlags(g, available))
		})
	}

	g := buildExcerpt(t)
	err := SetVertexResources(g, []Resource{{tile(-1, -2), ""}}, allSpecial(), false)
	assert.ErrorIs(t, err, ErrInput)
}

func TestSetEdgeResources(t *testing.T) {
	t.Run("match all", func(t *testing.T) {
		for _, value := range []bool{true, false} {
			g := buildExcerpt(t)
			for _, e := range g.Edges() {
				e.Available = !value
			}
			require.NoError(t, SetEdgeResources(g, []ResCon{{tile(-1, -1), "", ""}}, allSpecial(), value))
			assert.Equal(t, expectEdges(g, value), edgeAvailability(g))
		}
	})

	t.Run("match none", func(t *testing.T) {
		g := buildExcerpt(t)
		rules := []ResCon{
			{tile(-1, -1), "no dst", ""},
			{tile(-1, -1), "", "no src"},
			{tile(13, 4), "", ""},
		}
		require.NoError(t, SetEdgeResources(g, rules, allSpecial(), false))
		assert.Equal(t, expectEdges(g, true), edgeAvailability(g))
	})

	t.Run("matches", func(t *testing.T) {
		g := buildExcerpt(t)
		rules := []ResCon{
			{tile(-1, -1), "NET#long_span_4$", ""},
			{tile(8, 3), "", "NET#long_span_2$"},
			{tile(1, 3), "NET#out$", "NET#wire_in_2$"},
		}
		require.NoError(t, SetEdgeResources(g, rules, allSpecial(), false))
		want := expectEdges(g, true,
			edgeDesig(8, 0, "long_span_4", "long_span_3"),
			edgeDesig(8, 3, "long_span_3", "long_span_2"),
			edgeDesig(8, 3, chipdb.UnconnectedName, "long_span_2"),
			edgeDesig(1, 3, "out", "wire_in_2"),
		)
		assert.Equal(t, want, edgeAvailability(g))
	})
}

func TestSetExternalSource(t *testing.T) {
	uncon := func(x, y int) interrep.VertexDesig { return unconDesig(tile(x, y)) }
	empty := netDesig(2, 3, "empty_out")

	tests := []struct {
		name  string
		tiles []chipdb.Tile
		def   bool
		other []interrep.VertexDesig
	}{
		{"no tiles", nil, true, []interrep.VertexDesig{empty}},
		{"all tiles", interreptest.AllTiles(), false, nil},
		{"internal tile", []chipdb.Tile{tile(2, 3)}, true, []interrep.VertexDesig{
			netDesig(2, 3, "internal"), netDesig(2, 3, "internal_2"),
			netDesig(2, 3, "lut_out"), empty, uncon(2, 3),
		}},
		{"driver tile", []chipdb.Tile{tile(1, 3)}, true, []interrep.VertexDesig{
			netDesig(0, 3, "right"), empty, uncon(1, 3),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildExcerpt(t)
			SetExternalSource(g, tt.tiles)
			assert.Equal(t, expectVertices(g, tt.def, tt.other...), vertexFlags(g, extSrc))
		})
	}
}

// markExternal sets the external source flags the rule tests start from.
func markExternal(g *interrep.Graph) []interrep.VertexDesig {
	ext := []interrep.VertexDesig{
		netDesig(0, 3, "right"), netDesig(0, 3, "wire_in_1"),
		netDesig(5, 0, "long_span_4"), netDesig(7, 0, "out"),
	}
	for _, t := range interreptest.UnconnectedTiles {
		if t != tile(2, 3) {
			ext = append(ext, unconDesig(t))
		}
	}
	for _, d := range ext {
		v, _ := g.Vertex(d)
		v.ExtSrc = true
	}
	return ext
}

func TestChooseResources(t *testing.T) {
	extUncon := func() []interrep.VertexDesig {
		var out []interrep.VertexDesig
		for _, t := range interreptest.UnconnectedTiles {
			if t != tile(2, 3) {
				out = append(out, unconDesig(t))
			}
		}
		return out
	}

	tests := []struct {
		name    string
		exclude []Resource
		include []Resource
		def     bool
		other   func(ext []interrep.VertexDesig) []interrep.VertexDesig
	}{
		{"external only", nil, nil, true, func(ext []interrep.VertexDesig) []interrep.VertexDesig { return ext }},
		{"exclude spans", []Resource{{tile(-1, -1), ".*span"}}, nil, false, func([]interrep.VertexDesig) []interrep.VertexDesig {
			return []interrep.VertexDesig{
				netDesig(2, 3, "internal"), netDesig(2, 3, "internal_2"), netDesig(2, 3, "lut_out"),
				netDesig(2, 3, "empty_out"), unconDesig(tile(2, 3)), netDesig(4, 2, "out"),
			}
		}},
		{"include external", nil, []Resource{{tile(-1, -1), "NET#left$"}}, true, func([]interrep.VertexDesig) []interrep.VertexDesig {
			return append([]interrep.VertexDesig{
				netDesig(0, 3, "wire_in_1"), netDesig(5, 0, "long_span_4"), netDesig(7, 0, "out"),
			}, extUncon()...)
		}},
		{"complete example",
			[]Resource{{tile(-1, -1), ".*span"}},
			[]Resource{
				{tile(-1, -1), `NET#long_span_\d$`},
				{tile(-1, -1), "NET#out"},
				{tile(2, 3), "NET#left$"},
			},
			true,
			func([]interrep.VertexDesig) []interrep.VertexDesig {
				return append([]interrep.VertexDesig{
					netDesig(0, 3, "wire_in_1"), netDesig(4, 2, "short_span_1"), netDesig(4, 1, "short_span_2"),
				}, extUncon()...)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildExcerpt(t)
			ext := markExternal(g)
			require.NoError(t, ChooseResources(g, tt.exclude, tt.include, allSpecial()))
			assert.Equal(t, expectVertices(g, tt.def, tt.other(ext)...), vertexFlags(g, available))
		})
	}
}

func TestChooseConnections(t *testing.T) {
	g := buildExcerpt(t)
	require.NoError(t, ChooseConnections(g, nil, nil, allSpecial()))
	assert.Equal(t, expectEdges(g, true), edgeAvailability(g))

	g = buildExcerpt(t)
	err := ChooseConnections(g,
		[]ResCon{{tile(-1, -1), "", ""}},
		[]ResCon{{tile(2, 3), "NET#left$", "NET#internal$"}},
		allSpecial())
	require.NoError(t, err)
	assert.Equal(t, expectEdges(g, false, edgeDesig(2, 3, "left", "internal")), edgeAvailability(g))

	err = ChooseConnections(g, []ResCon{{tile(-1, -1), "[", ""}}, nil, allSpecial())
	assert.ErrorIs(t, err, ErrInput)
}

func TestPruneNoViableSrc(t *testing.T) {
	g := buildExcerpt(t)
	for _, d := range []interrep.VertexDesig{netDesig(7, 0, "out"), netDesig(5, 0, "long_span_1")} {
		v, err := g.Vertex(d)
		require.NoError(t, err)
		v.Available = false
	}

	assert.Equal(t, 3, PruneNoViableSrc(g))
	want := expectVertices(g, true,
		netDesig(7, 0, "out"), netDesig(5, 0, "long_span_1"),
		netDesig(5, 3, "long_span_2"), netDesig(8, 0, "long_span_3"), netDesig(5, 0, "long_span_4"),
	)
	assert.Equal(t, want, vertexFlags(g, available))

	assert.Zero(t, PruneNoViableSrc(g))
}

func TestSetLUTFunctions(t *testing.T) {
	g, err := interrep.Build(interreptest.NetData(), interreptest.FullConfig())
	require.NoError(t, err)

	funcs := []interrep.LUTFunction{interrep.Const0, interrep.Nand}
	SetLUTFunctions(g, funcs)
	funcs[0] = interrep.Parity

	luts := g.LUTVertices()
	require.Len(t, luts, 1)
	assert.Equal(t, []interrep.LUTFunction{interrep.Const0, interrep.Nand}, luts[0].LUT.Functions)
}
