package repgen

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

var (
	tileA = tile(1, 1)
	tileB = tile(2, 1)
	logic = tile(chipdb.TileAllLogic, chipdb.TileAllLogic)
)

func newFixtureGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	db, err := chipdb.Fixture(chipdb.FixtureOptions{Width: 2, Height: 1})
	require.NoError(t, err)
	return NewGenerator(db, opts...)
}

func lutBits(tl chipdb.Tile, l int, kind string) []chipdb.Bit {
	for _, it := range chipdb.LUTRawItems(l) {
		if it.Kind == kind {
			return chipdb.BitsFromRaw(tl, it.Bits)
		}
	}
	return nil
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// localG10B are the bits of local_g1_0 in tile B: group 0, bits 17 to 19.
var localG10B = []chipdb.Bit{chipdb.NewBit(2, 1, 0, 17), chipdb.NewBit(2, 1, 0, 18), chipdb.NewBit(2, 1, 0, 19)}

// fixtureRequest selects LUT 0 and 5 of both tiles with their inputs,
// local tracks and the clock of global network 0. The constraints fix a
// truth table, restrict the sources of a local track and join the
// Set_NoReset bits of both tiles.
func fixtureRequest() Request {
	names := []string{
		"NET#unconnected", "NET#glb_netwk_0",
		"NET#lutff_0/out", "NET#lutff_5/out",
		"NET#lutff_0/in_", "NET#lutff_5/in_",
		`NET#local_g\d_0`, `NET#local_g\d_5`, "NET#local_g2_1",
		"NET#lutff_global/", "NET#glb2local_1",
		"LUT#0", "LUT#5",
	}
	include := make([]Resource, len(names))
	for i, n := range names {
		include[i] = Resource{Tile: logic, NameRegex: n}
	}

	var setNoReset []chipdb.Bit
	for _, tl := range []chipdb.Tile{tileA, tileB} {
		setNoReset = append(setNoReset, lutBits(tl, 0, chipdb.KindSetNoReset)...)
		setNoReset = append(setNoReset, lutBits(tl, 5, chipdb.KindSetNoReset)...)
	}
	tt := lutBits(tileA, 5, chipdb.KindTruthTable)

	return Request{
		Tiles:            []chipdb.Tile{tileB, tileA},
		Output:           []chipdb.LUTPosition{{Tile: tileB, Z: 5}},
		LUTFunctions:     []interrep.LUTFunction{interrep.Const0, interrep.Const1, interrep.Nand},
		ExcludeResources: []Resource{{Tile: tile(chipdb.TileAll, chipdb.TileAll), NameRegex: ""}},
		IncludeResources: include,
		GeneConstraints: []GeneConstraint{
			{Bits: tt, Values: [][]bool{repeat(F, len(tt)), repeat(T, len(tt))}},
			{Bits: localG10B, Values: [][]bool{{F, F, F}, {F, T, T}}},
			{Bits: setNoReset, Values: [][]bool{repeat(F, 4), repeat(T, 4)}},
		},
	}
}

func findGene(genes []model.Gene, bits []chipdb.Bit) (model.Gene, bool) {
	i := slices.IndexFunc(genes, func(g model.Gene) bool { return slices.Equal(g.Bits, bits) })
	if i < 0 {
		return model.Gene{}, false
	}
	return genes[i], true
}

func TestGenerate(t *testing.T) {
	var stages []string
	gen := newFixtureGenerator(t, WithStageHook(func(stage string, _ time.Time, elapsed time.Duration) {
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		stages = append(stages, stage)
	}))

	req := fixtureRequest()
	req.ExcludeConnections = []ResCon{{Tile: logic, SrcRegex: "NET#unconnected$", DstRegex: "NET#local_g1_5$"}}
	req.IncludeConnections = []ResCon{{Tile: tileB, SrcRegex: "NET#unconnected$", DstRegex: "NET#local_g1_5$"}}

	rep, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, rep.Check())

	assert.Equal(t, []string{StageLoad, StageBuild, StageRules, StageGenes, StageConstraints, StageDerived}, stages)
	stats := gen.Stats()
	assert.Equal(t, 1, stats.SuperGenes)
	assert.Positive(t, stats.Vertices)
	assert.Positive(t, stats.Edges)
	assert.Positive(t, stats.Bits)

	t.Run("super gene first", func(t *testing.T) {
		require.NotEmpty(t, rep.Genes)
		super := rep.Genes[0]
		assert.Equal(t, req.GeneConstraints[2].Bits, super.Bits)
		assert.Equal(t, [][]bool{repeat(F, 4), repeat(T, 4)}, alleleValues(super.Alleles))
		assert.True(t, strings.HasSuffix(super.Description, "constraint"))
		assert.Len(t, super.Tiles(), 2)
	})

	t.Run("truth tables", func(t *testing.T) {
		restricted, ok := findGene(rep.Genes, lutBits(tileA, 5, chipdb.KindTruthTable))
		require.True(t, ok)
		assert.Equal(t, 2, restricted.Alleles.Len())

		free, ok := findGene(rep.Genes, lutBits(tileB, 5, chipdb.KindTruthTable))
		require.True(t, ok)
		assert.Equal(t, 3, free.Alleles.Len())
		assert.Equal(t, repeat(F, 16), free.Alleles.At(0).Values)

		_, ok = findGene(rep.Genes, lutBits(tileA, 3, chipdb.KindTruthTable))
		assert.False(t, ok, "LUT 3 is excluded")
	})

	t.Run("restricted sources", func(t *testing.T) {
		g, ok := findGene(rep.Genes, localG10B)
		require.True(t, ok)
		assert.Equal(t, "(2, 1) NET#local_g1_0; constraint", g.Description)
		assert.Equal(t, [][]bool{{F, F, F}, {F, T, T}}, alleleValues(g.Alleles))
		assert.Equal(t, []string{"unconnected", "NET#glb2local_1"}, alleleDescs(g.Alleles))

		// the same track in tile A keeps all its sources
		a, ok := findGene(rep.Genes, []chipdb.Bit{chipdb.NewBit(1, 1, 0, 17), chipdb.NewBit(1, 1, 0, 18), chipdb.NewBit(1, 1, 0, 19)})
		require.True(t, ok)
		assert.Greater(t, a.Alleles.Len(), 2)
	})

	t.Run("unconnected excluded once", func(t *testing.T) {
		// local_g1_5 uses group 10, bits 17 to 19
		bitsA := []chipdb.Bit{chipdb.NewBit(1, 1, 10, 17), chipdb.NewBit(1, 1, 10, 18), chipdb.NewBit(1, 1, 10, 19)}
		bitsB := []chipdb.Bit{chipdb.NewBit(2, 1, 10, 17), chipdb.NewBit(2, 1, 10, 18), chipdb.NewBit(2, 1, 10, 19)}

		a, ok := findGene(rep.Genes, bitsA)
		require.True(t, ok)
		assert.NotEqual(t, repeat(F, 3), a.Alleles.At(0).Values)

		b, ok := findGene(rep.Genes, bitsB)
		require.True(t, ok)
		assert.Equal(t, repeat(F, 3), b.Alleles.At(0).Values)
	})

	t.Run("constant genes", func(t *testing.T) {
		descs := descriptions(rep.Constant)
		assert.Contains(t, descs, "(1, 1) NET#local_g2_1")
		assert.Contains(t, descs, "(2, 1) NET#local_g2_1")
		for _, g := range rep.Constant {
			assert.True(t, g.IsConstant(), g.Description)
		}
	})

	t.Run("genes stay in the tiles", func(t *testing.T) {
		for g := range rep.IterGenes() {
			for _, tl := range g.Tiles() {
				assert.Contains(t, []chipdb.Tile{tileA, tileB}, tl, g.Description)
			}
		}
		sum := 0
		for _, n := range rep.SectionLengths {
			sum += n
		}
		assert.Equal(t, len(rep.Genes), sum)
	})

	t.Run("derived data", func(t *testing.T) {
		assert.Equal(t, []chipdb.ColBufCtrl{{Tile: tileA, Z: 0}, {Tile: tileB, Z: 0}}, rep.ColBufCtrl)
		require.Len(t, rep.ColBufCtrlItems, 2)
		assert.Equal(t, []chipdb.Bit{chipdb.NewBit(1, 1, 9, 7)}, rep.ColBufCtrlItems[0].Bits)
		assert.Equal(t, []chipdb.Bit{chipdb.NewBit(2, 1, 9, 7)}, rep.ColBufCtrlItems[1].Bits)

		assert.Equal(t, []chipdb.LUTPosition{{Tile: tileB, Z: 5}}, rep.Output)

		require.Len(t, rep.Carry, 2)
		for _, tl := range []chipdb.Tile{tileA, tileB} {
			require.Len(t, rep.Carry[tl], chipdb.LUTCount)
			assert.Equal(t, []chipdb.Bit{chipdb.NewBit(tl.X, tl.Y, 10, 44)}, rep.Carry[tl][5].CarryEnable)
			assert.Len(t, rep.Carry[tl][5].CarryUse, 1)
			assert.Empty(t, rep.Carry[tl][7].CarryUse)
		}
	})

	t.Run("decode", func(t *testing.T) {
		cfg := model.NewMemoryConfig()
		require.NoError(t, rep.PrepareConfig(cfg))
		prepared := cfg.Ones()
		require.NoError(t, rep.PrepareConfig(cfg))
		assert.Equal(t, prepared, cfg.Ones())
		for _, item := range rep.ColBufCtrlItems {
			assert.True(t, cfg.GetBit(item.Bits[0]))
		}

		require.NoError(t, rep.Decode(cfg, rep.Highest(1)))
		for _, item := range rep.ColBufCtrlItems {
			assert.True(t, cfg.GetBit(item.Bits[0]), "decode keeps the prepared bits")
		}
		for _, b := range req.GeneConstraints[2].Bits {
			assert.True(t, cfg.GetBit(b))
		}
	})
}

func TestGenerateZeroChromosome(t *testing.T) {
	gen := newFixtureGenerator(t)
	rep, err := gen.Generate(context.Background(), fixtureRequest())
	require.NoError(t, err)

	cfg := model.NewMemoryConfig()
	require.NoError(t, rep.Decode(cfg, model.Chromosome{Indices: make([]int, len(rep.Genes))}))
	assert.Empty(t, cfg.Ones())

	require.NoError(t, rep.PrepareConfig(cfg))
	var want []chipdb.Bit
	for _, item := range rep.ColBufCtrlItems {
		want = append(want, item.Bits...)
	}
	assert.Equal(t, want, cfg.Ones())
}

func TestGenerateSummaryRoundTrip(t *testing.T) {
	gen := newFixtureGenerator(t)
	rep, err := gen.Generate(context.Background(), fixtureRequest())
	require.NoError(t, err)

	back, err := representation.FromSummary(rep.Summary())
	require.NoError(t, err)
	assert.Equal(t, rep.AlleleCounts(), back.AlleleCounts())

	chromo := rep.Highest(3)
	a, b := model.NewMemoryConfig(), model.NewMemoryConfig()
	require.NoError(t, rep.Decode(a, chromo))
	require.NoError(t, back.Decode(b, chromo))
	assert.Equal(t, a.Ones(), b.Ones())
}

func TestGeneratePrune(t *testing.T) {
	gen := newFixtureGenerator(t)
	req := fixtureRequest()
	req.PruneNoViableSrc = true
	rep, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)

	// local_g2_1 can only be left unconnected
	assert.Positive(t, gen.Stats().Pruned)
	assert.NotContains(t, descriptions(rep.Constant), "(1, 1) NET#local_g2_1")
}

func TestGenerateErrors(t *testing.T) {
	gen := newFixtureGenerator(t)

	tests := []struct {
		name   string
		mutate func(r *Request)
		target error
	}{
		{"no tiles", func(r *Request) { r.Tiles = nil }, ErrInput},
		{"wildcard tile", func(r *Request) { r.Tiles = append(r.Tiles, logic) }, ErrInput},
		{"output LUT", func(r *Request) { r.Output = []chipdb.LUTPosition{{Tile: tileA, Z: 8}} }, ErrInput},
		{"unknown tile", func(r *Request) { r.Tiles = append(r.Tiles, tile(9, 9)) }, chipdb.ErrUnknownTile},
		{"bad regex", func(r *Request) {
			r.IncludeResources = append(r.IncludeResources, Resource{Tile: logic, NameRegex: "NET#("})
		}, ErrInput},
		{"constraint on excluded bits", func(r *Request) {
			r.GeneConstraints = append(r.GeneConstraints, GeneConstraint{
				Bits:   lutBits(tileA, 3, chipdb.KindDffEnable),
				Values: [][]bool{{T}},
			})
		}, ErrInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := fixtureRequest()
			tt.mutate(&req)
			_, err := gen.Generate(context.Background(), req)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx, fixtureRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestCheck(t *testing.T) {
	req := fixtureRequest()
	require.NoError(t, req.Check())

	req.GeneConstraints = append(req.GeneConstraints, GeneConstraint{
		Bits:   []chipdb.Bit{chipdb.NewBit(1, 1, 0, 0)},
		Values: [][]bool{{T, F}},
	})
	assert.ErrorIs(t, req.Check(), ErrInput)

	req = fixtureRequest()
	req.GeneConstraints[0].Values = nil
	assert.ErrorIs(t, req.Check(), ErrInput)
}

func TestGenerateCoversEveryBit(t *testing.T) {
	tests := []struct {
		name  string
		opts  chipdb.FixtureOptions
		tiles []chipdb.Tile
	}{
		{"2x2 all tiles", chipdb.FixtureOptions{Width: 2, Height: 2}, chipdb.TilesFromRectangle(1, 1, 2, 2)},
		{"3x3 all tiles", chipdb.FixtureOptions{Width: 3, Height: 3}, chipdb.TilesFromRectangle(1, 1, 3, 3)},
		{"3x3 bottom row", chipdb.FixtureOptions{Width: 3, Height: 3}, chipdb.TilesFromRectangle(1, 1, 3, 1)},
		{"3x3 top row", chipdb.FixtureOptions{Width: 3, Height: 3}, chipdb.TilesFromRectangle(1, 3, 3, 3)},
		{"3x3 centre", chipdb.FixtureOptions{Width: 3, Height: 3}, []chipdb.Tile{tile(2, 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := chipdb.Fixture(tt.opts)
			require.NoError(t, err)

			want := make(map[chipdb.Bit]bool)
			add := func(bits []chipdb.Bit) {
				for _, b := range bits {
					want[b] = true
				}
			}
			for _, tl := range tt.tiles {
				items, err := db.ConfigItems(tl)
				require.NoError(t, err)
				for _, con := range items.Connection {
					add(con.Bits)
				}
				for _, it := range items.Tile {
					add(it.Bits)
				}
				for _, lut := range items.LUT {
					for _, it := range lut {
						if it.Kind != chipdb.KindCarryEnable {
							add(it.Bits)
						}
					}
				}
			}

			rep, err := NewGenerator(db).Generate(context.Background(), Request{Tiles: tt.tiles})
			require.NoError(t, err)

			count := make(map[chipdb.Bit]int)
			for _, g := range slices.Concat(rep.Genes, rep.Constant) {
				for _, b := range g.Bits {
					count[b]++
				}
			}
			for b := range want {
				assert.Equal(t, 1, count[b], "bit %s", b)
			}
			for b := range count {
				assert.True(t, want[b], "bit %s is not a config bit of the tiles", b)
			}
		})
	}
}
