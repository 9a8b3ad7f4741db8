package chipdb

import (
	"fmt"
	"slices"
)

// FixtureOptions sizes the generated logic tile block. Logic tiles span
// x in [1, Width], y in [1, Height]; the global networks are driven from
// the IO tile (0, 1).
type FixtureOptions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Names of nets with a special meaning for the representation.
const (
	UnconnectedName = "unconnected"
	CarryOneIn      = "carry_one_in"
	CarryInMux      = "carry_in_mux"
	CarryIn         = "carry_in"
	GlobalNetPrefix = "glb_netwk_"
	LUTCount        = 8
	GlobalNetCount  = 8
)

// LUT bit group kinds in the order the chip database lists them.
const (
	KindCarryEnable   = "CarryEnable"
	KindDffEnable     = "DffEnable"
	KindSetNoReset    = "Set_NoReset"
	KindAsyncSetReset = "AsyncSetReset"
	KindTruthTable    = "TruthTable"
	KindNegClk        = "NegClk"
	KindCarryInSet    = "CarryInSet"
	KindColBufCtrl    = "ColBufCtrl"
)

// LUTRawItems returns the config items of LUT l of a logic tile. The truth
// table bits are ordered so that the index equals the binary input value
// i_3 i_2 i_1 i_0.
func LUTRawItems(l int) []RawItem {
	g0, g1 := 2*l, 2*l+1
	tt := []RawBit{
		{g0, 40}, {g1, 40}, {g1, 41}, {g0, 41}, {g0, 42}, {g1, 42}, {g1, 43}, {g0, 43},
		{g0, 39}, {g1, 39}, {g1, 38}, {g0, 38}, {g0, 37}, {g1, 37}, {g1, 36}, {g0, 36},
	}
	return []RawItem{
		{Bits: []RawBit{{g0, 44}}, Kind: KindCarryEnable},
		{Bits: []RawBit{{g0, 45}}, Kind: KindDffEnable},
		{Bits: []RawBit{{g1, 44}}, Kind: KindSetNoReset},
		{Bits: []RawBit{{g1, 45}}, Kind: KindAsyncSetReset},
		{Bits: tt, Kind: KindTruthTable},
	}
}

type fixtureBuilder struct {
	opts    FixtureOptions
	nets    []NetData
	names   map[Tile]map[string]bool
	configs map[Tile]RawConfig
}

// Fixture generates an iCE40 like chip database for a block of logic tiles.
// It carries LUTs, LUT inputs, local tracks, neighbour outputs, global
// networks, glb2local, carry chains, vertical span wires between adjacent
// tiles and column buffer controls in the bottom row.
func Fixture(opts FixtureOptions) (*Data, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return nil, fmt.Errorf("fixture size %dx%d: width and height must be positive", opts.Width, opts.Height)
	}
	fb := &fixtureBuilder{
		opts:    opts,
		names:   make(map[Tile]map[string]bool),
		configs: make(map[Tile]RawConfig),
	}
	fb.addNets()

	types := map[Tile]TileType{fb.ioTile(): TileIO}
	colBufCtrl := make(map[Tile]Tile)
	for _, tile := range fb.logicTiles() {
		fb.configs[tile] = fb.tileConfig(tile)
		types[tile] = TileLogic
		colBufCtrl[tile] = Tile{X: tile.X, Y: 1}
	}
	fb.configs[fb.ioTile()] = RawConfig{}

	name := fmt.Sprintf("fixture-%dx%d", opts.Width, opts.Height)
	return Compile(name, fb.nets, fb.configs, colBufCtrl, types)
}

func (fb *fixtureBuilder) ioTile() Tile {
	return Tile{X: 0, Y: 1}
}

func (fb *fixtureBuilder) logicTiles() []Tile {
	return TilesFromRectangle(1, 1, fb.opts.Width, fb.opts.Height)
}

func (fb *fixtureBuilder) isLogic(x, y int) bool {
	return x >= 1 && x <= fb.opts.Width && y >= 1 && y <= fb.opts.Height
}

func (fb *fixtureBuilder) has(tile Tile, name string) bool {
	return fb.names[tile][name]
}

// addNet sorts the entries, records the names and resolves the driver
// entries to indices of the sorted segment.
func (fb *fixtureBuilder) addNet(entries []SegEntry, hardDriven bool, driverEntries ...SegEntry) {
	seg := Segment(slices.Clone(entries))
	slices.SortFunc(seg, SegEntry.Compare)
	var drivers []int
	for _, d := range driverEntries {
		drivers = append(drivers, slices.Index(seg, d))
	}
	for _, e := range seg {
		m := fb.names[e.Tile()]
		if m == nil {
			m = make(map[string]bool)
			fb.names[e.Tile()] = m
		}
		m[e.Name] = true
	}
	fb.nets = append(fb.nets, NetData{Segment: seg, HardDriven: hardDriven, Drivers: drivers})
}

func (fb *fixtureBuilder) addLocal(x, y int, name string) {
	e := SegEntry{X: x, Y: y, Name: name}
	fb.addNet([]SegEntry{e}, false, e)
}

func (fb *fixtureBuilder) addNets() {
	io := fb.ioTile()
	for i := 0; i < GlobalNetCount; i++ {
		name := fmt.Sprintf("%s%d", GlobalNetPrefix, i)
		drv := SegEntry{X: io.X, Y: io.Y, Name: name}
		entries := []SegEntry{drv}
		for _, t := range fb.logicTiles() {
			entries = append(entries, SegEntry{X: t.X, Y: t.Y, Name: name})
		}
		fb.addNet(entries, true, drv)
	}

	for _, t := range fb.logicTiles() {
		x, y := t.X, t.Y
		for l := 0; l < LUTCount; l++ {
			out := SegEntry{X: x, Y: y, Name: fmt.Sprintf("lutff_%d/out", l)}
			entries := []SegEntry{out}
			neighbours := []struct {
				dx, dy int
				name   string
			}{
				{1, 0, "neigh_op_lft_%d"},
				{-1, 0, "neigh_op_rgt_%d"},
				{0, 1, "neigh_op_bot_%d"},
				{0, -1, "neigh_op_top_%d"},
			}
			for _, n := range neighbours {
				if fb.isLogic(x+n.dx, y+n.dy) {
					entries = append(entries, SegEntry{X: x + n.dx, Y: y + n.dy, Name: fmt.Sprintf(n.name, l)})
				}
			}
			fb.addNet(entries, true, out)

			cout := SegEntry{X: x, Y: y, Name: fmt.Sprintf("lutff_%d/cout", l)}
			coutEntries := []SegEntry{cout}
			if l == LUTCount-1 && fb.isLogic(x, y+1) {
				coutEntries = append(coutEntries, SegEntry{X: x, Y: y + 1, Name: CarryIn})
			}
			fb.addNet(coutEntries, true, cout)

			for j := 0; j < 4; j++ {
				fb.addLocal(x, y, fmt.Sprintf("lutff_%d/in_%d", l, j))
			}
		}
		for g := 0; g < 4; g++ {
			for n := 0; n < 8; n++ {
				fb.addLocal(x, y, fmt.Sprintf("local_g%d_%d", g, n))
			}
			fb.addLocal(x, y, fmt.Sprintf("glb2local_%d", g))
		}
		fb.addLocal(x, y, "lutff_global/clk")
		fb.addLocal(x, y, CarryInMux)

		if fb.isLogic(x, y+1) {
			for k := 0; k < 2; k++ {
				bot := SegEntry{X: x, Y: y, Name: fmt.Sprintf("sp_v_b_%d", k)}
				top := SegEntry{X: x, Y: y + 1, Name: fmt.Sprintf("sp_v_t_%d", k)}
				fb.addNet([]SegEntry{bot, top}, false, bot, top)
			}
		}
	}
}

func binaryValues(v, width int) []bool {
	values := make([]bool, width)
	for i := 0; i < width; i++ {
		values[width-1-i] = (v>>i)&1 == 1
	}
	return values
}

func (fb *fixtureBuilder) tileConfig(tile Tile) RawConfig {
	y := tile.Y
	var raw RawConfig

	src := func(net string, values ...bool) (RawSource, bool) {
		return RawSource{Values: values, Net: net}, fb.has(tile, net)
	}
	connect := func(dst string, bits []RawBit, sources ...func() (RawSource, bool)) {
		if !fb.has(tile, dst) {
			return
		}
		con := RawConnection{Bits: bits, Dst: dst}
		for _, s := range sources {
			if rs, ok := s(); ok {
				con.Sources = append(con.Sources, rs)
			}
		}
		if len(con.Sources) > 0 {
			raw.Connection = append(raw.Connection, con)
		}
	}
	opt := func(net string, values ...bool) func() (RawSource, bool) {
		return func() (RawSource, bool) { return src(net, values...) }
	}

	for l := 0; l < LUTCount; l++ {
		for j := 0; j < 3; j++ {
			bits := []RawBit{{2*l + 1, 20 + 2*j}, {2*l + 1, 21 + 2*j}}
			connect(fmt.Sprintf("lutff_%d/in_%d", l, j), bits,
				opt(fmt.Sprintf("local_g%d_%d", j, l), true, false),
				opt(fmt.Sprintf("local_g%d_%d", j+1, l), false, true),
				opt(fmt.Sprintf("local_g%d_%d", j, (l+1)%LUTCount), true, true),
			)
		}
		carrySrc := CarryInMux
		if l > 0 {
			carrySrc = fmt.Sprintf("lutff_%d/cout", l-1)
		}
		connect(fmt.Sprintf("lutff_%d/in_3", l),
			[]RawBit{{2 * l, 31}, {2 * l, 32}, {2 * l, 33}, {2 * l, 34}, {2*l + 1, 31}},
			opt(fmt.Sprintf("local_g3_%d", l), true, false, false, false, false),
			opt(carrySrc, false, true, false, false, false),
			opt(fmt.Sprintf("local_g0_%d", l), false, false, true, false, false),
		)
	}

	for g := 0; g < 4; g++ {
		for n := 0; n < 8; n++ {
			grp := n*2 + g/2
			base := 14 + (g%2)*3
			bits := []RawBit{{grp, base}, {grp, base + 1}, {grp, base + 2}}
			sources := []func() (RawSource, bool){
				opt(fmt.Sprintf("lutff_%d/out", n), true, false, false),
				opt(fmt.Sprintf("neigh_op_lft_%d", n), false, true, false),
				opt(fmt.Sprintf("neigh_op_rgt_%d", n), true, true, false),
				opt(fmt.Sprintf("neigh_op_top_%d", n), false, false, true),
				opt(fmt.Sprintf("neigh_op_bot_%d", n), true, false, true),
			}
			if n == 0 {
				sources = append(sources, opt(fmt.Sprintf("glb2local_%d", g), false, true, true))
			}
			if n < 2 {
				sources = append(sources, opt(fmt.Sprintf("sp_v_b_%d", n), true, true, true))
			}
			connect(fmt.Sprintf("local_g%d_%d", g, n), bits, sources...)
		}
	}

	for k := 0; k < 4; k++ {
		var sources []func() (RawSource, bool)
		for i := 0; i < GlobalNetCount; i++ {
			sources = append(sources, opt(fmt.Sprintf("%s%d", GlobalNetPrefix, i), binaryValues(i+1, 4)...))
		}
		connect(fmt.Sprintf("glb2local_%d", k), []RawBit{{8 + k, 0}, {8 + k, 1}, {8 + k, 2}, {8 + k, 3}}, sources...)
	}

	var clkSources []func() (RawSource, bool)
	for i := 0; i < GlobalNetCount; i++ {
		clkSources = append(clkSources, opt(fmt.Sprintf("%s%d", GlobalNetPrefix, i), binaryValues(i+1, 4)...))
	}
	connect("lutff_global/clk", []RawBit{{2, 0}, {2, 1}, {2, 2}, {2, 3}}, clkSources...)

	connect(CarryInMux, []RawBit{{1, 49}}, opt(CarryIn, true))

	for k := 0; k < 2; k++ {
		connect(fmt.Sprintf("sp_v_b_%d", k), []RawBit{{12, 46 + k}}, opt(fmt.Sprintf("lutff_%d/out", k), true))
		connect(fmt.Sprintf("sp_v_t_%d", k), []RawBit{{12, 48 + k}}, opt(fmt.Sprintf("lutff_%d/out", k+2), true))
	}

	raw.Tile = []RawItem{
		{Bits: []RawBit{{0, 0}}, Kind: KindNegClk},
		{Bits: []RawBit{{1, 50}}, Kind: KindCarryInSet},
	}

	for l := 0; l < LUTCount; l++ {
		raw.LUT = append(raw.LUT, LUTRawItems(l))
		raw.LUTIO = append(raw.LUTIO, LUTIO{
			In: []string{
				fmt.Sprintf("lutff_%d/in_0", l), fmt.Sprintf("lutff_%d/in_1", l),
				fmt.Sprintf("lutff_%d/in_2", l), fmt.Sprintf("lutff_%d/in_3", l),
			},
			Out: []string{fmt.Sprintf("lutff_%d/out", l), fmt.Sprintf("lutff_%d/cout", l)},
		})
	}

	if y == 1 {
		for i := 0; i < GlobalNetCount; i++ {
			raw.ColBufCtrl = append(raw.ColBufCtrl, []RawBit{{9 + i, 7}})
		}
	}
	return raw
}
