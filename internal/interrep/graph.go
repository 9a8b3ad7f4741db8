package interrep

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// Graph is the intermediate representation.
type Graph struct {
	vertices []*Vertex
	edges    []*Edge

	vertexMap    map[VertexDesig]VertexID
	tileVertices map[chipdb.Tile][]VertexID
	edgeMap      map[EdgeDesig]EdgeID
	tileEdges    map[chipdb.Tile][]EdgeID
	bitMap       map[chipdb.Bit]VertexID

	logger *slog.Logger
}

// Option configures Build.
type Option func(*Graph)

// WithLogger sets the logger used for debug output during the build.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		vertexMap:    make(map[VertexDesig]VertexID),
		tileVertices: make(map[chipdb.Tile][]VertexID),
		edgeMap:      make(map[EdgeDesig]EdgeID),
		tileEdges:    make(map[chipdb.Tile][]EdgeID),
		bitMap:       make(map[chipdb.Bit]VertexID),
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build creates a vertex per net, a vertex per LUT, the LUT edges and a
// source group per connection item. Tiles are processed in sorted order.
//
// Every source group gets an unconnected option: if a connection item lacks
// one and the all false pattern is free, it is added here, together with the
// unconnected net of the tile if the net data has none.
func Build(nets []chipdb.NetData, configs map[chipdb.Tile]chipdb.ConfigAssemblage, opts ...Option) (*Graph, error) {
	g := New(opts...)

	for _, n := range nets {
		if _, err := g.AddNet(n); err != nil {
			return nil, err
		}
	}

	tiles := make([]chipdb.Tile, 0, len(configs))
	for t := range configs {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, chipdb.Tile.Compare)

	for _, tile := range tiles {
		assem := configs[tile]
		for _, items := range assem.LUT {
			if _, err := g.AddLUT(items); err != nil {
				return nil, fmt.Errorf("tile %s: %w", tile, err)
			}
		}
		for i, io := range assem.LUTIO {
			if err := g.ConnectLUT(tile, i, io); err != nil {
				return nil, err
			}
		}
		for _, item := range assem.Connection {
			if err := g.AddSourceGroup(item); err != nil {
				return nil, err
			}
		}
	}

	g.logger.Debug("built intermediate representation",
		slog.Int("vertices", len(g.vertices)),
		slog.Int("edges", len(g.edges)),
		slog.Int("bits", len(g.bitMap)),
		slog.Int("tiles", len(tiles)))
	return g, nil
}

func (g *Graph) addVertex(v *Vertex) error {
	for _, d := range v.Desigs {
		if _, ok := g.vertexMap[d]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateVertex, d)
		}
	}
	v.ID = VertexID(len(g.vertices))
	g.vertices = append(g.vertices, v)
	for _, d := range v.Desigs {
		g.vertexMap[d] = v.ID
	}
	for _, t := range v.Tiles() {
		g.tileVertices[t] = append(g.tileVertices[t], v.ID)
	}
	return nil
}

// AddNet adds the vertex of a net.
func (g *Graph) AddNet(n chipdb.NetData) (*Vertex, error) {
	if len(n.Segment) == 0 {
		return nil, fmt.Errorf("%w: net without segment entries", ErrConfig)
	}
	for _, d := range n.Drivers {
		if d < 0 || d >= len(n.Segment) {
			return nil, fmt.Errorf("%w: driver %d of %s out of range", ErrConfig, d, n.Segment)
		}
	}
	desigs := make([]VertexDesig, len(n.Segment))
	for i, e := range n.Segment {
		desigs[i] = SegEntryDesig(e)
	}
	v := &Vertex{
		Kind:         KindCon,
		Desigs:       desigs,
		Configurable: !n.HardDriven,
		Drivers:      slices.Clone(n.Drivers),
		Available:    true,
		Used:         true,
	}
	if err := g.addVertex(v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddLUT adds the vertex of a LUT from its config items.
func (g *Graph) AddLUT(items []chipdb.IndexedItem) (*Vertex, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: LUT without config items", ErrConfig)
	}
	index := items[0].Index
	data := &LUTData{Index: index}
	for _, it := range items {
		if it.Index != index {
			return nil, fmt.Errorf("%w: items of LUT %d and %d mixed", ErrConfig, index, it.Index)
		}
		switch it.Kind {
		case chipdb.KindDffEnable:
			data.Bits.DffEnable = it.Bits
		case chipdb.KindSetNoReset:
			data.Bits.SetNoReset = it.Bits
		case chipdb.KindAsyncSetReset:
			data.Bits.AsyncSetReset = it.Bits
		case chipdb.KindTruthTable:
			data.Bits.TruthTable = it.Bits
		case chipdb.KindCarryEnable:
			data.CarryEnable = it.Bits
		}
	}
	for i, bits := range data.Bits.Groups() {
		if len(bits) == 0 {
			return nil, fmt.Errorf("%w: LUT %d has no %s bits", ErrConfig, index, LUTBitNames[i])
		}
	}
	tile := data.Bits.TruthTable[0].Tile
	for _, bits := range append(data.Bits.Groups(), data.CarryEnable) {
		for _, b := range bits {
			if b.Tile != tile {
				return nil, fmt.Errorf("%w: LUT %d bit %s outside tile %s", ErrConfig, index, b, tile)
			}
		}
	}

	v := &Vertex{
		Kind:         KindLUT,
		Desigs:       []VertexDesig{LUTDesig(tile, index)},
		Configurable: true,
		Drivers:      []int{0},
		Available:    true,
		Used:         true,
		LUT:          data,
	}
	if err := g.addVertex(v); err != nil {
		return nil, err
	}
	for _, bits := range data.Bits.Groups() {
		if err := g.registerBits(bits, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ConnectLUT adds the edges from the input nets to LUT index and from the
// LUT to its output nets. Input order is kept.
func (g *Graph) ConnectLUT(tile chipdb.Tile, index int, io chipdb.LUTIO) error {
	for _, in := range io.In {
		if _, err := g.AddEdge(NetToLUT(tile, in, index)); err != nil {
			return err
		}
	}
	for _, out := range io.Out {
		if _, err := g.AddEdge(LUTToNet(tile, index, out)); err != nil {
			return err
		}
	}
	return nil
}

// AddSourceGroup adds a connection item to its destination net.
func (g *Graph) AddSourceGroup(item chipdb.ConnectionItem) error {
	if len(item.Bits) == 0 {
		return fmt.Errorf("%w: connection to %s without bits", ErrConfig, item.DstNet)
	}
	if len(item.Values) != len(item.SrcNets) {
		return fmt.Errorf("%w: %s has %d values for %d sources", ErrConfig, item.Identifier(), len(item.Values), len(item.SrcNets))
	}
	tile := item.Bits[0].Tile
	dst := NetDesig(tile, item.DstNet)
	v, err := g.Vertex(dst)
	if err != nil {
		return err
	}

	for i, vals := range item.Values {
		if len(vals) != len(item.Bits) {
			return fmt.Errorf("%w: %s value %d has %d entries for %d bits", ErrConfig, item.Identifier(), i, len(vals), len(item.Bits))
		}
	}

	values, srcs := g.withUnconnected(tile, item)

	sg := SourceGroup{Bits: slices.Clone(item.Bits), Dst: dst}
	var edges []EdgeDesig
	for i, src := range srcs {
		ed := EdgeDesig{Src: NetDesig(tile, src), Dst: dst}
		sg.Options = append(sg.Options, SourceOption{Edge: ed, Values: slices.Clone(values[i])})
		if src == chipdb.UnconnectedName && g.HasEdge(ed) {
			// several source groups of one net share the unconnected edge
			continue
		}
		if g.HasEdge(ed) || slices.Contains(edges, ed) {
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, ed)
		}
		if _, err := g.Vertex(ed.Src); err != nil {
			return fmt.Errorf("source of edge %s: %w", ed, err)
		}
		edges = append(edges, ed)
	}

	// edges and the group are only added once the bits are claimed
	if err := g.registerBits(sg.Bits, v); err != nil {
		return err
	}
	for _, ed := range edges {
		if _, err := g.AddEdge(ed); err != nil {
			return err
		}
	}
	v.SrcGroups = append(v.SrcGroups, sg)
	return nil
}

// withUnconnected returns the sources of the item with the unconnected
// option added if it is missing and the all false pattern is free. The
// unconnected net of the tile is created when a source refers to it.
func (g *Graph) withUnconnected(tile chipdb.Tile, item chipdb.ConnectionItem) ([][]bool, []string) {
	if slices.Contains(item.SrcNets, chipdb.UnconnectedName) {
		g.ensureUnconnected(tile)
		return item.Values, item.SrcNets
	}
	for _, vals := range item.Values {
		if !slices.Contains(vals, true) {
			// pattern taken, the net can't be disconnected
			return item.Values, item.SrcNets
		}
	}
	g.ensureUnconnected(tile)
	values := append([][]bool{make([]bool, len(item.Bits))}, item.Values...)
	srcs := append([]string{chipdb.UnconnectedName}, item.SrcNets...)
	g.logger.Debug("added unconnected option", slog.String("item", item.Identifier()))
	return values, srcs
}

func (g *Graph) ensureUnconnected(tile chipdb.Tile) {
	d := NetDesig(tile, chipdb.UnconnectedName)
	if _, ok := g.vertexMap[d]; ok {
		return
	}
	v := &Vertex{
		Kind:      KindCon,
		Desigs:    []VertexDesig{d},
		Drivers:   []int{0},
		Available: true,
		Used:      true,
	}
	// can't fail, the designator is new
	_ = g.addVertex(v)
	g.logger.Debug("added unconnected net", slog.String("tile", tile.String()))
}

// AddEdge adds an edge between two existing vertices of the same tile.
func (g *Graph) AddEdge(d EdgeDesig) (*Edge, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if g.HasEdge(d) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, d)
	}
	src, err := g.Vertex(d.Src)
	if err != nil {
		return nil, fmt.Errorf("source of edge %s: %w", d, err)
	}
	dst, err := g.Vertex(d.Dst)
	if err != nil {
		return nil, fmt.Errorf("destination of edge %s: %w", d, err)
	}
	e := &Edge{
		ID:        EdgeID(len(g.edges)),
		Desig:     d,
		Available: true,
		Used:      true,
		src:       src.ID,
		dst:       dst.ID,
	}
	g.edges = append(g.edges, e)
	g.edgeMap[d] = e.ID
	g.tileEdges[d.Tile()] = append(g.tileEdges[d.Tile()], e.ID)
	src.out = append(src.out, e.ID)
	dst.in = append(dst.in, e.ID)
	return e, nil
}

func (g *Graph) registerBits(bits []chipdb.Bit, v *Vertex) error {
	for _, b := range bits {
		if owner, ok := g.bitMap[b]; ok {
			return fmt.Errorf("%w: %s by %s and %s", ErrDuplicateBit, b, g.vertices[owner].Desig(), v.Desig())
		}
	}
	for _, b := range bits {
		g.bitMap[b] = v.ID
	}
	return nil
}

// Vertex looks up a vertex by any of its designators.
func (g *Graph) Vertex(d VertexDesig) (*Vertex, error) {
	id, ok := g.vertexMap[d]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %s", ErrNotFound, d)
	}
	return g.vertices[id], nil
}

func (g *Graph) Edge(d EdgeDesig) (*Edge, error) {
	id, ok := g.edgeMap[d]
	if !ok {
		return nil, fmt.Errorf("%w: edge %s", ErrNotFound, d)
	}
	return g.edges[id], nil
}

func (g *Graph) HasEdge(d EdgeDesig) bool {
	_, ok := g.edgeMap[d]
	return ok
}

// VertexForBit returns the vertex owning a configuration bit.
func (g *Graph) VertexForBit(b chipdb.Bit) (*Vertex, error) {
	id, ok := g.bitMap[b]
	if !ok {
		return nil, fmt.Errorf("%w: bit %s", ErrNotFound, b)
	}
	return g.vertices[id], nil
}

// VerticesOfTile returns the vertices with a designator in the tile, in
// insertion order.
func (g *Graph) VerticesOfTile(t chipdb.Tile) []*Vertex {
	ids := g.tileVertices[t]
	out := make([]*Vertex, len(ids))
	for i, id := range ids {
		out[i] = g.vertices[id]
	}
	return out
}

// EdgesOfTile returns the edges of the tile in insertion order.
func (g *Graph) EdgesOfTile(t chipdb.Tile) []*Edge {
	ids := g.tileEdges[t]
	out := make([]*Edge, len(ids))
	for i, id := range ids {
		out[i] = g.edges[id]
	}
	return out
}

// Vertices returns all vertices in insertion order. The slice is owned by
// the graph.
func (g *Graph) Vertices() []*Vertex {
	return g.vertices
}

// Edges returns all edges in insertion order. The slice is owned by the graph.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// LUTVertices returns the LUT vertices in insertion order.
func (g *Graph) LUTVertices() []*Vertex {
	var out []*Vertex
	for _, v := range g.vertices {
		if v.Kind == KindLUT {
			out = append(out, v)
		}
	}
	return out
}

// BitCount is the number of registered configuration bits.
func (g *Graph) BitCount() int {
	return len(g.bitMap)
}

func (g *Graph) Src(e *Edge) *Vertex {
	return g.vertices[e.src]
}

func (g *Graph) Dst(e *Edge) *Vertex {
	return g.vertices[e.dst]
}

func (g *Graph) InEdges(v *Vertex) []*Edge {
	out := make([]*Edge, len(v.in))
	for i, id := range v.in {
		out[i] = g.edges[id]
	}
	return out
}

func (g *Graph) OutEdges(v *Vertex) []*Edge {
	out := make([]*Edge, len(v.out))
	for i, id := range v.out {
		out[i] = g.edges[id]
	}
	return out
}

// Usable reports whether an edge and its source are available and used.
func (g *Graph) Usable(e *Edge) bool {
	src := g.Src(e)
	return e.Available && e.Used && src.Available && src.Used
}
