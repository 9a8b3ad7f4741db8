package chipdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrUnknownTile is returned for tiles the database has no data for.
	ErrUnknownTile = errors.New("unknown tile")

	// ErrInconsistent is returned when the tables reference each other incorrectly.
	ErrInconsistent = errors.New("inconsistent chip database")
)

// Database is the read only view of the chip topology the representation
// engine works on.
type Database interface {
	// NetData returns all nets with at least one entry in one of the tiles,
	// sorted and free of duplicates.
	NetData(tiles []Tile) ([]NetData, error)
	// ConfigItems returns the configuration items of a tile.
	ConfigItems(tile Tile) (ConfigAssemblage, error)
	// ColBufCtrlTiles returns the sorted tiles holding the column buffer
	// controls responsible for the given tiles.
	ColBufCtrlTiles(tiles []Tile) ([]Tile, error)
	// ColBufCtrlItems resolves column buffer controls to their config items.
	ColBufCtrlItems(cbcs []ColBufCtrl) ([]IndexedItem, error)
	// TileType classifies a tile.
	TileType(tile Tile) TileType
}

// RawBit is a (group, index) pair relative to a tile.
type RawBit [2]int

type RawSource struct {
	Values []bool `json:"values" yaml:"values"`
	Net    string `json:"net" yaml:"net"`
}

type RawConnection struct {
	Bits    []RawBit    `json:"bits" yaml:"bits" validate:"min=1"`
	Dst     string      `json:"dst" yaml:"dst" validate:"required"`
	Sources []RawSource `json:"sources" yaml:"sources" validate:"min=1"`
}

type RawItem struct {
	Bits []RawBit `json:"bits" yaml:"bits" validate:"min=1"`
	Kind string   `json:"kind" yaml:"kind" validate:"required"`
}

type RawNamed struct {
	Bits []RawBit `json:"bits" yaml:"bits" validate:"min=1"`
	Name string   `json:"name" yaml:"name"`
}

// RawConfig holds the config items of a tile kind with tile relative bits.
type RawConfig struct {
	Connection []RawConnection `json:"connection,omitempty" yaml:"connection,omitempty" validate:"dive"`
	Tile       []RawItem       `json:"tile,omitempty" yaml:"tile,omitempty" validate:"dive"`
	LUT        [][]RawItem     `json:"lut,omitempty" yaml:"lut,omitempty" validate:"dive,dive"`
	LUTIO      []LUTIO         `json:"lut_io,omitempty" yaml:"lut_io,omitempty"`
	ColBufCtrl [][]RawBit      `json:"col_buf_ctrl,omitempty" yaml:"col_buf_ctrl,omitempty"`
	RAMConfig  []RawNamed      `json:"ram_config,omitempty" yaml:"ram_config,omitempty" validate:"dive"`
	RAMCascade []RawNamed      `json:"ram_cascade,omitempty" yaml:"ram_cascade,omitempty" validate:"dive"`
}

type TileSegRefs struct {
	Tile Tile     `json:"tile" yaml:"tile"`
	Refs []SegRef `json:"refs" yaml:"refs" validate:"min=1"`
}

type KindTiles struct {
	Kind  int    `json:"kind" yaml:"kind" validate:"gte=0"`
	Tiles []Tile `json:"tiles" yaml:"tiles" validate:"min=1"`
}

// ColBufCtrlRegion maps the tiles served by the column buffer controls of Tile.
type ColBufCtrlRegion struct {
	Tile  Tile   `json:"tile" yaml:"tile"`
	Tiles []Tile `json:"tiles" yaml:"tiles" validate:"min=1"`
}

type TileTypeGroup struct {
	Type  string `json:"type" yaml:"type" validate:"oneof=logic io ramb ramt"`
	Tiles []Tile `json:"tiles" yaml:"tiles"`
}

// Data is a table backed Database. Nets are stored as segment kinds that are
// relocated to the requested tile, config items as deduplicated tile kinds.
type Data struct {
	Name        string             `json:"name" yaml:"name"`
	SegKinds    []Segment          `json:"seg_kinds" yaml:"seg_kinds" validate:"dive,min=1"`
	DrvKinds    []DriverKind       `json:"drv_kinds" yaml:"drv_kinds"`
	SegTiles    []TileSegRefs      `json:"seg_tiles" yaml:"seg_tiles" validate:"dive"`
	ConfigKinds []RawConfig        `json:"config_kinds" yaml:"config_kinds" validate:"dive"`
	ConfigTiles []KindTiles        `json:"config_tiles" yaml:"config_tiles" validate:"dive"`
	ColBufCtrl  []ColBufCtrlRegion `json:"col_buf_ctrl" yaml:"col_buf_ctrl" validate:"dive"`
	TileTypes   []TileTypeGroup    `json:"tile_types" yaml:"tile_types" validate:"dive"`

	once   sync.Once
	idx    *dataIndex
	idxErr error
}

type dataIndex struct {
	segRefs    map[Tile][]SegRef
	configKind map[Tile]int
	colBufCtrl map[Tile]Tile
	tileTypes  map[Tile]TileType
}

var tileTypeNames = map[string]TileType{
	"logic": TileLogic,
	"io":    TileIO,
	"ramb":  TileRAMBottom,
	"ramt":  TileRAMTop,
}

func (d *Data) index() (*dataIndex, error) {
	d.once.Do(func() {
		d.idx, d.idxErr = d.buildIndex()
	})
	return d.idx, d.idxErr
}

func (d *Data) buildIndex() (*dataIndex, error) {
	if len(d.SegKinds) != len(d.DrvKinds) {
		return nil, fmt.Errorf("%w: %d segment kinds but %d driver kinds", ErrInconsistent, len(d.SegKinds), len(d.DrvKinds))
	}
	for i, drv := range d.DrvKinds {
		for _, j := range drv.Drivers {
			if j < 0 || j >= len(d.SegKinds[i]) {
				return nil, fmt.Errorf("%w: driver %d of segment kind %d out of range", ErrInconsistent, j, i)
			}
		}
		if drv.HardDriven && len(drv.Drivers) > 1 {
			return nil, fmt.Errorf("%w: segment kind %d hard driven by %d drivers", ErrInconsistent, i, len(drv.Drivers))
		}
	}

	idx := &dataIndex{
		segRefs:    make(map[Tile][]SegRef, len(d.SegTiles)),
		configKind: make(map[Tile]int),
		colBufCtrl: make(map[Tile]Tile),
		tileTypes:  make(map[Tile]TileType),
	}
	for _, st := range d.SegTiles {
		for _, ref := range st.Refs {
			if ref.Kind < 0 || ref.Kind >= len(d.SegKinds) || ref.Role < 0 || ref.Role >= len(d.SegKinds[ref.Kind]) {
				return nil, fmt.Errorf("%w: bad segment reference %+v in tile %s", ErrInconsistent, ref, st.Tile)
			}
		}
		idx.segRefs[st.Tile] = append(idx.segRefs[st.Tile], st.Refs...)
	}
	for _, kt := range d.ConfigTiles {
		if kt.Kind < 0 || kt.Kind >= len(d.ConfigKinds) {
			return nil, fmt.Errorf("%w: config kind %d out of range", ErrInconsistent, kt.Kind)
		}
		for _, t := range kt.Tiles {
			if prev, ok := idx.configKind[t]; ok && prev != kt.Kind {
				return nil, fmt.Errorf("%w: tile %s has config kinds %d and %d", ErrInconsistent, t, prev, kt.Kind)
			}
			idx.configKind[t] = kt.Kind
		}
	}
	for _, tile := range sortedTiles(idx.configKind) {
		if err := d.checkNetNames(tile, d.ConfigKinds[idx.configKind[tile]], idx.segRefs[tile]); err != nil {
			return nil, err
		}
	}
	for _, region := range d.ColBufCtrl {
		for _, t := range region.Tiles {
			idx.colBufCtrl[t] = region.Tile
		}
	}
	for _, group := range d.TileTypes {
		tt, ok := tileTypeNames[group.Type]
		if !ok {
			return nil, fmt.Errorf("%w: unknown tile type %q", ErrInconsistent, group.Type)
		}
		for _, t := range group.Tiles {
			idx.tileTypes[t] = tt
		}
	}
	return idx, nil
}

// checkNetNames verifies that every net a config kind refers to is an entry
// of a segment in the tile. The unconnected net may be left implicit.
func (d *Data) checkNetNames(tile Tile, raw RawConfig, refs []SegRef) error {
	names := make(map[string]bool, len(refs))
	for _, ref := range refs {
		names[d.SegKinds[ref.Kind][ref.Role].Name] = true
	}
	missing := func(what, name string) error {
		return fmt.Errorf("%w: %s %q of tile %s is not a net of the tile", ErrInconsistent, what, name, tile)
	}
	for _, con := range raw.Connection {
		if !names[con.Dst] {
			return missing("connection destination", con.Dst)
		}
		for _, src := range con.Sources {
			if src.Net != UnconnectedName && !names[src.Net] {
				return missing("source of "+con.Dst, src.Net)
			}
		}
	}
	for _, io := range raw.LUTIO {
		for _, name := range slices.Concat(io.In, io.Out) {
			if !names[name] {
				return missing("LUT net", name)
			}
		}
	}
	return nil
}

// Check builds the lookup tables and reports reference errors.
func (d *Data) Check() error {
	_, err := d.index()
	return err
}

func (d *Data) NetData(tiles []Tile) ([]NetData, error) {
	idx, err := d.index()
	if err != nil {
		return nil, err
	}
	var nets []NetData
	for _, tile := range tiles {
		refs, ok := idx.segRefs[tile]
		if !ok {
			if _, known := idx.configKind[tile]; known {
				continue
			}
			return nil, fmt.Errorf("net data for %s: %w", tile, ErrUnknownTile)
		}
		tileNets, err := NetDataForTile(d.SegKinds, d.DrvKinds, tile, refs)
		if err != nil {
			return nil, err
		}
		nets = append(nets, tileNets...)
	}
	return SortNetData(nets), nil
}

func (d *Data) ConfigItems(tile Tile) (ConfigAssemblage, error) {
	idx, err := d.index()
	if err != nil {
		return ConfigAssemblage{}, err
	}
	kind, ok := idx.configKind[tile]
	if !ok {
		return ConfigAssemblage{}, fmt.Errorf("config items for %s: %w", tile, ErrUnknownTile)
	}
	return AssemblageFromRaw(tile, d.ConfigKinds[kind]), nil
}

func (d *Data) ColBufCtrlTiles(tiles []Tile) ([]Tile, error) {
	idx, err := d.index()
	if err != nil {
		return nil, err
	}
	seen := make(map[Tile]bool)
	var out []Tile
	for _, tile := range tiles {
		cbc, ok := idx.colBufCtrl[tile]
		if !ok {
			return nil, fmt.Errorf("column buffer control for %s: %w", tile, ErrUnknownTile)
		}
		if !seen[cbc] {
			seen[cbc] = true
			out = append(out, cbc)
		}
	}
	slices.SortFunc(out, Tile.Compare)
	return out, nil
}

func (d *Data) ColBufCtrlItems(cbcs []ColBufCtrl) ([]IndexedItem, error) {
	items := make([]IndexedItem, 0, len(cbcs))
	for _, cbc := range cbcs {
		assem, err := d.ConfigItems(cbc.Tile)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(assem.ColBufCtrl, func(it IndexedItem) bool { return it.Index == cbc.Z })
		if i < 0 {
			return nil, fmt.Errorf("column buffer control %s: %w", cbc, ErrUnknownTile)
		}
		items = append(items, assem.ColBufCtrl[i])
	}
	return items, nil
}

func (d *Data) TileType(tile Tile) TileType {
	idx, err := d.index()
	if err != nil {
		return TileUnknown
	}
	return idx.tileTypes[tile]
}

// Compile builds the tables from explicit nets and per tile raw configs.
// Segments are reduced to kinds relative to their smallest entry, configs
// with identical content share one kind.
func Compile(name string, nets []NetData, configs map[Tile]RawConfig, colBufCtrl map[Tile]Tile, types map[Tile]TileType) (*Data, error) {
	d := &Data{Name: name}

	kindIndex := make(map[string]int)
	tileRefs := make(map[Tile]map[SegRef]bool)
	for _, net := range SortNetData(nets) {
		seg := slices.Clone(net.Segment)
		if len(seg) == 0 {
			return nil, fmt.Errorf("%w: empty segment", ErrInconsistent)
		}
		if !slices.IsSortedFunc(seg, SegEntry.Compare) {
			return nil, fmt.Errorf("%w: segment %s not sorted", ErrInconsistent, seg)
		}
		base := seg[0]
		kind := make(Segment, len(seg))
		for i, e := range seg {
			kind[i] = SegEntry{X: e.X - base.X, Y: e.Y - base.Y, Name: e.Name}
		}
		key := fmt.Sprintf("%s|%t|%v", kind, net.HardDriven, net.Drivers)
		ki, ok := kindIndex[key]
		if !ok {
			ki = len(d.SegKinds)
			kindIndex[key] = ki
			d.SegKinds = append(d.SegKinds, kind)
			d.DrvKinds = append(d.DrvKinds, DriverKind{HardDriven: net.HardDriven, Drivers: append([]int(nil), net.Drivers...)})
		}
		for role, e := range seg {
			refs := tileRefs[e.Tile()]
			if refs == nil {
				refs = make(map[SegRef]bool)
				tileRefs[e.Tile()] = refs
			}
			refs[SegRef{Kind: ki, Role: role}] = true
		}
	}
	for _, tile := range sortedTiles(tileRefs) {
		refs := make([]SegRef, 0, len(tileRefs[tile]))
		for ref := range tileRefs[tile] {
			refs = append(refs, ref)
		}
		slices.SortFunc(refs, func(a, b SegRef) int {
			if a.Kind != b.Kind {
				return a.Kind - b.Kind
			}
			return a.Role - b.Role
		})
		d.SegTiles = append(d.SegTiles, TileSegRefs{Tile: tile, Refs: refs})
	}

	confIndex := make(map[string]int)
	confTiles := make(map[int][]Tile)
	for _, tile := range sortedTiles(configs) {
		raw, err := json.Marshal(configs[tile])
		if err != nil {
			return nil, fmt.Errorf("encoding config of %s: %w", tile, err)
		}
		ci, ok := confIndex[string(raw)]
		if !ok {
			ci = len(d.ConfigKinds)
			confIndex[string(raw)] = ci
			d.ConfigKinds = append(d.ConfigKinds, configs[tile])
		}
		confTiles[ci] = append(confTiles[ci], tile)
	}
	for ci := range d.ConfigKinds {
		d.ConfigTiles = append(d.ConfigTiles, KindTiles{Kind: ci, Tiles: confTiles[ci]})
	}

	regions := make(map[Tile][]Tile)
	for tile, cbc := range colBufCtrl {
		regions[cbc] = append(regions[cbc], tile)
	}
	for _, cbc := range sortedTiles(regions) {
		tiles := regions[cbc]
		slices.SortFunc(tiles, Tile.Compare)
		d.ColBufCtrl = append(d.ColBufCtrl, ColBufCtrlRegion{Tile: cbc, Tiles: tiles})
	}

	byType := make(map[TileType][]Tile)
	for tile, tt := range types {
		byType[tt] = append(byType[tt], tile)
	}
	for _, tt := range []TileType{TileLogic, TileIO, TileRAMBottom, TileRAMTop} {
		tiles := byType[tt]
		if len(tiles) == 0 {
			continue
		}
		slices.SortFunc(tiles, Tile.Compare)
		d.TileTypes = append(d.TileTypes, TileTypeGroup{Type: tt.String(), Tiles: tiles})
	}

	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func sortedTiles[V any](m map[Tile]V) []Tile {
	tiles := make([]Tile, 0, len(m))
	for t := range m {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, Tile.Compare)
	return tiles
}
