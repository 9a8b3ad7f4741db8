package chipdb

import "fmt"

// ConfigItem is a group of configuration bits with a kind, e.g. "NegClk".
type ConfigItem struct {
	Bits []Bit  `json:"bits"`
	Kind string `json:"kind"`
}

func (c ConfigItem) Identifier() string {
	return fmt.Sprintf("%02d%02d_%s", c.Bits[0].X, c.Bits[0].Y, c.Kind)
}

// IndexedItem is a config item belonging to an indexed resource (LUT, ColBufCtrl).
type IndexedItem struct {
	ConfigItem
	Index int `json:"index"`
}

func (c IndexedItem) Identifier() string {
	return fmt.Sprintf("%s_%d", c.ConfigItem.Identifier(), c.Index)
}

// ConnectionItem selects which of SrcNets drives DstNet. Values[i] is the bit
// pattern selecting SrcNets[i].
type ConnectionItem struct {
	ConfigItem
	DstNet  string   `json:"dst_net"`
	Values  [][]bool `json:"values"`
	SrcNets []string `json:"src_nets"`
}

func (c ConnectionItem) Identifier() string {
	return fmt.Sprintf("%s_%s", c.ConfigItem.Identifier(), c.DstNet)
}

// NamedItem is a config item with a free form name (RAM configuration).
type NamedItem struct {
	ConfigItem
	Name string `json:"name"`
}

func (c NamedItem) Identifier() string {
	return fmt.Sprintf("%s_%s", c.ConfigItem.Identifier(), c.Name)
}

// LUTIO lists the nets connected to a LUT. Input order is the multiplexer select order.
type LUTIO struct {
	In  []string `json:"in" yaml:"in"`
	Out []string `json:"out" yaml:"out"`
}

// ConfigAssemblage collects the config items of one tile grouped by kind.
type ConfigAssemblage struct {
	Connection []ConnectionItem `json:"connection,omitempty"`
	Tile       []ConfigItem     `json:"tile,omitempty"`
	LUT        [][]IndexedItem  `json:"lut,omitempty"`
	LUTIO      []LUTIO          `json:"lut_io,omitempty"`
	ColBufCtrl []IndexedItem    `json:"col_buf_ctrl,omitempty"`
	RAMConfig  []NamedItem      `json:"ram_config,omitempty"`
	RAMCascade []NamedItem      `json:"ram_cascade,omitempty"`
}

// Clone copies the item slices so the copy can be modified independently.
func (a ConfigAssemblage) Clone() ConfigAssemblage {
	return ConfigAssemblage{
		Connection: append([]ConnectionItem(nil), a.Connection...),
		Tile:       append([]ConfigItem(nil), a.Tile...),
		LUT:        append([][]IndexedItem(nil), a.LUT...),
		LUTIO:      append([]LUTIO(nil), a.LUTIO...),
		ColBufCtrl: append([]IndexedItem(nil), a.ColBufCtrl...),
		RAMConfig:  append([]NamedItem(nil), a.RAMConfig...),
		RAMCascade: append([]NamedItem(nil), a.RAMCascade...),
	}
}

// AssemblageFromRaw places the relative bits of a raw config on a tile.
func AssemblageFromRaw(tile Tile, raw RawConfig) ConfigAssemblage {
	var a ConfigAssemblage
	for _, con := range raw.Connection {
		item := ConnectionItem{
			ConfigItem: ConfigItem{Bits: BitsFromRaw(tile, con.Bits), Kind: "connection"},
			DstNet:     con.Dst,
		}
		for _, src := range con.Sources {
			item.Values = append(item.Values, append([]bool(nil), src.Values...))
			item.SrcNets = append(item.SrcNets, src.Net)
		}
		a.Connection = append(a.Connection, item)
	}
	for _, t := range raw.Tile {
		a.Tile = append(a.Tile, ConfigItem{Bits: BitsFromRaw(tile, t.Bits), Kind: t.Kind})
	}
	for i, lut := range raw.LUT {
		items := make([]IndexedItem, 0, len(lut))
		for _, l := range lut {
			items = append(items, IndexedItem{
				ConfigItem: ConfigItem{Bits: BitsFromRaw(tile, l.Bits), Kind: l.Kind},
				Index:      i,
			})
		}
		a.LUT = append(a.LUT, items)
	}
	a.LUTIO = append(a.LUTIO, raw.LUTIO...)
	for i, bits := range raw.ColBufCtrl {
		a.ColBufCtrl = append(a.ColBufCtrl, IndexedItem{
			ConfigItem: ConfigItem{Bits: BitsFromRaw(tile, bits), Kind: KindColBufCtrl},
			Index:      i,
		})
	}
	for _, n := range raw.RAMConfig {
		a.RAMConfig = append(a.RAMConfig, NamedItem{
			ConfigItem: ConfigItem{Bits: BitsFromRaw(tile, n.Bits), Kind: "RamConfig"},
			Name:       n.Name,
		})
	}
	for _, n := range raw.RAMCascade {
		a.RAMCascade = append(a.RAMCascade, NamedItem{
			ConfigItem: ConfigItem{Bits: BitsFromRaw(tile, n.Bits), Kind: "RamCascade"},
			Name:       n.Name,
		})
	}
	return a
}
