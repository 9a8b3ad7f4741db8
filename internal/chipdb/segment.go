package chipdb

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SegEntry is one tile local occurrence of a net.
type SegEntry struct {
	X    int    `json:"x" yaml:"x"`
	Y    int    `json:"y" yaml:"y"`
	Name string `json:"name" yaml:"name"`
}

func (e SegEntry) Tile() Tile {
	return Tile{X: e.X, Y: e.Y}
}

func (e SegEntry) Compare(o SegEntry) int {
	if c := cmp.Compare(e.X, o.X); c != 0 {
		return c
	}
	if c := cmp.Compare(e.Y, o.Y); c != 0 {
		return c
	}
	return cmp.Compare(e.Name, o.Name)
}

// Segment lists all occurrences of one net.
type Segment []SegEntry

func (s Segment) Compare(o Segment) int {
	return slices.CompareFunc(s, o, SegEntry.Compare)
}

func (s Segment) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = fmt.Sprintf("(%d, %d, %s)", e.X, e.Y, e.Name)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// DriverKind describes how a net is driven. HardDriven nets have a fixed
// source, Drivers are the indices of the segment entries that can drive it.
type DriverKind struct {
	HardDriven bool  `json:"hard_driven" yaml:"hard_driven"`
	Drivers    []int `json:"drivers" yaml:"drivers"`
}

// NetData is a net segment with its driver classification.
type NetData struct {
	Segment    Segment `json:"segment"`
	HardDriven bool    `json:"hard_driven"`
	Drivers    []int   `json:"drivers"`
}

func NewNetData(seg Segment, hardDriven bool, drivers ...int) NetData {
	return NetData{Segment: seg, HardDriven: hardDriven, Drivers: drivers}
}

// Compare orders by segment, then hard_driven (false first), then drivers.
func (n NetData) Compare(o NetData) int {
	if c := n.Segment.Compare(o.Segment); c != 0 {
		return c
	}
	if n.HardDriven != o.HardDriven {
		if !n.HardDriven {
			return -1
		}
		return 1
	}
	return slices.Compare(n.Drivers, o.Drivers)
}

func (n NetData) key() string {
	return fmt.Sprintf("%s|%t|%v", n.Segment, n.HardDriven, n.Drivers)
}

// SegRef references entry Role of segment kind Kind.
type SegRef struct {
	Kind int `json:"kind" yaml:"kind"`
	Role int `json:"role" yaml:"role"`
}

// SegFromSegKind relocates a segment kind so that entry role lies in tile.
func SegFromSegKind(kind Segment, tile Tile, role int) Segment {
	xOff := tile.X - kind[role].X
	yOff := tile.Y - kind[role].Y
	seg := make(Segment, len(kind))
	for i, e := range kind {
		seg[i] = SegEntry{X: e.X + xOff, Y: e.Y + yOff, Name: e.Name}
	}
	return seg
}

// NetDataForTile creates the net data of all segments referenced by a tile.
func NetDataForTile(kinds []Segment, drivers []DriverKind, tile Tile, refs []SegRef) ([]NetData, error) {
	nets := make([]NetData, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind < 0 || ref.Kind >= len(kinds) || ref.Kind >= len(drivers) {
			return nil, fmt.Errorf("segment kind %d of tile %s out of range", ref.Kind, tile)
		}
		kind := kinds[ref.Kind]
		if ref.Role < 0 || ref.Role >= len(kind) {
			return nil, fmt.Errorf("role %d of segment kind %d out of range", ref.Role, ref.Kind)
		}
		drv := drivers[ref.Kind]
		nets = append(nets, NetData{
			Segment:    SegFromSegKind(kind, tile, ref.Role),
			HardDriven: drv.HardDriven,
			Drivers:    append([]int(nil), drv.Drivers...),
		})
	}
	return nets, nil
}

// SortNetData sorts and removes duplicates.
func SortNetData(nets []NetData) []NetData {
	seen := make(map[string]bool, len(nets))
	out := make([]NetData, 0, len(nets))
	for _, n := range nets {
		k := n.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	slices.SortFunc(out, NetData.Compare)
	return out
}
