package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/repgen"
)

// Contract checks a decoded request document before it is converted.
type Contract interface {
	Validate(data any) error
}

// TileSpec is a tile written as [x, y], {x: .., y: ..} or one of the
// wildcards "all" and "all_logic".
type TileSpec chipdb.Tile

func (t *TileSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "all":
			*t = TileSpec{X: chipdb.TileAll, Y: chipdb.TileAll}
		case "all_logic":
			*t = TileSpec{X: chipdb.TileAllLogic, Y: chipdb.TileAllLogic}
		default:
			return fmt.Errorf("line %d: unknown tile wildcard %q", node.Line, node.Value)
		}
		return nil
	case yaml.SequenceNode:
		var xy []int
		if err := node.Decode(&xy); err != nil {
			return err
		}
		if len(xy) != 2 {
			return fmt.Errorf("line %d: tile needs 2 coordinates, got %d", node.Line, len(xy))
		}
		*t = TileSpec{X: xy[0], Y: xy[1]}
	case yaml.MappingNode:
		var tile chipdb.Tile
		if err := node.Decode(&tile); err != nil {
			return err
		}
		*t = TileSpec(tile)
	default:
		return fmt.Errorf("line %d: invalid tile", node.Line)
	}
	if t.X < 0 || t.Y < 0 {
		return fmt.Errorf("line %d: negative tile coordinate", node.Line)
	}
	return nil
}

// Rectangle is a closed range of tiles.
type Rectangle struct {
	XMin int `yaml:"x_min"`
	YMin int `yaml:"y_min"`
	XMax int `yaml:"x_max"`
	YMax int `yaml:"y_max"`
}

type ResourceSpec struct {
	Tile TileSpec `yaml:"tile"`
	Name string   `yaml:"name"`
}

type ConnectionSpec struct {
	Tile TileSpec `yaml:"tile"`
	Src  string   `yaml:"src"`
	Dst  string   `yaml:"dst"`
}

// ConstraintSpec is a gene constraint. With Tile set the bits are
// [group, index] pairs of that tile, otherwise [x, y, group, index].
type ConstraintSpec struct {
	Tile   *TileSpec `yaml:"tile"`
	Bits   [][]int   `yaml:"bits"`
	Values []string  `yaml:"values"`
}

// RequestFile is the on-disk form of a request.
type RequestFile struct {
	Name               string           `yaml:"name"`
	Description        string           `yaml:"description"`
	Tiles              []TileSpec       `yaml:"tiles"`
	Rectangle          *Rectangle       `yaml:"rectangle"`
	Output             [][]int          `yaml:"output"`
	LUTFunctions       []string         `yaml:"lut_functions"`
	PruneNoViableSrc   bool             `yaml:"prune_no_viable_src"`
	ExcludeResources   []ResourceSpec   `yaml:"exclude_resources"`
	IncludeResources   []ResourceSpec   `yaml:"include_resources"`
	ExcludeConnections []ConnectionSpec `yaml:"exclude_connections"`
	IncludeConnections []ConnectionSpec `yaml:"include_connections"`
	GeneConstraints    []ConstraintSpec `yaml:"gene_constraints"`
}

// LoadRequest reads a request file. YAML and JSON are both accepted.
func LoadRequest(path string, contract Contract) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	rf, err := ParseRequest(data, contract)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	return rf, nil
}

// ParseRequest decodes a request document. When contract is not nil the
// generic document is checked against it first.
func ParseRequest(data []byte, contract Contract) (*RequestFile, error) {
	if contract != nil {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing request: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		if err := contract.Validate(doc); err != nil {
			return nil, err
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var rf RequestFile
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing request: %w", err)
	}
	return &rf, nil
}

// Request converts the file to the generator input.
func (rf *RequestFile) Request() (repgen.Request, error) {
	var req repgen.Request

	for _, t := range rf.Tiles {
		if chipdb.Tile(t).IsWildcard() {
			return req, fmt.Errorf("%w: wildcard in tile list", repgen.ErrInput)
		}
		req.Tiles = append(req.Tiles, chipdb.Tile(t))
	}
	if r := rf.Rectangle; r != nil {
		if r.XMin > r.XMax || r.YMin > r.YMax {
			return req, fmt.Errorf("%w: empty rectangle", repgen.ErrInput)
		}
		req.Tiles = append(req.Tiles, chipdb.TilesFromRectangle(r.XMin, r.YMin, r.XMax, r.YMax)...)
	}

	for _, o := range rf.Output {
		if len(o) != 3 {
			return req, fmt.Errorf("%w: output %v needs [x, y, z]", repgen.ErrInput, o)
		}
		req.Output = append(req.Output, chipdb.LUTPosition{Tile: chipdb.Tile{X: o[0], Y: o[1]}, Z: o[2]})
	}

	for _, name := range rf.LUTFunctions {
		f, err := interrep.ParseLUTFunction(name)
		if err != nil {
			return req, fmt.Errorf("%w: %v", repgen.ErrInput, err)
		}
		req.LUTFunctions = append(req.LUTFunctions, f)
	}

	req.PruneNoViableSrc = rf.PruneNoViableSrc
	req.ExcludeResources = resources(rf.ExcludeResources)
	req.IncludeResources = resources(rf.IncludeResources)
	req.ExcludeConnections = connections(rf.ExcludeConnections)
	req.IncludeConnections = connections(rf.IncludeConnections)

	for i, cs := range rf.GeneConstraints {
		gc, err := cs.constraint()
		if err != nil {
			return req, fmt.Errorf("%w: gene constraint %d: %v", repgen.ErrInput, i, err)
		}
		req.GeneConstraints = append(req.GeneConstraints, gc)
	}

	return req, req.Check()
}

func resources(specs []ResourceSpec) []repgen.Resource {
	var out []repgen.Resource
	for _, s := range specs {
		out = append(out, repgen.Resource{Tile: chipdb.Tile(s.Tile), NameRegex: s.Name})
	}
	return out
}

func connections(specs []ConnectionSpec) []repgen.ResCon {
	var out []repgen.ResCon
	for _, s := range specs {
		out = append(out, repgen.ResCon{Tile: chipdb.Tile(s.Tile), SrcRegex: s.Src, DstRegex: s.Dst})
	}
	return out
}

func (cs ConstraintSpec) constraint() (repgen.GeneConstraint, error) {
	var gc repgen.GeneConstraint
	for _, b := range cs.Bits {
		switch {
		case cs.Tile != nil && len(b) == 2:
			gc.Bits = append(gc.Bits, chipdb.Bit{Tile: chipdb.Tile(*cs.Tile), Group: b[0], Index: b[1]})
		case cs.Tile == nil && len(b) == 4:
			gc.Bits = append(gc.Bits, chipdb.NewBit(b[0], b[1], b[2], b[3]))
		default:
			return gc, fmt.Errorf("bit %v has the wrong number of coordinates", b)
		}
	}
	for _, v := range cs.Values {
		values, err := parseValues(v)
		if err != nil {
			return gc, err
		}
		gc.Values = append(gc.Values, values)
	}
	return gc, nil
}

// parseValues reads a string of '0' and '1', first character first.
func parseValues(s string) ([]bool, error) {
	values := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			values[i] = true
		default:
			return nil, fmt.Errorf("invalid value %q", s)
		}
	}
	return values, nil
}
