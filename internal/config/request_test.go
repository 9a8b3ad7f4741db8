package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/repgen"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/validator"
)

const sampleRequest = `
name: nand ring
tiles:
  - [2, 1]
rectangle: {x_min: 1, y_min: 1, x_max: 1, y_max: 2}
output:
  - [1, 1, 5]
lut_functions: [nand, CONST_1]
prune_no_viable_src: true
exclude_resources:
  - {tile: all, name: ".*"}
include_resources:
  - {tile: all_logic, name: "lutff_"}
  - {tile: {x: 2, y: 1}, name: "local_g0_"}
exclude_connections:
  - {tile: all_logic, src: "^unconnected$", dst: "local_g1_5"}
gene_constraints:
  - tile: [1, 1]
    bits: [[10, 45], [11, 44]]
    values: ["00", "11"]
  - tile: all_logic
    bits: [[0, 45]]
    values: ["1"]
  - bits: [[2, 1, 0, 44]]
    values: ["0"]
`

func TestParseRequest(t *testing.T) {
	rf, err := ParseRequest([]byte(sampleRequest), nil)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if rf.Name != "nand ring" {
		t.Fatalf("expected name, got %q", rf.Name)
	}

	req, err := rf.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	wantTiles := []chipdb.Tile{{X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}}
	if !reflect.DeepEqual(req.Tiles, wantTiles) {
		t.Fatalf("tiles = %v, want %v", req.Tiles, wantTiles)
	}
	wantOutput := []chipdb.LUTPosition{{Tile: chipdb.Tile{X: 1, Y: 1}, Z: 5}}
	if !reflect.DeepEqual(req.Output, wantOutput) {
		t.Fatalf("output = %v, want %v", req.Output, wantOutput)
	}
	if !reflect.DeepEqual(req.LUTFunctions, []interrep.LUTFunction{interrep.Nand, interrep.Const1}) {
		t.Fatalf("unexpected LUT functions %v", req.LUTFunctions)
	}
	if !req.PruneNoViableSrc {
		t.Fatalf("expected pruning enabled")
	}

	all := chipdb.Tile{X: chipdb.TileAll, Y: chipdb.TileAll}
	logic := chipdb.Tile{X: chipdb.TileAllLogic, Y: chipdb.TileAllLogic}
	if !reflect.DeepEqual(req.ExcludeResources, []repgen.Resource{{Tile: all, NameRegex: ".*"}}) {
		t.Fatalf("unexpected exclude resources %v", req.ExcludeResources)
	}
	wantInclude := []repgen.Resource{
		{Tile: logic, NameRegex: "lutff_"},
		{Tile: chipdb.Tile{X: 2, Y: 1}, NameRegex: "local_g0_"},
	}
	if !reflect.DeepEqual(req.IncludeResources, wantInclude) {
		t.Fatalf("include resources = %v, want %v", req.IncludeResources, wantInclude)
	}
	if len(req.ExcludeConnections) != 1 || req.ExcludeConnections[0].DstRegex != "local_g1_5" {
		t.Fatalf("unexpected exclude connections %v", req.ExcludeConnections)
	}

	if len(req.GeneConstraints) != 3 {
		t.Fatalf("expected 3 gene constraints, got %d", len(req.GeneConstraints))
	}
	first := req.GeneConstraints[0]
	wantBits := []chipdb.Bit{chipdb.NewBit(1, 1, 10, 45), chipdb.NewBit(1, 1, 11, 44)}
	if !reflect.DeepEqual(first.Bits, wantBits) {
		t.Fatalf("bits = %v, want %v", first.Bits, wantBits)
	}
	if !reflect.DeepEqual(first.Values, [][]bool{{false, false}, {true, true}}) {
		t.Fatalf("unexpected values %v", first.Values)
	}
	if got := req.GeneConstraints[1].Bits[0].Tile; got != logic {
		t.Fatalf("expected wildcard constraint tile, got %v", got)
	}
	if got := req.GeneConstraints[2].Bits[0]; got != chipdb.NewBit(2, 1, 0, 44) {
		t.Fatalf("expected absolute bit, got %v", got)
	}
}

func TestParseRequestJSON(t *testing.T) {
	rf, err := ParseRequest([]byte(`{"tiles": [[1, 1]], "include_resources": [{"tile": "all", "name": "x"}]}`), nil)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	req, err := rf.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(req.Tiles) != 1 || len(req.IncludeResources) != 1 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		input bool
	}{
		{name: "unknown field", doc: "tiles: [[1, 1]]\nunknown: 1\n"},
		{name: "unknown wildcard", doc: "tiles: [[1, 1]]\ninclude_resources: [{tile: some, name: x}]\n"},
		{name: "short tile", doc: "tiles: [[1]]\n"},
		{name: "negative tile", doc: "tiles: [[-1, 1]]\n"},
		{name: "wildcard tile list", doc: "tiles: [all]\n", input: true},
		{name: "no tiles", doc: "name: x\n", input: true},
		{name: "empty rectangle", doc: "rectangle: {x_min: 2, y_min: 1, x_max: 1, y_max: 1}\n", input: true},
		{name: "short output", doc: "tiles: [[1, 1]]\noutput: [[1, 1]]\n", input: true},
		{name: "unknown function", doc: "tiles: [[1, 1]]\nlut_functions: [XOR3]\n", input: true},
		{name: "bad value", doc: "tiles: [[1, 1]]\ngene_constraints: [{bits: [[1, 1, 0, 0]], values: [\"2\"]}]\n", input: true},
		{name: "relative bit without tile", doc: "tiles: [[1, 1]]\ngene_constraints: [{bits: [[0, 0]], values: [\"1\"]}]\n", input: true},
		{name: "value width", doc: "tiles: [[1, 1]]\ngene_constraints: [{bits: [[1, 1, 0, 0]], values: [\"10\"]}]\n", input: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf, err := ParseRequest([]byte(tt.doc), nil)
			if err == nil {
				_, err = rf.Request()
			}
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.input && !errors.Is(err, repgen.ErrInput) {
				t.Fatalf("expected ErrInput, got %v", err)
			}
		})
	}
}

type recordingContract struct {
	seen any
	err  error
}

func (c *recordingContract) Validate(data any) error {
	c.seen = data
	return c.err
}

func TestParseRequestRunsContract(t *testing.T) {
	c := &recordingContract{}
	if _, err := ParseRequest([]byte("tiles: [[1, 1]]\n"), c); err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	doc, ok := c.seen.(map[string]any)
	if !ok {
		t.Fatalf("expected a mapping document, got %T", c.seen)
	}
	if _, ok := doc["tiles"]; !ok {
		t.Fatalf("expected tiles in %v", doc)
	}

	c.err = errors.New("contract violated")
	if _, err := ParseRequest([]byte("tiles: [[1, 1]]\n"), c); !errors.Is(err, c.err) {
		t.Fatalf("expected contract error, got %v", err)
	}
}

func TestParseRequestExcludeEverything(t *testing.T) {
	contract, err := validator.NewRequestValidator()
	if err != nil {
		t.Fatalf("NewRequestValidator: %v", err)
	}
	doc := "tiles: [[1, 1]]\nexclude_resources: [{tile: all, name: \"\"}]\n"
	rf, err := ParseRequest([]byte(doc), contract)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	req, err := rf.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	want := repgen.Resource{Tile: chipdb.Tile{X: chipdb.TileAll, Y: chipdb.TileAll}, NameRegex: ""}
	if len(req.ExcludeResources) != 1 || req.ExcludeResources[0] != want {
		t.Fatalf("expected %v, got %v", want, req.ExcludeResources)
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte(sampleRequest), 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}
	rf, err := LoadRequest(path, nil)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if len(rf.GeneConstraints) != 3 {
		t.Fatalf("expected 3 constraints, got %d", len(rf.GeneConstraints))
	}

	if _, err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
