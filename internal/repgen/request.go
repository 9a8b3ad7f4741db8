// Package repgen turns a request and a chip database into a Representation.
//
// The steps are exported on their own so they can be applied and tested in
// isolation: rule application over the intermediate representation, gene
// creation, gene constraints and gene ordering. Generator runs them in the
// fixed order the flags depend on.
package repgen

import (
	"errors"
	"fmt"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
)

// ErrInput is returned for requests that can't be satisfied as given.
var ErrInput = errors.New("invalid request")

// Resource selects vertices whose name matches NameRegex in a tile. The
// tile may be a wildcard, see SpecialMap.
type Resource struct {
	Tile      chipdb.Tile `json:"tile" yaml:"tile"`
	NameRegex string      `json:"name" yaml:"name"`
}

// ResCon selects edges by the names of their source and destination.
type ResCon struct {
	Tile     chipdb.Tile `json:"tile" yaml:"tile"`
	SrcRegex string      `json:"src" yaml:"src"`
	DstRegex string      `json:"dst" yaml:"dst"`
}

// GeneConstraint declares the legal values of a tuple of bits. The bits may
// span several genes as long as every touched gene is covered completely.
type GeneConstraint struct {
	Bits   []chipdb.Bit `json:"bits" yaml:"bits"`
	Values [][]bool     `json:"values" yaml:"values"`
}

// Request describes the region and resources of an experiment.
type Request struct {
	Tiles              []chipdb.Tile          `json:"tiles" yaml:"tiles"`
	Output             []chipdb.LUTPosition   `json:"output,omitempty" yaml:"output,omitempty"`
	LUTFunctions       []interrep.LUTFunction `json:"lut_functions,omitempty" yaml:"lut_functions,omitempty"`
	GeneConstraints    []GeneConstraint       `json:"gene_constraints,omitempty" yaml:"gene_constraints,omitempty"`
	PruneNoViableSrc   bool                   `json:"prune_no_viable_src,omitempty" yaml:"prune_no_viable_src,omitempty"`
	ExcludeResources   []Resource             `json:"exclude_resources,omitempty" yaml:"exclude_resources,omitempty"`
	IncludeResources   []Resource             `json:"include_resources,omitempty" yaml:"include_resources,omitempty"`
	ExcludeConnections []ResCon               `json:"exclude_connections,omitempty" yaml:"exclude_connections,omitempty"`
	IncludeConnections []ResCon               `json:"include_connections,omitempty" yaml:"include_connections,omitempty"`
}

// Check reports structural problems that don't need the chip database.
func (r Request) Check() error {
	if len(r.Tiles) == 0 {
		return fmt.Errorf("%w: no tiles", ErrInput)
	}
	for _, t := range r.Tiles {
		if t.IsWildcard() {
			return fmt.Errorf("%w: wildcard %s in tile list", ErrInput, t)
		}
	}
	for _, o := range r.Output {
		if o.Z < 0 || o.Z >= chipdb.LUTCount {
			return fmt.Errorf("%w: output %s has no LUT %d", ErrInput, o, o.Z)
		}
	}
	for i, c := range r.GeneConstraints {
		if len(c.Bits) == 0 {
			return fmt.Errorf("%w: gene constraint %d without bits", ErrInput, i)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: gene constraint %d without values", ErrInput, i)
		}
		for j, v := range c.Values {
			if len(v) != len(c.Bits) {
				return fmt.Errorf("%w: gene constraint %d value %d has %d entries for %d bits", ErrInput, i, j, len(v), len(c.Bits))
			}
		}
	}
	return nil
}
