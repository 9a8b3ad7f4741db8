// Package interrep provides the intermediate representation of a block of
// FPGA fabric: a directed multigraph whose vertices are nets and LUTs and
// whose edges are potential signal paths.
//
// # Ownership Model
//
// The Graph owns all vertices and edges in dense slices. Vertices and edges
// refer to each other by id, lookups go through the Graph. Callers may flip
// the Available, Used and ExtSrc flags in place; the structure itself is
// fixed once Build returns.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. It is built, filtered and turned
// into genes by one owner and discarded afterwards.
package interrep

import "errors"

// Sentinel errors for graph construction and gene synthesis.
var (
	// ErrDuplicateVertex is returned when a designator is registered twice.
	ErrDuplicateVertex = errors.New("duplicate vertex designator")

	// ErrDuplicateBit is returned when a configuration bit is claimed by two
	// vertices.
	ErrDuplicateBit = errors.New("bit already registered")

	// ErrDuplicateEdge is returned when an edge is added twice.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrNotFound is returned by lookups of unknown vertices, edges or bits.
	ErrNotFound = errors.New("not found")

	// ErrSatisfiability is returned when a neutral value is required but the
	// unconnected option is missing.
	ErrSatisfiability = errors.New("unconnected option missing")

	// ErrNoAlleles is returned when a net has no usable source at all.
	ErrNoAlleles = errors.New("no alleles")

	// ErrConfig is returned for chip configuration data that can't be
	// turned into a graph.
	ErrConfig = errors.New("invalid configuration data")
)
