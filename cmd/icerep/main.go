// =============================================================================
// icerep - Representation Engine CLI
// =============================================================================
//
// Turns an experiment request into the genotype used by the evolutionary
// search on an iCE40 logic tile block.
//
// THE PIPELINE:
//   1. CUE contract checks the request file (unknown keys are errors)
//   2. The chip database yields nets and config items of the tiles
//   3. The intermediate representation graph is built and filtered by rules
//   4. Genes are synthesised per vertex, constrained and ordered
//   5. The summary is validated and cached, fact tables are linted by OPA
//
// WHEN A GENE LOOKS WRONG:
//   Start at the request, not at the decoder!
//   Request rules -> graph availability -> gene synthesis -> constraints
// =============================================================================

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
