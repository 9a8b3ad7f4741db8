package facts

import "github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"

// FilterTablesByTiles returns a new Tables object containing only rows located
// in one of the provided tiles. Gene rows are located at their smallest tile.
func FilterTablesByTiles(tables Tables, tiles map[chipdb.Tile]bool) Tables {
	if len(tiles) == 0 {
		return emptyTables()
	}
	out := emptyTables()
	in := func(x, y int) bool {
		return tiles[chipdb.Tile{X: x, Y: y}]
	}

	for _, row := range tables.Genes {
		if in(row.X, row.Y) {
			out.Genes = append(out.Genes, row)
		}
	}
	for _, row := range tables.GeneBits {
		if in(row.X, row.Y) {
			out.GeneBits = append(out.GeneBits, row)
		}
	}
	for _, row := range tables.Constants {
		if in(row.X, row.Y) {
			out.Constants = append(out.Constants, row)
		}
	}
	for _, row := range tables.ColBufCtrl {
		if in(row.X, row.Y) {
			out.ColBufCtrl = append(out.ColBufCtrl, row)
		}
	}
	for _, row := range tables.Carry {
		if in(row.X, row.Y) {
			out.Carry = append(out.Carry, row)
		}
	}
	for _, row := range tables.Outputs {
		if in(row.X, row.Y) {
			out.Outputs = append(out.Outputs, row)
		}
	}

	return out
}

// FilterDeltaByTiles returns a new Delta containing only rows for the specified tiles.
func FilterDeltaByTiles(delta Delta, tiles map[chipdb.Tile]bool) Delta {
	if len(tiles) == 0 {
		return Delta{
			Added:   emptyTables(),
			Removed: emptyTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByTiles(delta.Added, tiles),
		Removed: FilterTablesByTiles(delta.Removed, tiles),
	}
}
