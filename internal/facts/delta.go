package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Genes = diffGeneRows(from.Genes, to.Genes)
	out.GeneBits = diffGeneBitRows(from.GeneBits, to.GeneBits)
	out.Constants = diffConstantRows(from.Constants, to.Constants)
	out.ColBufCtrl = diffColBufCtrlRows(from.ColBufCtrl, to.ColBufCtrl)
	out.Carry = diffCarryRows(from.Carry, to.Carry)
	out.Outputs = diffOutputRows(from.Outputs, to.Outputs)

	return out
}

func emptyTables() Tables {
	return Tables{
		Genes:      []GeneRow{},
		GeneBits:   []GeneBitRow{},
		Constants:  []ConstantRow{},
		ColBufCtrl: []ColBufCtrlRow{},
		Carry:      []CarryRow{},
		Outputs:    []OutputRow{},
	}
}

// Gene rows are keyed by content, not position, so moving a gene within
// the chromosome is not reported.
func diffGeneRows(from, to []GeneRow) []GeneRow {
	return diffRows(from, to, func(r GeneRow) string {
		return r.Description + "|" + boolKey(r.Constant) + "|" + r.Kind + "|" + intKey(r.BitCount) + "|" + intKey(r.AlleleCount) + "|" + intKey(r.X) + "|" + intKey(r.Y)
	})
}

func diffGeneBitRows(from, to []GeneBitRow) []GeneBitRow {
	return diffRows(from, to, func(r GeneBitRow) string {
		return r.Description + "|" + boolKey(r.Constant) + "|" + bitKey(r.X, r.Y, r.Group, r.Index)
	})
}

func diffConstantRows(from, to []ConstantRow) []ConstantRow {
	return diffRows(from, to, func(r ConstantRow) string {
		return bitKey(r.X, r.Y, r.Group, r.Index) + "|" + boolKey(r.Value)
	})
}

func diffColBufCtrlRows(from, to []ColBufCtrlRow) []ColBufCtrlRow {
	return diffRows(from, to, func(r ColBufCtrlRow) string {
		return intKey(r.Z) + "|" + bitKey(r.X, r.Y, r.Group, r.Index)
	})
}

func diffCarryRows(from, to []CarryRow) []CarryRow {
	return diffRows(from, to, func(r CarryRow) string {
		return bitKey(r.X, r.Y, r.EnableGroup, r.EnableIndex) + "|" + intKey(r.LUT) + "|" + intKey(r.Uses)
	})
}

func diffOutputRows(from, to []OutputRow) []OutputRow {
	return diffRows(from, to, func(r OutputRow) string {
		return intKey(r.X) + "|" + intKey(r.Y) + "|" + intKey(r.Z)
	})
}

func bitKey(x, y, group, index int) string {
	return intKey(x) + "|" + intKey(y) + "|" + intKey(group) + "|" + intKey(index)
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intKey(v int) string {
	if v == 0 {
		return "0"
	}
	return itoa(v)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
