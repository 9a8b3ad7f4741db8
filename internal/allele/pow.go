package allele

import (
	"fmt"
	"slices"
	"strconv"
)

// Pow holds the truth tables of a LUT with inputCount inputs that are
// invariant under toggling the unused inputs.
//
// Truth table entry t is the output for the input vector t, input j being
// bit j of t. Allele i is built from the reduced table over the used inputs,
// which is the binary representation of i (most significant bit first);
// entry t of the full table is entry c of the reduced table, c collecting the
// bits of t at the used inputs in ascending input order.
type Pow struct {
	inputCount int
	unused     []int
	used       []int
}

// NewPow creates the sequence. Unused inputs out of range or given twice are
// an error.
func NewPow(inputCount int, unused []int) (*Pow, error) {
	if inputCount < 0 || inputCount > 5 {
		return nil, fmt.Errorf("unsupported LUT input count %d", inputCount)
	}
	u := slices.Clone(unused)
	slices.Sort(u)
	u = slices.Compact(u)
	if len(u) != len(unused) {
		return nil, fmt.Errorf("duplicate unused inputs in %v", unused)
	}
	for _, i := range u {
		if i < 0 || i >= inputCount {
			return nil, fmt.Errorf("unused input %d out of range [0, %d)", i, inputCount)
		}
	}
	var used []int
	for i := 0; i < inputCount; i++ {
		if !slices.Contains(u, i) {
			used = append(used, i)
		}
	}
	return &Pow{inputCount: inputCount, unused: u, used: used}, nil
}

func (p *Pow) InputCount() int {
	return p.inputCount
}

// Unused returns the sorted unused input indices.
func (p *Pow) Unused() []int {
	return slices.Clone(p.unused)
}

func (p *Pow) reducedWidth() int {
	return 1 << len(p.used)
}

func (p *Pow) Len() int {
	return 1 << p.reducedWidth()
}

// compress maps a full input vector to the index into the reduced table.
func (p *Pow) compress(t int) int {
	c := 0
	for k, in := range p.used {
		c |= ((t >> in) & 1) << k
	}
	return c
}

func (p *Pow) At(i int) Allele {
	if i < 0 || i >= p.Len() {
		panic(fmt.Sprintf("allele index %d out of range [0, %d)", i, p.Len()))
	}
	reduced := intToValues(i, p.reducedWidth())
	full := make([]bool, 1<<p.inputCount)
	for t := range full {
		full[t] = reduced[p.compress(t)]
	}
	return Allele{Values: full, Description: strconv.Itoa(i)}
}

func (p *Pow) ValuesIndex(values []bool) (int, error) {
	if len(values) != 1<<p.inputCount {
		return 0, fmt.Errorf("%w %s", ErrNoAllele, FormatValues(values))
	}
	reduced := make([]bool, p.reducedWidth())
	set := make([]bool, p.reducedWidth())
	for t, v := range values {
		c := p.compress(t)
		if set[c] && reduced[c] != v {
			return 0, fmt.Errorf("%w %s: depends on unused inputs %v", ErrNoAllele, FormatValues(values), p.unused)
		}
		reduced[c] = v
		set[c] = true
	}
	return valuesToInt(reduced), nil
}

func (p *Pow) SizeInBits() float64 {
	return float64(p.reducedWidth())
}

func (p *Pow) Spec() Spec {
	return Spec{Kind: KindPow, Inputs: p.inputCount, Unused: slices.Clone(p.unused)}
}
