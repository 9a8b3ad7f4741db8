package allele

import "fmt"

const (
	KindList = "list"
	KindAll  = "all"
	KindPow  = "pow"
)

// Spec is the serialisable form of a Sequence.
type Spec struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Bits    int      `json:"bits,omitempty" yaml:"bits,omitempty"`
	Inputs  int      `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Unused  []int    `json:"unused,omitempty" yaml:"unused,omitempty"`
	Alleles []Allele `json:"alleles,omitempty" yaml:"alleles,omitempty"`
}

// Sequence rebuilds the sequence described by the spec.
func (s Spec) Sequence() (Sequence, error) {
	switch s.Kind {
	case KindList:
		return NewList(s.Alleles...), nil
	case KindAll:
		if s.Bits < 0 || s.Bits > 62 {
			return nil, fmt.Errorf("unsupported bit count %d", s.Bits)
		}
		return NewAll(s.Bits), nil
	case KindPow:
		return NewPow(s.Inputs, s.Unused)
	default:
		return nil, fmt.Errorf("unknown allele sequence kind %q", s.Kind)
	}
}
