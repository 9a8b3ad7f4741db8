// Package allele provides the value sets of genes: explicit lists, all
// combinations of n bits and truth tables of LUTs with unused inputs.
package allele

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrNoAllele is returned by ValuesIndex if no allele has the given values.
	ErrNoAllele = errors.New("no allele with bit values")

	// ErrIndex is returned by Get for indices out of range.
	ErrIndex = errors.New("allele index out of range")
)

// Allele is one legal value assignment for the bits of a gene. The
// description is informational only and not part of equality.
type Allele struct {
	Values      []bool `json:"values" yaml:"values"`
	Description string `json:"description" yaml:"description"`
}

func New(desc string, values ...bool) Allele {
	return Allele{Values: values, Description: desc}
}

// Equal compares the values only.
func (a Allele) Equal(o Allele) bool {
	return slices.Equal(a.Values, o.Values)
}

func (a Allele) String() string {
	return fmt.Sprintf("%s %q", FormatValues(a.Values), a.Description)
}

// FormatValues renders bit values as a string of 0 and 1.
func FormatValues(values []bool) string {
	var sb strings.Builder
	for _, v := range values {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// CompareValues orders bit values lexicographically, false before true.
func CompareValues(a, b []bool) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if !a[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// Sequence is an indexable collection of alleles.
type Sequence interface {
	// Len is the number of alleles.
	Len() int
	// At returns allele i. It panics if i is out of range.
	At(i int) Allele
	// ValuesIndex is the inverse of At.
	ValuesIndex(values []bool) (int, error)
	// SizeInBits is log2 of Len, fractions are possible.
	SizeInBits() float64
	// Spec describes the sequence in a serialisable form.
	Spec() Spec
}

// Equal reports whether two sequences hold the same alleles. Sequences of
// the same generated kind compare by their parameters.
func Equal(a, b Sequence) bool {
	switch x := a.(type) {
	case *All:
		y, ok := b.(*All)
		return ok && x.bitCount == y.bitCount
	case *Pow:
		y, ok := b.(*Pow)
		return ok && x.inputCount == y.inputCount && slices.Equal(x.unused, y.unused)
	case *List:
		y, ok := b.(*List)
		return ok && slices.EqualFunc(x.alleles, y.alleles, Allele.Equal)
	}
	return false
}

// Get is the checked form of s.At.
func Get(s Sequence, i int) (Allele, error) {
	if i < 0 || i >= s.Len() {
		return Allele{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndex, i, s.Len())
	}
	return s.At(i), nil
}

// Collect materialises all alleles of a sequence.
func Collect(s Sequence) []Allele {
	out := make([]Allele, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// List is an explicit list of alleles.
type List struct {
	alleles []Allele
}

func NewList(alleles ...Allele) *List {
	return &List{alleles: slices.Clone(alleles)}
}

func (l *List) Len() int {
	return len(l.alleles)
}

func (l *List) At(i int) Allele {
	return l.alleles[i]
}

func (l *List) ValuesIndex(values []bool) (int, error) {
	for i, a := range l.alleles {
		if slices.Equal(a.Values, values) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w %s", ErrNoAllele, FormatValues(values))
}

func (l *List) SizeInBits() float64 {
	return math.Log2(float64(len(l.alleles)))
}

// IsComplete reports whether the list holds every combination of its bit width.
func (l *List) IsComplete() bool {
	if len(l.alleles) == 0 {
		return false
	}
	width := len(l.alleles[0].Values)
	if width >= 63 || len(l.alleles) < 1<<width {
		return false
	}
	seen := make(map[string]bool, len(l.alleles))
	for _, a := range l.alleles {
		seen[FormatValues(a.Values)] = true
	}
	return len(seen) == 1<<width
}

func (l *List) Spec() Spec {
	return Spec{Kind: KindList, Alleles: slices.Clone(l.alleles)}
}

// All holds all 2^n combinations of n bits. Allele i is the binary
// representation of i, most significant bit first.
type All struct {
	bitCount int
}

func NewAll(bitCount int) *All {
	return &All{bitCount: bitCount}
}

func (a *All) BitCount() int {
	return a.bitCount
}

func (a *All) Len() int {
	return 1 << a.bitCount
}

func (a *All) At(i int) Allele {
	if i < 0 || i >= a.Len() {
		panic(fmt.Sprintf("allele index %d out of range [0, %d)", i, a.Len()))
	}
	return Allele{Values: intToValues(i, a.bitCount), Description: strconv.Itoa(i)}
}

func (a *All) ValuesIndex(values []bool) (int, error) {
	if len(values) != a.bitCount {
		return 0, fmt.Errorf("%w %s", ErrNoAllele, FormatValues(values))
	}
	return valuesToInt(values), nil
}

func (a *All) SizeInBits() float64 {
	return float64(a.bitCount)
}

func (a *All) Spec() Spec {
	return Spec{Kind: KindAll, Bits: a.bitCount}
}

func intToValues(v, width int) []bool {
	values := make([]bool, width)
	for i := width - 1; i >= 0; i-- {
		values[i] = v&1 == 1
		v >>= 1
	}
	return values
}

func valuesToInt(values []bool) int {
	v := 0
	for _, b := range values {
		v <<= 1
		if b {
			v |= 1
		}
	}
	return v
}
