package model

import (
	"fmt"
	"slices"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

// TargetConfiguration is the bitstream a representation is decoded onto.
type TargetConfiguration interface {
	GetBit(bit chipdb.Bit) bool
	SetBit(bit chipdb.Bit, value bool)
	GetMultiBits(bits []chipdb.Bit) []bool
	SetMultiBits(bits []chipdb.Bit, values []bool) error
}

// MemoryConfig is an in memory TargetConfiguration; unset bits read as false.
// It is not safe for concurrent use.
type MemoryConfig struct {
	bits map[chipdb.Bit]bool
}

func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{bits: make(map[chipdb.Bit]bool)}
}

func (m *MemoryConfig) GetBit(bit chipdb.Bit) bool {
	return m.bits[bit]
}

func (m *MemoryConfig) SetBit(bit chipdb.Bit, value bool) {
	if value {
		m.bits[bit] = true
	} else {
		delete(m.bits, bit)
	}
}

func (m *MemoryConfig) GetMultiBits(bits []chipdb.Bit) []bool {
	values := make([]bool, len(bits))
	for i, b := range bits {
		values[i] = m.bits[b]
	}
	return values
}

func (m *MemoryConfig) SetMultiBits(bits []chipdb.Bit, values []bool) error {
	if len(bits) != len(values) {
		return fmt.Errorf("%d bits but %d values", len(bits), len(values))
	}
	for i, b := range bits {
		m.SetBit(b, values[i])
	}
	return nil
}

// Ones returns the sorted bits that are set.
func (m *MemoryConfig) Ones() []chipdb.Bit {
	ones := make([]chipdb.Bit, 0, len(m.bits))
	for b := range m.bits {
		ones = append(ones, b)
	}
	slices.SortFunc(ones, chipdb.Bit.Compare)
	return ones
}

// Clone copies the bit state.
func (m *MemoryConfig) Clone() *MemoryConfig {
	c := NewMemoryConfig()
	for b := range m.bits {
		c.bits[b] = true
	}
	return c
}
