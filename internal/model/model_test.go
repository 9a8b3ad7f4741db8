package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/allele"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

func TestNewGene(t *testing.T) {
	bits := []chipdb.Bit{chipdb.NewBit(1, 2, 0, 1), chipdb.NewBit(3, 2, 0, 1)}
	g, err := NewGene(bits, allele.NewAll(2), "two tiles")
	require.NoError(t, err)
	assert.False(t, g.IsConstant())
	assert.Equal(t, []chipdb.Tile{{X: 1, Y: 2}, {X: 3, Y: 2}}, g.Tiles())

	_, err = NewGene(bits, allele.NewAll(3), "wrong width")
	assert.Error(t, err)

	_, err = NewGene([]chipdb.Bit{bits[0], bits[0]}, allele.NewAll(2), "dup")
	assert.Error(t, err)

	c, err := NewGene(bits[:1], allele.NewList(allele.New("neutral", false)), "const")
	require.NoError(t, err)
	assert.True(t, c.IsConstant())
}

func TestIDGeneratorIsUnique(t *testing.T) {
	gen := NewIDGenerator(10)
	var (
		mu   sync.Mutex
		seen = make(map[int]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.NewChromosome([]int{j}).ID
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
	assert.True(t, seen[10])
	assert.False(t, seen[9])
}

func TestMemoryConfig(t *testing.T) {
	cfg := NewMemoryConfig()
	a := chipdb.NewBit(2, 2, 1, 3)
	b := chipdb.NewBit(1, 2, 0, 0)

	assert.False(t, cfg.GetBit(a))
	require.NoError(t, cfg.SetMultiBits([]chipdb.Bit{a, b}, []bool{true, true}))
	assert.Equal(t, []bool{true, true}, cfg.GetMultiBits([]chipdb.Bit{a, b}))
	assert.Equal(t, []chipdb.Bit{b, a}, cfg.Ones())

	clone := cfg.Clone()
	cfg.SetBit(a, false)
	assert.Equal(t, []chipdb.Bit{b}, cfg.Ones())
	assert.Len(t, clone.Ones(), 2)

	assert.Error(t, cfg.SetMultiBits([]chipdb.Bit{a}, nil))
}
