package material

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial(WithName("wall"))
	assert.Equal(t, "wall", m.Name())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.BaseColor())
	assert.Equal(t, float32(1), m.Roughness())
	assert.Equal(t, ProgramFlat, m.Program())
}

func TestGPUMaterialParamsUsesCustomColor(t *testing.T) {
	flat := NewMaterial(WithBaseColor([4]float32{0.2, 0.3, 0.4, 1}), WithEmissive([3]float32{1, 0, 0}))
	p := NewGPUMaterialParams(flat, [4]float32{9, 9, 9, 9})
	assert.Equal(t, [4]float32{0.2, 0.3, 0.4, 1}, p.Color)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, p.Emissive)

	custom := NewMaterial(WithProgram(ProgramCustomColor))
	p = NewGPUMaterialParams(custom, [4]float32{0.5, 0.5, 0.5, 1})
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, p.Color)
	assert.Len(t, p.Marshal(), p.Size())
}

func TestSystemRegistry(t *testing.T) {
	s := NewSystem()
	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Register(NewMaterial(WithName("a")))
	m, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", m.Name())

	assert.False(t, s.HighQuality())
	s.SetHighQuality(true)
	assert.True(t, s.HighQuality())
}
