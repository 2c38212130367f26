package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

func TestLayerNormNormalizes(t *testing.T) {
	b := cpu.New()
	norm := NewLayerNorm(4, 1e-5, b)

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 10, 20, 30, 40}, tensor.Shape{2, 4}, b)
	require.NoError(t, err)

	y := norm.Forward(x)
	require.Equal(t, tensor.Shape{2, 4}, y.Shape())

	data := y.Data()
	for row := 0; row < 2; row++ {
		var mean, sq float64
		for i := 0; i < 4; i++ {
			v := float64(data[row*4+i])
			mean += v
			sq += v * v
		}
		mean /= 4
		variance := sq/4 - mean*mean
		assert.InDelta(t, 0, mean, 1e-5)
		assert.InDelta(t, 1, variance, 1e-3)
	}
}

func TestLayerNormGammaBeta(t *testing.T) {
	b := cpu.New()
	norm := NewLayerNorm(2, 1e-5, b)

	copy(norm.Gamma.Tensor().Data(), []float32{2, 2})
	copy(norm.Beta.Tensor().Data(), []float32{5, 5})

	x, err := tensor.FromSlice([]float32{-1, 1}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)

	y := norm.Forward(x)
	data := y.Data()
	// Normalized values are close to -1 and +1; scaled by 2 and shifted by 5.
	assert.InDelta(t, 3, data[0], 1e-2)
	assert.InDelta(t, 7, data[1], 1e-2)
}

func TestLayerNormPreservesShape3D(t *testing.T) {
	b := cpu.New()
	norm := NewLayerNorm(8, 1e-5, b)

	x := randSeqs(t, b, 2, 3, 8, 7)
	y := norm.Forward(x)
	assert.Equal(t, x.Shape(), y.Shape())
}
