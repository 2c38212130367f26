package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

func TestLinearForward2D(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(3, 2, b)

	copy(layer.Weight().Tensor().Data(), []float32{
		1, 0, 0,
		0, 1, 0,
	})
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)

	y := layer.Forward(x)
	require.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{11, 22, 14, 25}, y.Data())
}

func TestLinearForward3D(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(4, 6, b)

	x := randSeqs(t, b, 2, 5, 4, 1)
	y := layer.Forward(x)
	assert.Equal(t, tensor.Shape{2, 5, 6}, y.Shape())
}

func TestLinearShapeMismatchPanics(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(4, 2, b)

	x := randSeqs(t, b, 1, 3, 5, 2)
	assert.Panics(t, func() { layer.Forward(x) })
}

func TestLinearParameters(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(4, 2, b)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, "bias", params[1].Name())
}
