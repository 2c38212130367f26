package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

func TestShapeNumElementsAndStrides(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())

	assert.True(t, s.Equal(tensor.Shape{2, 3, 4}))
	assert.False(t, s.Equal(tensor.Shape{2, 3}))
	assert.False(t, s.Equal(tensor.Shape{2, 3, 5}))
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, tensor.Shape{2, 3}.Validate())
	assert.Error(t, tensor.Shape{2, -1}.Validate())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name    string
		a, b    tensor.Shape
		want    tensor.Shape
		wantErr bool
	}{
		{"equal", tensor.Shape{2, 3}, tensor.Shape{2, 3}, tensor.Shape{2, 3}, false},
		{"scalar dim", tensor.Shape{3, 1}, tensor.Shape{3, 4}, tensor.Shape{3, 4}, false},
		{"rank extend", tensor.Shape{4}, tensor.Shape{2, 3, 4}, tensor.Shape{2, 3, 4}, false},
		{"incompatible", tensor.Shape{2, 3}, tensor.Shape{2, 4}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSliceAndAccessors(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, float32(6), x.At(1, 2))

	x.Set(42, 0, 1)
	assert.Equal(t, float32(42), x.At(0, 1))

	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestFromSliceLengthMismatch(t *testing.T) {
	b := cpu.New()
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, b)
	assert.Error(t, err)
}

func TestItem(t *testing.T) {
	b := cpu.New()

	x := tensor.Full[float32](tensor.Shape{1}, 7, b)
	assert.Equal(t, float32(7), x.Item())

	y := tensor.Zeros[float32](tensor.Shape{2}, b)
	assert.Panics(t, func() { y.Item() })
}

func TestCloneSharesBufferWithDistinctIdentity(t *testing.T) {
	b := cpu.New()

	x := tensor.Full[float32](tensor.Shape{4}, 1, b)
	y := x.Clone()

	// Distinct raw identity over the same storage.
	assert.NotSame(t, x.Raw(), y.Raw())
	y.Set(9, 0)
	assert.Equal(t, float32(9), x.At(0))

	// Sharing makes neither side unique.
	assert.False(t, x.Raw().IsUnique())
}

func TestForceNonUnique(t *testing.T) {
	b := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2}, b)
	require.True(t, x.Raw().IsUnique())

	restore := x.Raw().ForceNonUnique()
	assert.False(t, x.Raw().IsUnique())

	restore()
	assert.True(t, x.Raw().IsUnique())
}

func TestCreationFills(t *testing.T) {
	b := cpu.New()

	assert.Equal(t, []float32{0, 0, 0, 0}, tensor.Zeros[float32](tensor.Shape{4}, b).Data())
	assert.Equal(t, []float32{1, 1, 1, 1}, tensor.Ones[float32](tensor.Shape{4}, b).Data())
	assert.Equal(t, []float64{2.5, 2.5}, tensor.Full[float64](tensor.Shape{2}, 2.5, b).Data())
	assert.Equal(t, []bool{true, true}, tensor.Ones[bool](tensor.Shape{2}, b).Data())
}

func TestRandFromReproducible(t *testing.T) {
	b := cpu.New()

	x := tensor.RandFrom[float32](rand.New(rand.NewSource(3)), tensor.Shape{16}, b)
	y := tensor.RandFrom[float32](rand.New(rand.NewSource(3)), tensor.Shape{16}, b)
	assert.Equal(t, x.Data(), y.Data())

	for _, v := range x.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestRandnFromReproducible(t *testing.T) {
	b := cpu.New()

	x := tensor.RandnFrom[float64](rand.New(rand.NewSource(5)), tensor.Shape{8}, b)
	y := tensor.RandnFrom[float64](rand.New(rand.NewSource(5)), tensor.Shape{8}, b)
	assert.Equal(t, x.Data(), y.Data())
}

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 4, tensor.Float32.Size())
	assert.Equal(t, 8, tensor.Float64.Size())
	assert.Equal(t, 4, tensor.Int32.Size())
	assert.Equal(t, 8, tensor.Int64.Size())
	assert.Equal(t, 1, tensor.Uint8.Size())
	assert.Equal(t, 1, tensor.Bool.Size())
}
