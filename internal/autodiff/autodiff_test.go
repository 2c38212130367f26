package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

type testBackend = *AutodiffBackend[*cpu.CPUBackend]

func newTestBackend(t *testing.T) testBackend {
	t.Helper()
	b := New(cpu.New())
	b.Tape().StartRecording()
	return b
}

func fromSlice(t *testing.T, b testBackend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

func TestBackwardSquare(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{2, 3}, tensor.Shape{2})
	y := x.Mul(x)

	grads := Backward(y, b)
	dx := grads[x.Raw()]
	require.NotNil(t, dx)
	assert.Equal(t, []float32{4, 6}, dx.AsFloat32())
}

func TestBackwardAddBroadcast(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := fromSlice(t, b, []float32{1, 1, 1}, tensor.Shape{3})
	y := x.Add(bias)

	grads := Backward(y, b)

	dx := grads[x.Raw()]
	require.NotNil(t, dx)
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, dx.AsFloat32())

	// The bias gradient is summed over the broadcast batch dimension.
	db := grads[bias.Raw()]
	require.NotNil(t, db)
	require.Equal(t, tensor.Shape{3}, db.Shape())
	assert.Equal(t, []float32{2, 2, 2}, db.AsFloat32())
}

func TestBackwardMatMul(t *testing.T) {
	b := newTestBackend(t)

	a := fromSlice(t, b, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	w := fromSlice(t, b, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y := a.MatMul(w)

	grads := Backward(y, b)

	// With g = ones: grad_a = g @ wᵀ, grad_w = aᵀ @ g.
	da := grads[a.Raw()]
	require.NotNil(t, da)
	assert.Equal(t, []float32{11, 15, 11, 15}, da.AsFloat32())

	dw := grads[w.Raw()]
	require.NotNil(t, dw)
	assert.Equal(t, []float32{4, 4, 6, 6}, dw.AsFloat32())
}

func TestBackwardTransposedParameter(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2}, tensor.Shape{1, 2})
	w := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	y := x.MatMul(w.Transpose())
	require.Equal(t, tensor.Shape{1, 3}, y.Shape())

	grads := Backward(y, b)

	// The gradient must land on the original parameter, not just its
	// transposed copy.
	dw := grads[w.Raw()]
	require.NotNil(t, dw)
	require.Equal(t, tensor.Shape{3, 2}, dw.Shape())
	assert.Equal(t, []float32{1, 2, 1, 2, 1, 2}, dw.AsFloat32())
}

func TestBackwardSoftmaxGradSumsToZero(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2, 3}, tensor.Shape{1, 3})
	s := x.Softmax(-1)

	// Weight the output so the gradient is not trivially zero.
	w := fromSlice(t, b, []float32{1, 0, 0}, tensor.Shape{1, 3})
	y := s.Mul(w)

	grads := Backward(y, b)
	dx := grads[x.Raw()]
	require.NotNil(t, dx)

	var sum float32
	for _, v := range dx.AsFloat32() {
		sum += v
	}
	// Softmax outputs sum to one, so any gradient through it sums to zero.
	assert.InDelta(t, 0, sum, 1e-6)
}

func TestBackwardMeanDim(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	y := x.MeanDim(1, false)

	grads := Backward(y, b)
	dx := grads[x.Raw()]
	require.NotNil(t, dx)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, dx.AsFloat32())
}

func TestBackwardSumDimKeepDim(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y := x.SumDim(0, true)
	require.Equal(t, tensor.Shape{1, 3}, y.Shape())

	grads := Backward(y, b)
	dx := grads[x.Raw()]
	require.NotNil(t, dx)
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, dx.AsFloat32())
}

func TestRecordDropForBackward(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1, 2}, tensor.Shape{2})
	w := fromSlice(t, b, []float32{3, 4}, tensor.Shape{2})

	// A branch that ran forward but whose result is discarded.
	branch := x.Mul(w)

	bypassed := b.RecordDropForBackward(x.Raw(), branch.Raw())
	y := tensor.New[float32](bypassed, b).Mul(x)

	grads := Backward(y, b)

	// The branch output gets an explicit zero gradient, and w gets zeros
	// through it rather than being absent from the map.
	dBranch := grads[branch.Raw()]
	require.NotNil(t, dBranch)
	assert.Equal(t, []float32{0, 0}, dBranch.AsFloat32())

	dw := grads[w.Raw()]
	require.NotNil(t, dw)
	assert.Equal(t, []float32{0, 0}, dw.AsFloat32())

	// x still receives the real gradient: y = x*x, dy/dx = 2x.
	dx := grads[x.Raw()]
	require.NotNil(t, dx)
	assert.Equal(t, []float32{2, 4}, dx.AsFloat32())
}

func TestTapeClearAndRecordingControl(t *testing.T) {
	b := newTestBackend(t)

	x := fromSlice(t, b, []float32{1}, tensor.Shape{1})
	_ = x.Add(x)
	assert.Equal(t, 1, b.Tape().NumOps())

	b.Tape().StopRecording()
	_ = x.Add(x)
	assert.Equal(t, 1, b.Tape().NumOps())

	b.Tape().Clear()
	assert.Equal(t, 0, b.Tape().NumOps())
}

func TestBackwardPanicsOnEmptyTape(t *testing.T) {
	b := New(cpu.New())

	x, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, b)
	require.NoError(t, err)

	assert.Panics(t, func() { Backward(x, b) })
}
