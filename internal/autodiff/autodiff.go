// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator. AutodiffBackend wraps any tensor.Backend, forwards every
// operation to it, and records the differentiable ones on a GradientTape so
// that gradients can later be computed by walking the tape in reverse.
package autodiff

import (
	"github.com/strand-ml/strand/internal/autodiff/ops"
	"github.com/strand-ml/strand/internal/tensor"
)

// AutodiffBackend wraps an inner backend and records operations on a tape.
// It implements tensor.Backend, so tensors built on it are used exactly like
// tensors built on the inner backend.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{inner: backend, tape: NewGradientTape()}
}

// Tape returns the gradient tape for recording control and inspection.
func (b *AutodiffBackend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B { return b.inner }

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device { return b.inner.Device() }

// Add performs element-wise addition and records the operation.
//
// ForceNonUnique keeps the inputs alive past the forward call: without it the
// inner backend could overwrite an operand in place and corrupt the values
// the backward pass needs.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// BatchMatMul performs batched matrix multiplication and records the
// operation.
func (b *AutodiffBackend[B]) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()

	result := b.inner.BatchMatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewBatchMatMulOp(x, y, result))
	}
	return result
}

// Reshape reshapes a tensor and records the operation so gradients flow back
// to the original shape.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Reshape(x, shape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Unsqueeze inserts a size-1 dimension and records it as a reshape.
func (b *AutodiffBackend[B]) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Unsqueeze(x, dim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Transpose permutes dimensions and records the operation. Without recording,
// a parameter transposed before a matmul would never receive its gradient.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	// Normalize the default (swap the trailing two dims) so the recorded
	// permutation is always explicit and invertible.
	if len(axes) == 0 {
		nd := len(x.Shape())
		axes = make([]int, nd)
		for d := range axes {
			axes[d] = d
		}
		axes[nd-2], axes[nd-1] = axes[nd-1], axes[nd-2]
	}

	result := b.inner.Transpose(x, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(x, result, axes))
	}
	return result
}

// Expand broadcasts a tensor to a larger shape and records the operation.
func (b *AutodiffBackend[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Expand(x, shape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewExpandOp(x, result))
	}
	return result
}

// MulScalar scales a tensor and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.MulScalar(x, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	}
	return result
}

// AddScalar shifts a tensor by a scalar and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.AddScalar(x, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

// Exp computes the element-wise exponential and records the operation.
func (b *AutodiffBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Exp(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewExpOp(x, result))
	}
	return result
}

// Rsqrt computes the element-wise reciprocal square root and records the
// operation.
func (b *AutodiffBackend[B]) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Rsqrt(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewRsqrtOp(x, result))
	}
	return result
}

// Softmax computes softmax along dim and records the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Softmax(x, dim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSoftmaxOp(x, result))
	}
	return result
}

// SumDim sums over a dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}
	return result
}

// MeanDim averages over a dimension and records the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim += len(x.Shape())
	}
	result := b.inner.MeanDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	}
	return result
}

// MaskedFill forwards to the inner backend without recording. Mask writes are
// not differentiated; callers apply them outside gradient-bearing paths.
func (b *AutodiffBackend[B]) MaskedFill(x, mask *tensor.RawTensor, value float32) *tensor.RawTensor {
	return b.inner.MaskedFill(x, mask, value)
}

// MaskedAssign forwards to the inner backend without recording.
func (b *AutodiffBackend[B]) MaskedAssign(x, mask, value *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.MaskedAssign(x, mask, value)
}

// MaskedSelectRows forwards to the inner backend without recording.
func (b *AutodiffBackend[B]) MaskedSelectRows(x, mask *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	return b.inner.MaskedSelectRows(x, mask)
}

// RecordDropForBackward returns an identity of kept and, when recording,
// tapes a bypass so that the producers of discarded receive an explicit zero
// gradient. Callers that discard a computed branch use this to keep the
// gradient map total over every branch that ran forward.
func (b *AutodiffBackend[B]) RecordDropForBackward(kept, discarded *tensor.RawTensor) *tensor.RawTensor {
	defer kept.ForceNonUnique()()
	defer discarded.ForceNonUnique()()

	result := kept.Clone()
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDropBypassOp(kept, discarded, result))
	}
	return result
}
