package ops

import "github.com/strand-ml/strand/internal/tensor"

// SumDimOp records output = sum(x, dim). The gradient broadcasts back over
// the reduced dimension.
type SumDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a SumDimOp. dim must already be normalized to a
// non-negative index.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{inputs: []*tensor.RawTensor{x}, output: output, dim: dim, keepDim: keepDim}
}

func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandReduced(outputGrad, op.inputs[0].Shape(), op.dim, op.keepDim, backend)}
}

func (op *SumDimOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SumDimOp) Output() *tensor.RawTensor   { return op.output }

// MeanDimOp records output = mean(x, dim). The gradient broadcasts back over
// the reduced dimension, scaled by 1/n.
type MeanDimOp struct {
	inputs  []*tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewMeanDimOp creates a MeanDimOp. dim must already be normalized to a
// non-negative index.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{inputs: []*tensor.RawTensor{x}, output: output, dim: dim, keepDim: keepDim}
}

func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	grad := expandReduced(outputGrad, inShape, op.dim, op.keepDim, backend)
	grad = backend.MulScalar(grad, 1.0/float64(inShape[op.dim]))
	return []*tensor.RawTensor{grad}
}

func (op *MeanDimOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *MeanDimOp) Output() *tensor.RawTensor   { return op.output }

// expandReduced broadcasts a reduction's output gradient back to the
// reduction input's shape, reinserting the reduced dimension if it was
// dropped.
func expandReduced(grad *tensor.RawTensor, inShape tensor.Shape, dim int, keepDim bool, backend tensor.Backend) *tensor.RawTensor {
	if !keepDim {
		grad = backend.Unsqueeze(grad, dim)
	}
	return backend.Expand(grad, inShape)
}
