package ops

import "github.com/strand-ml/strand/internal/tensor"

// SoftmaxOp records output = softmax(x) along the last dimension.
//
// Backward (per row, with s = output and g = outputGrad):
//
//	grad_x = s * (g - Σ_j g_j s_j)
type SoftmaxOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftmaxOp creates a SoftmaxOp.
func NewSoftmaxOp(x, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := op.output
	lastDim := len(s.Shape()) - 1

	dot := backend.SumDim(backend.Mul(outputGrad, s), lastDim, true)
	grad := backend.Mul(backend.Sub(outputGrad, dot), s)

	return []*tensor.RawTensor{grad}
}

func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *SoftmaxOp) Output() *tensor.RawTensor   { return op.output }
