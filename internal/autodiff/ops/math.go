package ops

import "github.com/strand-ml/strand/internal/tensor"

// ExpOp records output = exp(x). grad_x = g * output.
type ExpOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpOp creates an ExpOp.
func NewExpOp(x, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

func (op *ExpOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *ExpOp) Output() *tensor.RawTensor   { return op.output }

// RsqrtOp records output = x^(-1/2).
//
// Backward:
//
//	d/dx x^(-1/2) = -1/2 * x^(-3/2) = -1/2 * output³
type RsqrtOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewRsqrtOp creates an RsqrtOp.
func NewRsqrtOp(x, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	cubed := backend.Mul(backend.Mul(op.output, op.output), op.output)
	grad := backend.Mul(outputGrad, cubed)
	grad = backend.MulScalar(grad, -0.5)
	return []*tensor.RawTensor{grad}
}

func (op *RsqrtOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *RsqrtOp) Output() *tensor.RawTensor   { return op.output }
