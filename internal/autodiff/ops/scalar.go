package ops

import "github.com/strand-ml/strand/internal/tensor"

// MulScalarOp records output = x * s. grad_x = g * s.
type MulScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewMulScalarOp creates a MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{inputs: []*tensor.RawTensor{x}, output: output, scalar: scalar}
}

func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *MulScalarOp) Output() *tensor.RawTensor   { return op.output }

// AddScalarOp records output = x + s. The shift does not affect the gradient.
type AddScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddScalarOp creates an AddScalarOp.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *AddScalarOp) Output() *tensor.RawTensor   { return op.output }
