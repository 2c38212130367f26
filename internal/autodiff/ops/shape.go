package ops

import "github.com/strand-ml/strand/internal/tensor"

// ReshapeOp records output = reshape(x). The gradient is reshaped back to
// the input's shape. Unsqueeze is recorded through this op as well, since it
// is a reshape with an inserted size-1 dimension.
type ReshapeOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReshapeOp creates a ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}

func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *ReshapeOp) Output() *tensor.RawTensor   { return op.output }

// TransposeOp records output = transpose(x, axes). The gradient is transposed
// back with the inverse permutation.
//
// Recording matters even though transpose feels like a view: the backend
// materializes a new tensor, and without this op a parameter transposed before
// a matmul would never receive its gradient.
type TransposeOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a TransposeOp. axes must be the explicit permutation
// used in the forward pass.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{inputs: []*tensor.RawTensor{x}, output: output, axes: axes}
}

func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for d, ax := range op.axes {
		inverse[ax] = d
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

func (op *TransposeOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *TransposeOp) Output() *tensor.RawTensor   { return op.output }

// ExpandOp records output = expand(x, shape). The gradient is summed back
// over the broadcast dimensions.
type ExpandOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewExpandOp creates an ExpandOp.
func NewExpandOp(x, output *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{inputs: []*tensor.RawTensor{x}, output: output}
}

func (op *ExpandOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)}
}

func (op *ExpandOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *ExpandOp) Output() *tensor.RawTensor   { return op.output }
