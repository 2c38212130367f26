package ops

import "github.com/strand-ml/strand/internal/tensor"

// MatMulOp records output = a @ b for 2D operands.
//
// Backward:
//
//	grad_a = g @ bᵀ
//	grad_b = aᵀ @ g
type MatMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewMatMulOp creates a MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.MatMul(outputGrad, backend.Transpose(b))
	gradB := backend.MatMul(backend.Transpose(a), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *MatMulOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *MatMulOp) Output() *tensor.RawTensor   { return op.output }

// BatchMatMulOp records output = a @ b over the trailing two dimensions of
// matching 3D or 4D batches. The backward pass is the matmul rule applied
// per batch, with the transpose swapping the trailing two dimensions.
type BatchMatMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewBatchMatMulOp creates a BatchMatMulOp.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{inputs: []*tensor.RawTensor{a, b}, output: output}
}

func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.BatchMatMul(outputGrad, backend.Transpose(b))
	gradB := backend.BatchMatMul(backend.Transpose(a), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *BatchMatMulOp) Output() *tensor.RawTensor   { return op.output }
