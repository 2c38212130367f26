package ops

import "github.com/strand-ml/strand/internal/tensor"

// DropBypassOp records the decision to discard a computed branch while
// keeping the bypass value. The forward pass is the identity on the kept
// input; the discarded input still appears on the tape so that its producers
// receive an explicit zero gradient instead of none at all.
//
// Backward:
//
//	grad_kept      = g
//	grad_discarded = 0
type DropBypassOp struct {
	inputs []*tensor.RawTensor // [kept, discarded]
	output *tensor.RawTensor
}

// NewDropBypassOp creates a DropBypassOp. output must be a fresh identity of
// kept so the tape can key its gradient separately.
func NewDropBypassOp(kept, discarded, output *tensor.RawTensor) *DropBypassOp {
	return &DropBypassOp{inputs: []*tensor.RawTensor{kept, discarded}, output: output}
}

func (op *DropBypassOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone(), zerosLike(op.inputs[1])}
}

func (op *DropBypassOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *DropBypassOp) Output() *tensor.RawTensor   { return op.output }
