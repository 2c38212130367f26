package autodiff

import (
	"github.com/strand-ml/strand/internal/autodiff/ops"
	"github.com/strand-ml/strand/internal/tensor"
)

// GradientTape records operations during the forward pass and replays them in
// reverse to compute gradients.
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates an empty, non-recording tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{operations: make([]ops.Operation, 0, 64)}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() { t.recording = false }

// IsRecording reports whether the tape is currently recording.
func (t *GradientTape) IsRecording() bool { return t.recording }

// Record appends an operation if the tape is recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear drops all recorded operations. The recording flag is preserved.
func (t *GradientTape) Clear() { t.operations = t.operations[:0] }

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int { return len(t.operations) }

// Backward walks the tape in reverse, seeding the last operation's output
// with outputGrad and accumulating input gradients via the chain rule.
// Gradients are keyed by tensor identity; tensors used by several operations
// have their contributions summed.
func (t *GradientTape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// The backward pass itself must not land on the tape.
	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads[t.operations[len(t.operations)-1].Output()] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]

		outGrad, ok := grads[op.Output()]
		if !ok {
			// No gradient reached this operation's output; nothing to
			// propagate. Happens for branches the loss does not depend on.
			continue
		}

		inputGrads := op.Backward(outGrad, backend)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, exists := grads[input]; exists {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}

	return grads
}
