package autodiff

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// BackwardCapable is a backend that owns a gradient tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape, satisfying BackwardCapable.
func (b *AutodiffBackend[B]) GetTape() *GradientTape { return b.tape }

// Backward seeds the output tensor's gradient with ones and walks the tape,
// returning the gradient of every tensor the output depends on, keyed by
// *RawTensor identity.
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	dx := grads[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to allocate output gradient: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		data := outputGrad.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := outputGrad.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic(fmt.Sprintf("backward: unsupported dtype %s", t.DType()))
	}

	return tape.Backward(outputGrad, backend)
}
