// Package cpu implements the pure-Go reference compute backend.
package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/strand-ml/strand/internal/parallel"
	"github.com/strand-ml/strand/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string { return "CPU" }

// Device returns the compute device.
func (c *CPUBackend) Device() tensor.Device { return c.device }

// Add performs element-wise addition with broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y },
		floats.AddTo)
}

// Sub performs element-wise subtraction with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y },
		floats.SubTo)
}

// Mul performs element-wise multiplication with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y },
		floats.MulTo)
}

// Div performs element-wise division with broadcasting.
func (c *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y },
		floats.DivTo)
}

// binaryOp applies f element-wise with NumPy-style broadcasting. Same-shape
// float64 inputs go through the vectorized gonum kernel; same-shape float32
// inputs with a unique buffer are updated in place.
func (c *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
	vec64 func(dst, s, t []float64) []float64,
) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		switch a.DType() {
		case tensor.Float32:
			if a.IsUnique() {
				ad, bd := a.AsFloat32(), b.AsFloat32()
				for i := range ad {
					ad[i] = f32(ad[i], bd[i])
				}
				return a
			}
			result := newRawLike(outShape, a)
			rd, ad, bd := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
			for i := range rd {
				rd[i] = f32(ad[i], bd[i])
			}
			return result
		case tensor.Float64:
			result := newRawLike(outShape, a)
			vec64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
			return result
		default:
			panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
		}
	}

	result := newRawLike(outShape, a)
	broadcastBinary(result, a, b, f32, f64)
	return result
}

// newRawLike allocates a result tensor with the given shape and the dtype and
// device of the reference tensor.
func newRawLike(shape tensor.Shape, ref *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, ref.DType(), ref.Device())
	if err != nil {
		panic(fmt.Sprintf("failed to allocate result tensor: %v", err))
	}
	return result
}
