package cpu

import (
	"fmt"
	"math"

	"github.com/strand-ml/strand/internal/parallel"
	"github.com/strand-ml/strand/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (c *CPUBackend) MulScalar(a *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("mulscalar", a, scalar,
		func(x, s float32) float32 { return x * s },
		func(x, s float64) float64 { return x * s })
}

// AddScalar adds a scalar to every element.
func (c *CPUBackend) AddScalar(a *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("addscalar", a, scalar,
		func(x, s float32) float32 { return x + s },
		func(x, s float64) float64 { return x + s })
}

func (c *CPUBackend) scalarOp(
	name string,
	a *tensor.RawTensor,
	scalar any,
	f32 func(x, s float32) float32,
	f64 func(x, s float64) float64,
) *tensor.RawTensor {
	switch a.DType() {
	case tensor.Float32:
		s, ok := toFloat64(scalar)
		if !ok {
			panic(fmt.Sprintf("%s: scalar %T is not numeric", name, scalar))
		}
		sv := float32(s)
		if a.IsUnique() {
			ad := a.AsFloat32()
			for i := range ad {
				ad[i] = f32(ad[i], sv)
			}
			return a
		}
		result := newRawLike(a.Shape(), a)
		rd, ad := result.AsFloat32(), a.AsFloat32()
		for i := range rd {
			rd[i] = f32(ad[i], sv)
		}
		return result
	case tensor.Float64:
		s, ok := toFloat64(scalar)
		if !ok {
			panic(fmt.Sprintf("%s: scalar %T is not numeric", name, scalar))
		}
		result := newRawLike(a.Shape(), a)
		rd, ad := result.AsFloat64(), a.AsFloat64()
		for i := range rd {
			rd[i] = f64(ad[i], s)
		}
		return result
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
}

func toFloat64(scalar any) (float64, bool) {
	switch v := scalar.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Exp computes the element-wise exponential.
func (c *CPUBackend) Exp(a *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryOp("exp", a,
		func(x float32) float32 { return float32(math.Exp(float64(x))) },
		math.Exp)
}

// Rsqrt computes the element-wise reciprocal square root.
func (c *CPUBackend) Rsqrt(a *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryOp("rsqrt", a,
		func(x float32) float32 { return float32(1 / math.Sqrt(float64(x))) },
		func(x float64) float64 { return 1 / math.Sqrt(x) })
}

func (c *CPUBackend) unaryOp(
	name string,
	a *tensor.RawTensor,
	f32 func(x float32) float32,
	f64 func(x float64) float64,
) *tensor.RawTensor {
	result := newRawLike(a.Shape(), a)
	switch a.DType() {
	case tensor.Float32:
		rd, ad := result.AsFloat32(), a.AsFloat32()
		for i := range rd {
			rd[i] = f32(ad[i])
		}
	case tensor.Float64:
		rd, ad := result.AsFloat64(), a.AsFloat64()
		for i := range rd {
			rd[i] = f64(ad[i])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

// Softmax computes the softmax along dim, which must be the last dimension.
// Each row is shifted by its maximum before exponentiation for stability.
func (c *CPUBackend) Softmax(a *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := a.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim != len(shape)-1 {
		panic(fmt.Sprintf("softmax: only the last dimension is supported, got dim %d for shape %v", dim, shape))
	}
	if a.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s", a.DType()))
	}

	rowLen := shape[len(shape)-1]
	rows := shape.NumElements() / rowLen

	result := newRawLike(shape, a)
	ad, rd := a.AsFloat32(), result.AsFloat32()

	parallel.For(rows, func(r int) {
		in := ad[r*rowLen : (r+1)*rowLen]
		out := rd[r*rowLen : (r+1)*rowLen]

		maxVal := in[0]
		for _, v := range in[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i, v := range in {
			e := float32(math.Exp(float64(v - maxVal)))
			out[i] = e
			sum += e
		}

		inv := 1 / sum
		for i := range out {
			out[i] *= inv
		}
	}, c.par)

	return result
}
