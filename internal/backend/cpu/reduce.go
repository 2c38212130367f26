package cpu

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// SumDim sums over the given dimension. If keepDim is true the reduced
// dimension is kept with size 1, otherwise it is removed.
func (c *CPUBackend) SumDim(a *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("sumdim", a, dim, keepDim, 1)
}

// MeanDim averages over the given dimension. If keepDim is true the reduced
// dimension is kept with size 1, otherwise it is removed.
func (c *CPUBackend) MeanDim(a *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := a.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	return c.reduceDim("meandim", a, dim, keepDim, 1/float64(shape[dim]))
}

func (c *CPUBackend) reduceDim(name string, a *tensor.RawTensor, dim int, keepDim bool, scale float64) *tensor.RawTensor {
	shape := a.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: dimension %d out of range for shape %v", name, dim, shape))
	}

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	reduce := shape[dim]
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, size)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result := newRawLike(outShape, a)

	switch a.DType() {
	case tensor.Float32:
		ad, rd := a.AsFloat32(), result.AsFloat32()
		s := float32(scale)
		for o := 0; o < outer; o++ {
			base := o * reduce * inner
			out := rd[o*inner : (o+1)*inner]
			for r := 0; r < reduce; r++ {
				row := ad[base+r*inner : base+(r+1)*inner]
				for i := range out {
					out[i] += row[i]
				}
			}
			if scale != 1 {
				for i := range out {
					out[i] *= s
				}
			}
		}
	case tensor.Float64:
		ad, rd := a.AsFloat64(), result.AsFloat64()
		for o := 0; o < outer; o++ {
			base := o * reduce * inner
			out := rd[o*inner : (o+1)*inner]
			for r := 0; r < reduce; r++ {
				row := ad[base+r*inner : base+(r+1)*inner]
				for i := range out {
					out[i] += row[i]
				}
			}
			if scale != 1 {
				for i := range out {
					out[i] *= scale
				}
			}
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}

	return result
}
