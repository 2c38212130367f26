package cpu

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// MaskedFill writes value at every coordinate of x where mask is true. The
// mask must be broadcastable to x's shape. x is mutated in place.
func (c *CPUBackend) MaskedFill(x, mask *tensor.RawTensor, value float32) *tensor.RawTensor {
	if mask.DType() != tensor.Bool {
		panic(fmt.Sprintf("maskedfill: mask dtype is %s, not bool", mask.DType()))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maskedfill: unsupported dtype %s", x.DType()))
	}

	shape := x.Shape()
	strides := broadcastStrides(mask.Shape(), shape)

	xd, md := x.AsFloat32(), mask.AsBool()
	n := shape.NumElements()
	coords := make([]int, len(shape))
	srcIdx := 0
	for i := 0; i < n; i++ {
		if md[srcIdx] {
			xd[i] = value
		}
		srcIdx = advanceCoords(coords, strides, shape, srcIdx)
	}
	return x
}

// MaskedAssign writes the vector value over the last dimension of x at every
// row where mask is true. mask's shape must equal x's shape without its last
// dimension, and value must be a 1D vector of that last dimension's size.
// x is mutated in place.
func (c *CPUBackend) MaskedAssign(x, mask, value *tensor.RawTensor) *tensor.RawTensor {
	if mask.DType() != tensor.Bool {
		panic(fmt.Sprintf("maskedassign: mask dtype is %s, not bool", mask.DType()))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maskedassign: unsupported dtype %s", x.DType()))
	}

	shape := x.Shape()
	rowLen := shape[len(shape)-1]
	rowShape := shape[:len(shape)-1]
	if !mask.Shape().Equal(tensor.Shape(rowShape)) {
		panic(fmt.Sprintf("maskedassign: mask shape %v does not match row shape %v of %v", mask.Shape(), rowShape, shape))
	}
	if len(value.Shape()) != 1 || value.Shape()[0] != rowLen {
		panic(fmt.Sprintf("maskedassign: value shape %v does not match last dimension %d", value.Shape(), rowLen))
	}

	xd, md, vd := x.AsFloat32(), mask.AsBool(), value.AsFloat32()
	for r, set := range md {
		if set {
			copy(xd[r*rowLen:(r+1)*rowLen], vd)
		}
	}
	return x
}

// MaskedSelectRows gathers the rows of x where mask is true into a new
// [K, lastDim] tensor, in row-major order. mask's shape must equal x's shape
// without its last dimension.
func (c *CPUBackend) MaskedSelectRows(x, mask *tensor.RawTensor) *tensor.RawTensor {
	if mask.DType() != tensor.Bool {
		panic(fmt.Sprintf("maskedselectrows: mask dtype is %s, not bool", mask.DType()))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maskedselectrows: unsupported dtype %s", x.DType()))
	}

	shape := x.Shape()
	rowLen := shape[len(shape)-1]
	rowShape := shape[:len(shape)-1]
	if !mask.Shape().Equal(tensor.Shape(rowShape)) {
		panic(fmt.Sprintf("maskedselectrows: mask shape %v does not match row shape %v of %v", mask.Shape(), rowShape, shape))
	}

	md := mask.AsBool()
	count := 0
	for _, set := range md {
		if set {
			count++
		}
	}
	if count == 0 {
		panic("maskedselectrows: mask selects no rows")
	}

	result := newRawLike(tensor.Shape{count, rowLen}, x)
	xd, rd := x.AsFloat32(), result.AsFloat32()
	out := 0
	for r, set := range md {
		if set {
			copy(rd[out*rowLen:(out+1)*rowLen], xd[r*rowLen:(r+1)*rowLen])
			out++
		}
	}
	return result
}
