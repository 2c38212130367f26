package cpu

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// Reshape returns a copy of the tensor with a new shape. The element count
// must be unchanged.
func (c *CPUBackend) Reshape(a *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if a.Shape().NumElements() != shape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v to %v", a.Shape(), shape))
	}
	result := newRawLike(shape, a)
	copyRaw(result, a)
	return result
}

// Unsqueeze inserts a dimension of size 1 at the given position.
func (c *CPUBackend) Unsqueeze(a *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := a.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for shape %v", dim, shape))
	}
	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return c.Reshape(a, newShape)
}

// Transpose permutes the dimensions. With no axes given, the last two
// dimensions are swapped.
func (c *CPUBackend) Transpose(a *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := a.Shape()
	nd := len(shape)
	if nd < 2 {
		panic(fmt.Sprintf("transpose: need at least 2 dimensions, got shape %v", shape))
	}

	if len(axes) == 0 {
		axes = make([]int, nd)
		for d := range axes {
			axes[d] = d
		}
		axes[nd-2], axes[nd-1] = axes[nd-1], axes[nd-2]
	}
	if len(axes) != nd {
		panic(fmt.Sprintf("transpose: got %d axes for %d dimensions", len(axes), nd))
	}
	seen := make([]bool, nd)
	for _, ax := range axes {
		if ax < 0 || ax >= nd || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for shape %v", axes, shape))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, nd)
	for d, ax := range axes {
		outShape[d] = shape[ax]
	}
	result := newRawLike(outShape, a)

	inStrides := shape.ComputeStrides()
	readStrides := make([]int, nd)
	for d, ax := range axes {
		readStrides[d] = inStrides[ax]
	}

	n := shape.NumElements()
	coords := make([]int, nd)
	srcIdx := 0

	switch a.DType() {
	case tensor.Float32:
		ad, rd := a.AsFloat32(), result.AsFloat32()
		for i := 0; i < n; i++ {
			rd[i] = ad[srcIdx]
			for d := nd - 1; d >= 0; d-- {
				coords[d]++
				srcIdx += readStrides[d]
				if coords[d] < outShape[d] {
					break
				}
				srcIdx -= coords[d] * readStrides[d]
				coords[d] = 0
			}
		}
	case tensor.Float64:
		ad, rd := a.AsFloat64(), result.AsFloat64()
		for i := 0; i < n; i++ {
			rd[i] = ad[srcIdx]
			for d := nd - 1; d >= 0; d-- {
				coords[d]++
				srcIdx += readStrides[d]
				if coords[d] < outShape[d] {
					break
				}
				srcIdx -= coords[d] * readStrides[d]
				coords[d] = 0
			}
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", a.DType()))
	}

	return result
}

// Expand materializes a broadcast of the tensor to the given shape. Input
// dimensions of size 1 may grow; all others must match.
func (c *CPUBackend) Expand(a *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	inShape := a.Shape()
	if len(shape) < len(inShape) {
		panic(fmt.Sprintf("expand: target %v has fewer dimensions than %v", shape, inShape))
	}
	offset := len(shape) - len(inShape)
	for d := range inShape {
		if inShape[d] != 1 && inShape[d] != shape[d+offset] {
			panic(fmt.Sprintf("expand: cannot expand %v to %v", inShape, shape))
		}
	}

	result := newRawLike(shape, a)
	strides := broadcastStrides(inShape, shape)

	n := shape.NumElements()
	coords := make([]int, len(shape))
	srcIdx := 0

	switch a.DType() {
	case tensor.Float32:
		ad, rd := a.AsFloat32(), result.AsFloat32()
		for i := 0; i < n; i++ {
			rd[i] = ad[srcIdx]
			srcIdx = advanceCoords(coords, strides, shape, srcIdx)
		}
	case tensor.Float64:
		ad, rd := a.AsFloat64(), result.AsFloat64()
		for i := 0; i < n; i++ {
			rd[i] = ad[srcIdx]
			srcIdx = advanceCoords(coords, strides, shape, srcIdx)
		}
	case tensor.Bool:
		ad, rd := a.AsBool(), result.AsBool()
		for i := 0; i < n; i++ {
			rd[i] = ad[srcIdx]
			srcIdx = advanceCoords(coords, strides, shape, srcIdx)
		}
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %s", a.DType()))
	}

	return result
}

// advanceCoords steps the coordinate odometer by one position and returns the
// updated source index.
func advanceCoords(coords, strides []int, shape tensor.Shape, srcIdx int) int {
	for d := len(shape) - 1; d >= 0; d-- {
		coords[d]++
		srcIdx += strides[d]
		if coords[d] < shape[d] {
			return srcIdx
		}
		srcIdx -= coords[d] * strides[d]
		coords[d] = 0
	}
	return srcIdx
}

// copyRaw copies the contiguous payload of src into dst. Both must hold the
// same dtype and element count.
func copyRaw(dst, src *tensor.RawTensor) {
	n := src.NumElements() * src.DType().Size()
	copy(dst.Data()[:n], src.Data()[:n])
}
