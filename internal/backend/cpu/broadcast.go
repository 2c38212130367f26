package cpu

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// broadcastStrides returns per-output-dimension strides for reading an input
// of shape inShape as if it were broadcast to outShape. Broadcast dimensions
// (size 1, or missing leading dimensions) get a stride of 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	inStrides := inShape.ComputeStrides()
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	for d := range outShape {
		if d < offset {
			continue // missing leading dim, stride 0
		}
		if inShape[d-offset] != 1 {
			strides[d] = inStrides[d-offset]
		}
	}
	return strides
}

// broadcastBinary computes result = f(a, b) element-wise where a and b are
// broadcast to result's shape.
func broadcastBinary(
	result, a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) {
	outShape := result.Shape()
	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)

	coords := make([]int, len(outShape))
	advance := func(aIdx, bIdx *int) bool {
		for d := len(outShape) - 1; d >= 0; d-- {
			coords[d]++
			*aIdx += aStrides[d]
			*bIdx += bStrides[d]
			if coords[d] < outShape[d] {
				return true
			}
			*aIdx -= coords[d] * aStrides[d]
			*bIdx -= coords[d] * bStrides[d]
			coords[d] = 0
		}
		return false
	}

	n := outShape.NumElements()
	switch result.DType() {
	case tensor.Float32:
		rd, ad, bd := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
		aIdx, bIdx := 0, 0
		for i := 0; i < n; i++ {
			rd[i] = f32(ad[aIdx], bd[bIdx])
			if i+1 < n && !advance(&aIdx, &bIdx) {
				break
			}
		}
	case tensor.Float64:
		rd, ad, bd := result.AsFloat64(), a.AsFloat64(), b.AsFloat64()
		aIdx, bIdx := 0, 0
		for i := 0; i < n; i++ {
			rd[i] = f64(ad[aIdx], bd[bIdx])
			if i+1 < n && !advance(&aIdx, &bIdx) {
				break
			}
		}
	default:
		panic(fmt.Sprintf("broadcast: unsupported dtype %s", result.DType()))
	}
}
