package ops

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// reduceBroadcast sums a gradient down to targetShape, undoing any NumPy-style
// broadcasting the forward pass performed. Leading gradient dimensions that
// have no counterpart in the target are summed away; dimensions the target
// holds at size 1 are summed with keepDim.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on the identity level so later inplace writes cannot corrupt a
	// gradient that is still referenced from the accumulation map.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	resultShape := result.Shape()
	for d := range targetShape {
		if targetShape[d] == 1 && resultShape[d] > 1 {
			result = backend.SumDim(result, d, true)
			resultShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// zerosLike allocates a zero-filled tensor with the shape and dtype of ref.
func zerosLike(ref *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(ref.Shape(), ref.DType(), ref.Device())
	if err != nil {
		panic(fmt.Sprintf("zerosLike: %v", err))
	}
	return result
}
