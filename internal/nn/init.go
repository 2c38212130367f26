package nn

import (
	"math"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// Xavier initializes a weight tensor with Glorot uniform values:
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return XavierFrom(rand.Float64, fanIn, fanOut, shape, backend)
}

// XavierFrom is Xavier with an injectable uniform [0, 1) source, for
// reproducible initialization under a seeded generator.
func XavierFrom[B tensor.Backend](next func() float64, fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32((next()*2 - 1) * bound)
	}
	return tensor.New[float32](raw, backend)
}
