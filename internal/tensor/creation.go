package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	// make() already zero-initialized the buffer.
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	var one any
	switch any(dummy).(type) {
	case float32:
		one = float32(1)
	case float64:
		one = float64(1)
	case int32:
		one = int32(1)
	case int64:
		one = int64(1)
	case uint8:
		one = uint8(1)
	case bool:
		one = true
	}
	return Full[T, B](shape, one.(T), b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Rand creates a float tensor with values uniformly distributed in [0, 1),
// drawn from the shared math/rand source.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return randFill[T, B](shape, b, rand.Float64)
}

// RandFrom is like Rand but draws from the given generator, enabling
// reproducible sampling under a fixed seed.
func RandFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return randFill[T, B](shape, b, rng.Float64)
}

func randFill[T DType, B Backend](shape Shape, b B, next func() float64) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(next())
		}
	case []float64:
		for i := range data {
			data[i] = next()
		}
	default:
		panic("Rand only supports float32 and float64 types")
	}
	return t
}

// Randn creates a float tensor with values from the standard normal
// distribution, using the Box-Muller transform over the shared source.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return randnFill[T, B](shape, b, rand.Float64)
}

// RandnFrom is like Randn but draws from the given generator.
func RandnFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return randnFill[T, B](shape, b, rng.Float64)
}

func randnFill[T DType, B Backend](shape Shape, b B, next func() float64) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)

	normalPair := func() (float64, float64) {
		u1 := next()
		for u1 == 0 {
			u1 = next()
		}
		u2 := next()
		r := math.Sqrt(-2.0 * math.Log(u1))
		return r * math.Cos(2.0*math.Pi*u2), r * math.Sin(2.0*math.Pi*u2)
	}

	switch data := any(t.Data()).(type) {
	case []float32:
		for i := 0; i < len(data); i += 2 {
			z0, z1 := normalPair()
			data[i] = float32(z0)
			if i+1 < len(data) {
				data[i+1] = float32(z1)
			}
		}
	case []float64:
		for i := 0; i < len(data); i += 2 {
			z0, z1 := normalPair()
			data[i] = z0
			if i+1 < len(data) {
				data[i+1] = z1
			}
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}
