package nn

import "github.com/strand-ml/strand/internal/tensor"

// SiLU computes x * sigmoid(x), the activation used in the feed-forward
// sublayers. It is composed from taped primitives so the backward pass needs
// no dedicated operation.
func SiLU[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.Mul(Sigmoid(x))
}

// Sigmoid computes 1 / (1 + exp(-x)) from taped primitives.
func Sigmoid[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	ones := tensor.Ones[float32](x.Shape(), x.Backend())
	return ones.Div(x.MulScalar(-1).Exp().AddScalar(1))
}
