package nn

import "github.com/strand-ml/strand/internal/tensor"

// LayerNorm normalizes the last dimension of its input:
//
//	y = gamma * (x - mean(x)) / sqrt(var(x) + eps) + beta
//
// gamma is initialized to ones, beta to zeros.
type LayerNorm[B tensor.Backend] struct {
	Gamma   *Parameter[B] // scale [dim]
	Beta    *Parameter[B] // shift [dim]
	Epsilon float32
	backend B
}

// NewLayerNorm creates a LayerNorm over the trailing dimension of size dim.
func NewLayerNorm[B tensor.Backend](dim int, epsilon float32, backend B) *LayerNorm[B] {
	return &LayerNorm[B]{
		Gamma:   NewParameter("gamma", tensor.Ones[float32](tensor.Shape{dim}, backend)),
		Beta:    NewParameter("beta", tensor.Zeros[float32](tensor.Shape{dim}, backend)),
		Epsilon: epsilon,
		backend: backend,
	}
}

// Forward applies layer normalization. Shape is preserved.
func (l *LayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	mean := x.MeanDim(-1, true)
	centered := x.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)

	normalized := centered.Mul(variance.AddScalar(l.Epsilon).Rsqrt())

	// gamma/beta are [dim]; broadcasting aligns from the right.
	return normalized.Mul(l.Gamma.Tensor()).Add(l.Beta.Tensor())
}

// Parameters returns gamma and beta.
func (l *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Gamma, l.Beta}
}
