package nn

import "github.com/strand-ml/strand/internal/tensor"

// FeedForward is the position-wise feed-forward sublayer:
// Linear(modelDim -> innerDim), SiLU, Linear(innerDim -> modelDim).
type FeedForward[B tensor.Backend] struct {
	inner *Linear[B]
	outer *Linear[B]
}

// NewFeedForward creates a feed-forward sublayer.
func NewFeedForward[B tensor.Backend](modelDim, innerDim int, backend B) *FeedForward[B] {
	return &FeedForward[B]{
		inner: NewLinear(modelDim, innerDim, backend),
		outer: NewLinear(innerDim, modelDim, backend),
	}
}

// Forward applies the sublayer position-wise. Shape is preserved.
func (f *FeedForward[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return f.outer.Forward(SiLU(f.inner.Forward(x)))
}

// Parameters returns the parameters of both projections.
func (f *FeedForward[B]) Parameters() []*Parameter[B] {
	return append(f.inner.Parameters(), f.outer.Parameters()...)
}
