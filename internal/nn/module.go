// Package nn implements the neural-network building blocks: linear and
// normalization layers, dropout, multi-head attention, transformer encoder
// layers and stacks with LayerDrop and layer-output hooks, and wav2vec2-style
// span masking.
//
// Modules are generic over the tensor backend, so the same model definition
// runs on a plain compute backend for inference and on an autodiff-wrapped
// backend for training.
package nn

import "github.com/strand-ml/strand/internal/tensor"

// Module is the base interface for components that carry trainable state.
type Module[B tensor.Backend] interface {
	// Parameters returns all trainable parameters, including those of
	// nested modules. Modules without state return an empty slice.
	Parameters() []*Parameter[B]
}

// Normalizer is a module that maps a tensor to a normalized tensor of the
// same shape, such as LayerNorm.
type Normalizer[B tensor.Backend] interface {
	Module[B]
	Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}
