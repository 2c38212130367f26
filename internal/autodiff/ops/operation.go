// Package ops defines the differentiable operations recorded on the gradient
// tape. Each operation captures its inputs and output during the forward pass
// and knows how to turn an output gradient into input gradients.
package ops

import "github.com/strand-ml/strand/internal/tensor"

// Operation is one recorded step of the forward pass.
type Operation interface {
	// Backward computes the gradients for this operation's inputs, in input
	// order, given the gradient of the loss with respect to the output.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward-pass input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward-pass output tensor.
	Output() *tensor.RawTensor
}
