package nn

import "github.com/strand-ml/strand/internal/tensor"

// Parameter is a named trainable tensor. After a backward pass the caller
// looks up the parameter's gradient in the gradient map by the tensor's raw
// identity and attaches it here.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Grad returns the gradient, or nil before the first backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] { return p.grad }

// SetGrad attaches a gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) { p.grad = grad }

// ZeroGrad clears the gradient.
func (p *Parameter[B]) ZeroGrad() { p.grad = nil }
