package nn

import "github.com/strand-ml/strand/internal/tensor"

// ResidualConnect combines a sublayer's input with its output. Injectable so
// callers can swap in scaled or gated variants.
type ResidualConnect[B tensor.Backend] interface {
	Connect(residual, output *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// StandardResidual is the plain additive connection: residual + output.
type StandardResidual[B tensor.Backend] struct{}

// Connect returns residual + output.
func (StandardResidual[B]) Connect(residual, output *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return residual.Add(output)
}
