package nn

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
//
// The weight has shape [outFeatures, inFeatures] and the bias [outFeatures].
// Inputs may carry any number of leading batch dimensions; the layer applies
// to the last dimension.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B] // nil when constructed without bias
	backend     B
}

// NewLinear creates a Linear layer with Xavier-initialized weights and a
// zero bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	bias := NewParameter("bias", tensor.Zeros[float32](tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward applies the layer to the last dimension of input.
//
// Shapes: [..., inFeatures] -> [..., outFeatures].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if shape[len(shape)-1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got shape %v", l.inFeatures, shape))
	}

	// Fold leading dimensions into one batch axis so a single matmul covers
	// 2D and 3D inputs alike.
	rows := input.NumElements() / l.inFeatures
	x := input
	if len(shape) != 2 {
		x = input.Reshape(rows, l.inFeatures)
	}

	output := x.MatMul(l.weight.Tensor().Transpose())
	if l.bias != nil {
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}

	if len(shape) != 2 {
		outShape := append(append([]int(nil), shape[:len(shape)-1]...), l.outFeatures)
		output = output.Reshape(outShape...)
	}
	return output
}

// Parameters returns the weight and, if present, the bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter, or nil.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the input feature count.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output feature count.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }
