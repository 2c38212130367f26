package nn

import (
	"fmt"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// Dropout zeroes each element independently with probability p during
// training and scales the survivors by 1/(1-p), so activations keep their
// expected magnitude and evaluation needs no rescaling. In eval mode it is
// the identity.
//
// The generator is injectable for reproducible runs; it is not synchronized,
// so concurrent forward calls must supply independent generators.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	rng      *rand.Rand
	backend  B
}

// NewDropout creates a Dropout module with drop probability p in [0, 1).
// A nil rng falls back to an unseeded generator.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand, backend B) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: probability must be in [0, 1), got %v", p))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // model randomness, not security
	}
	return &Dropout[B]{p: p, training: true, rng: rng, backend: backend}
}

// SetTraining switches between training (masking active) and eval (identity).
func (d *Dropout[B]) SetTraining(training bool) { d.training = training }

// Training reports whether masking is active.
func (d *Dropout[B]) Training() bool { return d.training }

// P returns the drop probability.
func (d *Dropout[B]) P() float32 { return d.p }

// Forward applies dropout. The sampled mask enters the computation as a
// constant factor, so gradients are masked and scaled identically to the
// activations.
func (d *Dropout[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		return x
	}

	mask, err := tensor.NewRaw(x.Shape(), tensor.Float32, d.backend.Device())
	if err != nil {
		panic(fmt.Sprintf("Dropout: %v", err))
	}

	scale := 1 / (1 - d.p)
	data := mask.AsFloat32()
	for i := range data {
		if d.rng.Float32() >= d.p {
			data[i] = scale
		}
	}

	return x.Mul(tensor.New[float32](mask, d.backend))
}

// Parameters returns an empty slice; dropout has no trainable state.
func (d *Dropout[B]) Parameters() []*Parameter[B] { return nil }
