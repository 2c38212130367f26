package nn

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// AttentionBiasFactory derives an additive self-attention bias from the input
// sequence once per stack forward call; the same bias is shared by every
// layer in that call. A nil return means no bias.
type AttentionBiasFactory[B tensor.Backend] func(seqs *tensor.Tensor[float32, B], training bool) *tensor.Tensor[float32, B]

// CausalAttentionBias returns a factory producing a (1, 1, seq, seq) bias
// with negInf above the diagonal, so position i attends only to positions
// <= i.
func CausalAttentionBias[B tensor.Backend]() AttentionBiasFactory[B] {
	return func(seqs *tensor.Tensor[float32, B], _ bool) *tensor.Tensor[float32, B] {
		seqLen := seqs.Shape()[1]

		raw, err := tensor.NewRaw(tensor.Shape{1, 1, seqLen, seqLen}, tensor.Float32, seqs.Backend().Device())
		if err != nil {
			panic(fmt.Sprintf("CausalAttentionBias: %v", err))
		}
		data := raw.AsFloat32()
		for i := 0; i < seqLen; i++ {
			for j := i + 1; j < seqLen; j++ {
				data[i*seqLen+j] = negInf
			}
		}
		return tensor.New[float32](raw, seqs.Backend())
	}
}
