package nn

import (
	"fmt"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// EncoderLayerConfig configures one transformer encoder layer.
type EncoderLayerConfig struct {
	ModelDim    int
	NumHeads    int
	FFNInnerDim int
	// Dropout applied to each sublayer's output before the residual
	// addition. Zero disables it.
	Dropout float32
	// NormOrder places layer normalization before (PRE) or after (POST)
	// each residual sublayer.
	NormOrder NormOrder
	// Epsilon for the layer norms. Zero defaults to 1e-5.
	Epsilon float32
}

func (c *EncoderLayerConfig) validate() {
	if c.ModelDim <= 0 {
		panic(fmt.Sprintf("EncoderLayer: model dim must be positive, got %d", c.ModelDim))
	}
	if c.FFNInnerDim <= 0 {
		panic(fmt.Sprintf("EncoderLayer: FFN inner dim must be positive, got %d", c.FFNInnerDim))
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-5
	}
}

// EncoderLayer is one transformer encoder layer: a self-attention sublayer
// and a feed-forward sublayer, each wrapped in residual + layer norm with the
// configured norm order, with optional dropout on each sublayer output.
type EncoderLayer[B tensor.Backend] struct {
	selfAttn     *MultiheadAttention[B]
	selfAttnNorm Normalizer[B]
	ffn          *FeedForward[B]
	ffnNorm      Normalizer[B]
	dropout      *Dropout[B] // nil when cfg.Dropout == 0
	residual     ResidualConnect[B]
	normOrder    NormOrder
}

// NewEncoderLayer creates an encoder layer. rng seeds the dropout sampling
// and may be nil for an unseeded generator.
func NewEncoderLayer[B tensor.Backend](cfg EncoderLayerConfig, rng *rand.Rand, backend B) *EncoderLayer[B] {
	cfg.validate()

	var dropout *Dropout[B]
	if cfg.Dropout > 0 {
		dropout = NewDropout(cfg.Dropout, rng, backend)
	}

	return &EncoderLayer[B]{
		selfAttn:     NewMultiheadAttention(cfg.ModelDim, cfg.NumHeads, backend),
		selfAttnNorm: NewLayerNorm(cfg.ModelDim, cfg.Epsilon, backend),
		ffn:          NewFeedForward(cfg.ModelDim, cfg.FFNInnerDim, backend),
		ffnNorm:      NewLayerNorm(cfg.ModelDim, cfg.Epsilon, backend),
		dropout:      dropout,
		residual:     StandardResidual[B]{},
		normOrder:    cfg.NormOrder,
	}
}

// SetResidual swaps the residual-connection strategy.
func (l *EncoderLayer[B]) SetResidual(r ResidualConnect[B]) { l.residual = r }

// SetTraining propagates the training flag to the layer's dropout.
func (l *EncoderLayer[B]) SetTraining(training bool) {
	if l.dropout != nil {
		l.dropout.SetTraining(training)
	}
}

// Forward transforms seqs (batch, seq, modelDim) and returns a tensor of the
// same shape together with the unchanged padding mask. attnBias, if non-nil,
// is added to the pre-softmax attention scores.
func (l *EncoderLayer[B]) Forward(
	seqs *tensor.Tensor[float32, B],
	padding *PaddingMask,
	attnBias *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], *PaddingMask) {
	seqs = l.forwardSelfAttn(seqs, padding, attnBias)
	seqs = l.forwardFFN(seqs)
	return seqs, padding
}

func (l *EncoderLayer[B]) forwardSelfAttn(
	seqs *tensor.Tensor[float32, B],
	padding *PaddingMask,
	attnBias *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	residual := seqs

	if l.normOrder == PRE {
		seqs = l.selfAttnNorm.Forward(seqs)
	}

	seqs = l.selfAttn.Forward(seqs, seqs, seqs, padding, attnBias)

	if l.dropout != nil {
		seqs = l.dropout.Forward(seqs)
	}

	seqs = l.residual.Connect(residual, seqs)

	if l.normOrder == POST {
		seqs = l.selfAttnNorm.Forward(seqs)
	}
	return seqs
}

func (l *EncoderLayer[B]) forwardFFN(seqs *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	residual := seqs

	if l.normOrder == PRE {
		seqs = l.ffnNorm.Forward(seqs)
	}

	seqs = l.ffn.Forward(seqs)

	if l.dropout != nil {
		seqs = l.dropout.Forward(seqs)
	}

	seqs = l.residual.Connect(residual, seqs)

	if l.normOrder == POST {
		seqs = l.ffnNorm.Forward(seqs)
	}
	return seqs
}

// Parameters returns the parameters of both sublayers and their norms.
func (l *EncoderLayer[B]) Parameters() []*Parameter[B] {
	params := append(l.selfAttn.Parameters(), l.selfAttnNorm.Parameters()...)
	params = append(params, l.ffn.Parameters()...)
	return append(params, l.ffnNorm.Parameters()...)
}
