// Copyright 2025 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/strand-ml/strand/internal/nn"
	"github.com/strand-ml/strand/tensor"
)

// Core interfaces

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Normalizer is a module whose Forward preserves the input shape, such
// as LayerNorm.
type Normalizer[B tensor.Backend] = nn.Normalizer[B]

// Parameter is a named trainable tensor with an optional gradient.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps a tensor as a named parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer computing y = x@Wᵀ + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-initialized weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// LayerNorm normalizes the trailing feature dimension.
type LayerNorm[B tensor.Backend] = nn.LayerNorm[B]

// NewLayerNorm creates a layer norm over dim features.
func NewLayerNorm[B tensor.Backend](dim int, epsilon float32, backend B) *LayerNorm[B] {
	return nn.NewLayerNorm(dim, epsilon, backend)
}

// Dropout zeroes elements with probability p during training and scales
// the survivors by 1/(1-p).
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout module. rng may be nil for an unseeded
// generator.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand, backend B) *Dropout[B] {
	return nn.NewDropout(p, rng, backend)
}

// FeedForward is the position-wise two-layer network with SiLU
// activation.
type FeedForward[B tensor.Backend] = nn.FeedForward[B]

// NewFeedForward creates a feed-forward network.
func NewFeedForward[B tensor.Backend](modelDim, innerDim int, backend B) *FeedForward[B] {
	return nn.NewFeedForward(modelDim, innerDim, backend)
}

// SiLU applies x * sigmoid(x) element-wise.
func SiLU[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.SiLU(x)
}

// Sigmoid applies 1/(1+exp(-x)) element-wise.
func Sigmoid[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Sigmoid(x)
}

// Attention

// MultiheadAttention is multi-head scaled dot-product attention with
// input and output projections.
type MultiheadAttention[B tensor.Backend] = nn.MultiheadAttention[B]

// NewMultiheadAttention creates a multi-head attention module.
// modelDim must be divisible by numHeads.
func NewMultiheadAttention[B tensor.Backend](modelDim, numHeads int, backend B) *MultiheadAttention[B] {
	return nn.NewMultiheadAttention(modelDim, numHeads, backend)
}

// ScaledDotProductAttention computes softmax(q@kᵀ/√d + bias)@v over
// (batch, heads, seq, headDim) inputs. bias may be nil.
func ScaledDotProductAttention[B tensor.Backend](q, k, v, bias *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.ScaledDotProductAttention(q, k, v, bias)
}

// AttentionBiasFactory derives a shared additive attention bias from a
// batch of sequences.
type AttentionBiasFactory[B tensor.Backend] = nn.AttentionBiasFactory[B]

// CausalAttentionBias returns a factory producing an upper-triangular
// bias that blocks attention to future positions.
func CausalAttentionBias[B tensor.Backend]() AttentionBiasFactory[B] {
	return nn.CausalAttentionBias[B]()
}

// PaddingMask records the valid length of each row in a batch.
type PaddingMask = nn.PaddingMask

// NewPaddingMask creates a padding mask. A nil seqLens means all rows
// are full length.
func NewPaddingMask(batchSize, seqLen int, seqLens []int) *PaddingMask {
	return nn.NewPaddingMask(batchSize, seqLen, seqLens)
}

// AttentionBiasFromPadding materializes a (batch, 1, 1, seqLen) additive
// bias excluding padded keys.
func AttentionBiasFromPadding[B tensor.Backend](m *PaddingMask, backend B) *tensor.Tensor[float32, B] {
	return nn.AttentionBiasFromPadding(m, backend)
}

// Encoder

// NormOrder selects where layer normalization runs relative to each
// sublayer.
type NormOrder = nn.NormOrder

// Norm order constants.
const (
	POST NormOrder = nn.POST
	PRE  NormOrder = nn.PRE
)

// ResidualConnect combines a sublayer's input and output.
type ResidualConnect[B tensor.Backend] = nn.ResidualConnect[B]

// StandardResidual adds the sublayer output to its input.
type StandardResidual[B tensor.Backend] = nn.StandardResidual[B]

// EncoderLayerConfig configures a single encoder layer.
type EncoderLayerConfig = nn.EncoderLayerConfig

// EncoderLayer is one Transformer encoder layer: self-attention and
// feed-forward sublayers, each wrapped in residual + normalization.
type EncoderLayer[B tensor.Backend] = nn.EncoderLayer[B]

// NewEncoderLayer creates an encoder layer. rng seeds dropout; nil
// falls back to an unseeded generator.
func NewEncoderLayer[B tensor.Backend](cfg EncoderLayerConfig, rng *rand.Rand, backend B) *EncoderLayer[B] {
	return nn.NewEncoderLayer(cfg, rng, backend)
}

// EncoderStackConfig configures an encoder stack.
type EncoderStackConfig = nn.EncoderStackConfig

// EncoderStack executes encoder layers in order, with optional
// LayerDrop, per-layer output hooks, a shared attention bias, and final
// normalization for non-POST order.
type EncoderStack[B tensor.Backend] = nn.EncoderStack[B]

// NewEncoderStack creates a stack over the given layers. biasFactory
// may be nil for no shared attention bias.
func NewEncoderStack[B tensor.Backend](
	layers []*EncoderLayer[B],
	cfg EncoderStackConfig,
	biasFactory AttentionBiasFactory[B],
	rng *rand.Rand,
	backend B,
) *EncoderStack[B] {
	return nn.NewEncoderStack(layers, cfg, biasFactory, rng, backend)
}

// LayerHook observes each layer's output. Returning false stops the
// remaining hooks for that layer.
type LayerHook[B tensor.Backend] = nn.LayerHook[B]

// HookHandle removes a registered hook.
type HookHandle = nn.HookHandle

// Masking

// RowMaskConfig configures span sampling for one mask axis.
type RowMaskConfig = nn.RowMaskConfig

// ComputeRowMask samples a boolean (batchSize, rowLen) mask of
// contiguous spans. See the internal documentation for the sampling
// rules.
func ComputeRowMask[B tensor.Backend](cfg RowMaskConfig, batchSize, rowLen int, rowLens []int, backend B) *tensor.Tensor[bool, B] {
	return nn.ComputeRowMask(cfg, batchSize, rowLen, rowLens, backend)
}

// MaskerConfig configures temporal and optional spatial span masking.
type MaskerConfig = nn.MaskerConfig

// Masker applies span masking to batches of sequences.
type Masker[B tensor.Backend] = nn.Masker[B]

// NewMasker creates a masker with a freshly initialized temporal mask
// embedding.
func NewMasker[B tensor.Backend](cfg MaskerConfig, rng *rand.Rand, backend B) *Masker[B] {
	return nn.NewMasker(cfg, rng, backend)
}

// ExtractMaskedElements regroups the masked positions of seqs into a
// (batch, count, feature) tensor. It panics when rows have unequal
// masked counts.
func ExtractMaskedElements[B tensor.Backend](seqs *tensor.Tensor[float32, B], mask *tensor.Tensor[bool, B]) *tensor.Tensor[float32, B] {
	return nn.ExtractMaskedElements(seqs, mask)
}

// Initialization

// Xavier draws uniform values scaled by fan-in and fan-out.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}
