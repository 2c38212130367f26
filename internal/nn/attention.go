package nn

import (
	"fmt"
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// ScaledDotProductAttention computes softmax(q @ kᵀ / sqrt(headDim) + bias) @ v
// for q, k, v of shape (batch, heads, seq, headDim). bias, if non-nil, must
// broadcast to (batch, heads, seqQ, seqK).
func ScaledDotProductAttention[B tensor.Backend](q, k, v, bias *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	headDim := q.Shape()[len(q.Shape())-1]

	scores := q.BatchMatMul(k.Transpose())
	scores = scores.MulScalar(float32(1 / math.Sqrt(float64(headDim))))
	if bias != nil {
		scores = scores.Add(bias)
	}

	return scores.Softmax(-1).BatchMatMul(v)
}

// MultiheadAttention projects queries, keys, and values into numHeads
// subspaces, runs scaled dot-product attention per head, and projects the
// concatenated head outputs back to modelDim.
type MultiheadAttention[B tensor.Backend] struct {
	modelDim int
	numHeads int
	headDim  int

	qProj   *Linear[B]
	kProj   *Linear[B]
	vProj   *Linear[B]
	outProj *Linear[B]

	backend B
}

// NewMultiheadAttention creates a multi-head attention module. modelDim must
// be divisible by numHeads.
func NewMultiheadAttention[B tensor.Backend](modelDim, numHeads int, backend B) *MultiheadAttention[B] {
	if numHeads <= 0 || modelDim%numHeads != 0 {
		panic(fmt.Sprintf("MultiheadAttention: model dim %d not divisible by %d heads", modelDim, numHeads))
	}
	return &MultiheadAttention[B]{
		modelDim: modelDim,
		numHeads: numHeads,
		headDim:  modelDim / numHeads,
		qProj:    NewLinear(modelDim, modelDim, backend),
		kProj:    NewLinear(modelDim, modelDim, backend),
		vProj:    NewLinear(modelDim, modelDim, backend),
		outProj:  NewLinear(modelDim, modelDim, backend),
		backend:  backend,
	}
}

// Forward runs attention with queries, keys, and values of shape
// (batch, seq, modelDim). keyPadding, if non-nil, removes padded key
// positions from every query's distribution; attnBias, if non-nil, is added
// to the pre-softmax scores of every head.
func (m *MultiheadAttention[B]) Forward(
	queries, keys, values *tensor.Tensor[float32, B],
	keyPadding *PaddingMask,
	attnBias *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	qShape := queries.Shape()
	if len(qShape) != 3 || qShape[2] != m.modelDim {
		panic(fmt.Sprintf("MultiheadAttention.Forward: expected (batch, seq, %d) queries, got %v", m.modelDim, qShape))
	}
	batch, seqQ := qShape[0], qShape[1]
	seqK := keys.Shape()[1]

	q := m.splitHeads(m.qProj.Forward(queries), batch, seqQ)
	k := m.splitHeads(m.kProj.Forward(keys), batch, seqK)
	v := m.splitHeads(m.vProj.Forward(values), batch, seqK)

	bias := attnBias
	if keyPadding != nil {
		padBias := AttentionBiasFromPadding(keyPadding, m.backend)
		if bias == nil {
			bias = padBias
		} else {
			bias = bias.Add(padBias)
		}
	}

	attended := ScaledDotProductAttention(q, k, v, bias)

	// (batch, heads, seq, headDim) -> (batch, seq, modelDim)
	merged := attended.Transpose(0, 2, 1, 3).Reshape(batch, seqQ, m.modelDim)
	return m.outProj.Forward(merged)
}

// splitHeads reshapes (batch, seq, modelDim) to (batch, heads, seq, headDim).
func (m *MultiheadAttention[B]) splitHeads(x *tensor.Tensor[float32, B], batch, seq int) *tensor.Tensor[float32, B] {
	return x.Reshape(batch, seq, m.numHeads, m.headDim).Transpose(0, 2, 1, 3)
}

// Parameters returns the parameters of all four projections.
func (m *MultiheadAttention[B]) Parameters() []*Parameter[B] {
	params := append(m.qProj.Parameters(), m.kProj.Parameters()...)
	params = append(params, m.vProj.Parameters()...)
	return append(params, m.outProj.Parameters()...)
}

// NumHeads returns the head count.
func (m *MultiheadAttention[B]) NumHeads() int { return m.numHeads }
