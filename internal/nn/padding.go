package nn

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// PaddingMask describes which positions of a (batch, seq) layout hold real
// elements. Row i is valid on positions [0, seqLens[i]) and padded after.
// It is immutable within a forward pass.
type PaddingMask struct {
	batchSize int
	seqLen    int
	seqLens   []int
}

// NewPaddingMask creates a padding mask from per-row valid lengths.
func NewPaddingMask(batchSize, seqLen int, seqLens []int) *PaddingMask {
	if len(seqLens) != batchSize {
		panic(fmt.Sprintf("PaddingMask: got %d sequence lengths for batch size %d", len(seqLens), batchSize))
	}
	for i, n := range seqLens {
		if n < 0 || n > seqLen {
			panic(fmt.Sprintf("PaddingMask: sequence length %d at row %d out of range [0, %d]", n, i, seqLen))
		}
	}
	return &PaddingMask{
		batchSize: batchSize,
		seqLen:    seqLen,
		seqLens:   append([]int(nil), seqLens...),
	}
}

// BatchSize returns the batch dimension.
func (m *PaddingMask) BatchSize() int { return m.batchSize }

// SeqLen returns the padded sequence dimension.
func (m *PaddingMask) SeqLen() int { return m.seqLen }

// SeqLens returns the per-row valid lengths. The slice must not be mutated.
func (m *PaddingMask) SeqLens() []int { return m.seqLens }

// IsValid reports whether (row, pos) holds a real element.
func (m *PaddingMask) IsValid(row, pos int) bool { return pos < m.seqLens[row] }

// BoolMask materializes the mask as a (batch, seq) boolean tensor with true
// at valid positions.
func BoolMask[B tensor.Backend](m *PaddingMask, backend B) *tensor.Tensor[bool, B] {
	raw, err := tensor.NewRaw(tensor.Shape{m.batchSize, m.seqLen}, tensor.Bool, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("PaddingMask: %v", err))
	}
	data := raw.AsBool()
	for row := 0; row < m.batchSize; row++ {
		for pos := 0; pos < m.seqLens[row]; pos++ {
			data[row*m.seqLen+pos] = true
		}
	}
	return tensor.New[bool](raw, backend)
}

// negInf is the additive-bias stand-in for minus infinity. Large enough to
// zero a position after softmax in float32 without producing NaNs.
const negInf = float32(-1e9)

// AttentionBiasFromPadding materializes the padding mask as an additive
// attention bias of shape (batch, 1, 1, seq): zero at valid key positions,
// negInf at padded ones. Broadcasts over heads and query positions.
func AttentionBiasFromPadding[B tensor.Backend](m *PaddingMask, backend B) *tensor.Tensor[float32, B] {
	raw, err := tensor.NewRaw(tensor.Shape{m.batchSize, 1, 1, m.seqLen}, tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("PaddingMask: %v", err))
	}
	data := raw.AsFloat32()
	for row := 0; row < m.batchSize; row++ {
		for pos := m.seqLens[row]; pos < m.seqLen; pos++ {
			data[row*m.seqLen+pos] = negInf
		}
	}
	return tensor.New[float32](raw, backend)
}
