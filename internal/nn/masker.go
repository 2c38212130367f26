package nn

import (
	"fmt"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// MaskerConfig configures wav2vec2-style span masking over a
// (batch, seq, modelDim) feature tensor.
type MaskerConfig struct {
	ModelDim int

	// Temporal masking over the sequence axis. MaxTemporalMaskProb must be
	// positive; a masker that never masks is a configuration error.
	TemporalSpanLen         int
	MaxTemporalMaskProb     float64
	MinNumTemporalMaskSpans int

	// Spatial masking over the feature axis, broadcast across time. Zero
	// MaxSpatialMaskProb disables it.
	SpatialSpanLen         int
	MaxSpatialMaskProb     float64
	MinNumSpatialMaskSpans int
}

// Masker overwrites temporally masked positions with a learned per-feature
// embedding and, when spatial masking is enabled, zeroes masked
// (batch, feature) coordinates across all positions. Masks are sampled fresh
// per call from the injectable generator.
type Masker[B tensor.Backend] struct {
	cfg               MaskerConfig
	temporalMaskEmbed *Parameter[B]
	rng               *rand.Rand
	backend           B
}

// NewMasker creates a Masker. The temporal mask embedding is initialized
// uniformly in [0, 1). A nil rng falls back to an unseeded generator.
func NewMasker[B tensor.Backend](cfg MaskerConfig, rng *rand.Rand, backend B) *Masker[B] {
	if cfg.ModelDim <= 0 {
		panic(fmt.Sprintf("Masker: model dim must be positive, got %d", cfg.ModelDim))
	}
	if cfg.MaxTemporalMaskProb <= 0 {
		panic(fmt.Sprintf("Masker: max temporal mask probability must be positive, got %v", cfg.MaxTemporalMaskProb))
	}
	if cfg.TemporalSpanLen <= 0 {
		panic(fmt.Sprintf("Masker: temporal span length must be positive, got %d", cfg.TemporalSpanLen))
	}
	if cfg.MaxSpatialMaskProb > 0 && cfg.SpatialSpanLen <= 0 {
		panic(fmt.Sprintf("Masker: spatial span length must be positive, got %d", cfg.SpatialSpanLen))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // model randomness, not security
	}

	embed := tensor.RandFrom[float32](rng, tensor.Shape{cfg.ModelDim}, backend)

	return &Masker[B]{
		cfg:               cfg,
		temporalMaskEmbed: NewParameter("temporal_mask_embed", embed),
		rng:               rng,
		backend:           backend,
	}
}

// TemporalMaskEmbed returns the learned embedding written at temporally
// masked positions.
func (m *Masker[B]) TemporalMaskEmbed() *Parameter[B] { return m.temporalMaskEmbed }

// Forward masks seqs (batch, seq, modelDim) in place and returns it together
// with the applied temporal mask. padding, if non-nil, restricts temporal
// span starts to each row's valid length. The spatial mask, when enabled, is
// applied after and independently of the temporal mask and is not returned.
func (m *Masker[B]) Forward(seqs *tensor.Tensor[float32, B], padding *PaddingMask) (*tensor.Tensor[float32, B], *tensor.Tensor[bool, B]) {
	shape := seqs.Shape()
	if len(shape) != 3 || shape[2] != m.cfg.ModelDim {
		panic(fmt.Sprintf("Masker.Forward: expected (batch, seq, %d) input, got %v", m.cfg.ModelDim, shape))
	}
	batch, seqLen := shape[0], shape[1]

	var rowLens []int
	if padding != nil {
		rowLens = padding.SeqLens()
	}

	temporalMask := ComputeRowMask(RowMaskConfig{
		SpanLen:     m.cfg.TemporalSpanLen,
		MaxMaskProb: m.cfg.MaxTemporalMaskProb,
		MinNumSpans: m.cfg.MinNumTemporalMaskSpans,
		Rng:         m.rng,
	}, batch, seqLen, rowLens, m.backend)

	if !anyTrue(temporalMask.Data()) {
		panic("internal: span sampler produced no temporal mask despite positive mask probability")
	}

	seqs = tensor.MaskedAssign(seqs, temporalMask, m.temporalMaskEmbed.Tensor())

	if m.cfg.MaxSpatialMaskProb > 0 {
		spatialMask := ComputeRowMask(RowMaskConfig{
			SpanLen:     m.cfg.SpatialSpanLen,
			MaxMaskProb: m.cfg.MaxSpatialMaskProb,
			MinNumSpans: m.cfg.MinNumSpatialMaskSpans,
			Rng:         m.rng,
		}, batch, m.cfg.ModelDim, nil, m.backend)

		seqs = tensor.MaskedFill(seqs, broadcastOverTime(spatialMask, m.backend), 0)
	}

	return seqs, temporalMask
}

// broadcastOverTime reshapes a (batch, feature) mask to (batch, 1, feature)
// so MaskedFill broadcasts it across the sequence axis. Built directly from
// the mask bytes; boolean masks never touch the tape.
func broadcastOverTime[B tensor.Backend](mask *tensor.Tensor[bool, B], backend B) *tensor.Tensor[bool, B] {
	shape := mask.Shape()
	raw, err := tensor.NewRaw(tensor.Shape{shape[0], 1, shape[1]}, tensor.Bool, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("Masker: %v", err))
	}
	copy(raw.AsBool(), mask.Data())
	return tensor.New[bool](raw, backend)
}

func anyTrue(data []bool) bool {
	for _, v := range data {
		if v {
			return true
		}
	}
	return false
}

// Parameters returns the temporal mask embedding.
func (m *Masker[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{m.temporalMaskEmbed}
}

// ExtractMaskedElements gathers the masked positions of seqs
// (batch, seq, modelDim) under mask (batch, seq) and regroups them as
// (batch, count, modelDim). Every row must hold the same number of masked
// positions; ragged counts make the regrouping ill-defined and panic rather
// than truncate or pad.
func ExtractMaskedElements[B tensor.Backend](seqs *tensor.Tensor[float32, B], mask *tensor.Tensor[bool, B]) *tensor.Tensor[float32, B] {
	seqsShape, maskShape := seqs.Shape(), mask.Shape()
	if len(seqsShape) != 3 || len(maskShape) != 2 || seqsShape[0] != maskShape[0] || seqsShape[1] != maskShape[1] {
		panic(fmt.Sprintf("ExtractMaskedElements: mask shape %v does not match sequence shape %v", maskShape, seqsShape))
	}
	batch, seqLen, modelDim := seqsShape[0], seqsShape[1], seqsShape[2]

	data := mask.Data()
	count := -1
	for row := 0; row < batch; row++ {
		rowCount := 0
		for pos := 0; pos < seqLen; pos++ {
			if data[row*seqLen+pos] {
				rowCount++
			}
		}
		if count == -1 {
			count = rowCount
		} else if rowCount != count {
			panic(fmt.Sprintf("ExtractMaskedElements: ragged mask: row 0 has %d masked positions, row %d has %d", count, row, rowCount))
		}
	}
	if count == 0 {
		panic("ExtractMaskedElements: mask selects no positions")
	}

	return tensor.MaskedSelectRows(seqs, mask).Reshape(batch, count, modelDim)
}
