package nn

import (
	"fmt"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// RowMaskConfig configures span sampling for one axis.
type RowMaskConfig struct {
	// SpanLen is the length of each contiguous masked span.
	SpanLen int
	// MaxMaskProb is the nominal upper bound on the fraction of masked
	// positions per row. The realized fraction approaches it from below
	// because spans may overlap. Must be positive.
	MaxMaskProb float64
	// MinNumSpans is a hard floor on the span count per row. On short rows
	// the floor can push the realized masking fraction above MaxMaskProb;
	// that is deliberate, the floor wins.
	MinNumSpans int
	// Rng drives start sampling and the probabilistic rounding of the span
	// count. Nil falls back to an unseeded generator.
	Rng *rand.Rand
}

// ComputeRowMask samples a (batchSize, rowLen) boolean mask of contiguous
// spans. rowLens, if non-nil, gives each row's valid length; spans never
// start inside a row's padding. Every row receives the same number of spans
// (the minimum over rows of the per-row probabilistic count), clamped to at
// least max(MinNumSpans, 1) so a positive MaxMaskProb always yields a
// non-empty mask.
//
// The per-row count is maxMaskProb*rowLen/spanLen rounded probabilistically:
// a uniform draw decides whether to round up, so the expected count matches
// the nominal probability.
func ComputeRowMask[B tensor.Backend](cfg RowMaskConfig, batchSize, rowLen int, rowLens []int, backend B) *tensor.Tensor[bool, B] {
	if cfg.SpanLen <= 0 {
		panic(fmt.Sprintf("ComputeRowMask: span length must be positive, got %d", cfg.SpanLen))
	}
	if cfg.MaxMaskProb <= 0 {
		panic(fmt.Sprintf("ComputeRowMask: max mask probability must be positive, got %v", cfg.MaxMaskProb))
	}
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // model randomness, not security
	}

	if rowLens == nil {
		rowLens = make([]int, batchSize)
		for i := range rowLens {
			rowLens[i] = rowLen
		}
	}
	if len(rowLens) != batchSize {
		panic(fmt.Sprintf("ComputeRowMask: got %d row lengths for batch size %d", len(rowLens), batchSize))
	}

	// One probabilistic rounding draw per row, taken together so a seeded
	// generator reproduces the same counts; the shared count is the minimum
	// so extraction over the mask stays rectangular.
	numSpans := 0
	for i, n := range rowLens {
		if n < cfg.SpanLen {
			panic(fmt.Sprintf("ComputeRowMask: row %d has length %d, shorter than span length %d", i, n, cfg.SpanLen))
		}
		count := int(cfg.MaxMaskProb*float64(n)/float64(cfg.SpanLen) + rng.Float64())
		if count < cfg.MinNumSpans {
			count = cfg.MinNumSpans
		}
		if count < 1 {
			count = 1
		}
		if i == 0 || count < numSpans {
			numSpans = count
		}
	}

	raw, err := tensor.NewRaw(tensor.Shape{batchSize, rowLen}, tensor.Bool, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("ComputeRowMask: %v", err))
	}
	data := raw.AsBool()

	for i, n := range rowLens {
		row := data[i*rowLen : (i+1)*rowLen]
		for s := 0; s < numSpans; s++ {
			start := rng.Intn(n - cfg.SpanLen + 1)
			for p := start; p < start+cfg.SpanLen; p++ {
				row[p] = true
			}
		}
	}

	return tensor.New[bool](raw, backend)
}
