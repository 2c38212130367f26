package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/gang"
)

func TestSum(t *testing.T) {
	var s Sum
	s.Update(2)
	s.Update(3.5)
	assert.Equal(t, 5.5, s.Value())

	s.Reset()
	assert.Zero(t, s.Value())
}

func TestMeanWeighted(t *testing.T) {
	var m Mean
	m.Update(1, 1)
	m.Update(4, 3)
	// (1*1 + 4*3) / 4
	assert.InDelta(t, 3.25, m.Value(), 1e-12)
	assert.Equal(t, float64(4), m.Weight())

	m.Reset()
	assert.Zero(t, m.Value())
}

func TestMeanEmptyIsZero(t *testing.T) {
	var m Mean
	assert.Zero(t, m.Value())
}

func TestBagValueAndKindClash(t *testing.T) {
	b := NewBag()
	b.Sum("count").Update(3)

	v, ok := b.Value("count")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)

	_, ok = b.Value("missing")
	assert.False(t, ok)

	// The same name cannot hold a sum and a mean.
	assert.Panics(t, func() { b.Mean("count") })
}

func TestBagCommitResetsStepMetrics(t *testing.T) {
	b := NewBag()
	b.Sum("num_examples").Update(8)
	b.PersistentSum("total_num_examples").Update(8)
	b.Mean("loss").Update(2, 4)

	snapshot := b.Commit()
	assert.Equal(t, float64(8), snapshot["num_examples"])
	assert.Equal(t, float64(2), snapshot["loss"])

	// Step metrics cleared, persistent totals kept.
	v, _ := b.Value("num_examples")
	assert.Zero(t, v)
	v, _ = b.Value("loss")
	assert.Zero(t, v)
	v, _ = b.Value("total_num_examples")
	assert.Equal(t, float64(8), v)

	assert.Equal(t, 1, b.NumSteps())
}

func TestBagResetAll(t *testing.T) {
	b := NewBag()
	b.PersistentSum("total_num_examples").Update(5)
	b.Commit()

	b.ResetAll()
	v, _ := b.Value("total_num_examples")
	assert.Zero(t, v)
	assert.Zero(t, b.NumSteps())
}

func TestBagUpdateSeqBatch(t *testing.T) {
	b := NewBag()
	b.UpdateSeqBatch(2, 10, []int{10, 5})

	v, _ := b.Value("num_examples")
	assert.Equal(t, float64(2), v)
	v, _ = b.Value("num_elements")
	assert.Equal(t, float64(15), v)
	v, _ = b.Value("padding_ratio")
	assert.InDelta(t, 0.25, v, 1e-12)

	// A second batch without padding accumulates the totals and dilutes
	// the padding ratio.
	b.UpdateSeqBatch(3, 10, nil)

	v, _ = b.Value("total_num_examples")
	assert.Equal(t, float64(5), v)
	v, _ = b.Value("total_num_elements")
	assert.Equal(t, float64(45), v)
	v, _ = b.Value("padding_ratio")
	assert.InDelta(t, 5.0/50.0, v, 1e-12)
}

func TestBagUpdateLoss(t *testing.T) {
	b := NewBag()
	b.UpdateLoss(12, 4) // 3 per element over 4 elements
	b.UpdateLoss(4, 2)  // 2 per element over 2 elements

	v, _ := b.Value("loss")
	assert.InDelta(t, 16.0/6.0, v, 1e-12)

	assert.Panics(t, func() { b.UpdateLoss(1, 0) })
}

func TestBagSummary(t *testing.T) {
	b := NewBag()
	for _, step := range []float64{1, 2, 3} {
		b.Sum("num_examples").Update(step)
		b.Commit()
	}

	stats, ok := b.Summary("num_examples")
	require.True(t, ok)
	assert.InDelta(t, 2, stats.Mean, 1e-12)
	assert.InDelta(t, 1, stats.Std, 1e-12)
	assert.Equal(t, float64(1), stats.Min)
	assert.Equal(t, float64(3), stats.Max)

	_, ok = b.Summary("missing")
	assert.False(t, ok)
}

func TestBagSyncSingle(t *testing.T) {
	b := NewBag()
	b.Sum("num_examples").Update(7)

	require.NoError(t, b.Sync(context.Background(), gang.Single{}))
	v, _ := b.Value("num_examples")
	assert.Equal(t, float64(7), v)
}

func TestBagSyncAcrossGang(t *testing.T) {
	err := gang.RunLocal(context.Background(), 3, func(ctx context.Context, g gang.Gang) error {
		b := NewBag()
		b.Sum("num_examples").Update(float64(g.Rank() + 1))
		b.Mean("loss").Update(float64(g.Rank()), 1)

		if err := b.Sync(ctx, g); err != nil {
			return err
		}

		// 1+2+3 examples; mean of 0, 1, 2 with equal weights.
		v, _ := b.Value("num_examples")
		assert.Equal(t, float64(6), v)
		v, _ = b.Value("loss")
		assert.InDelta(t, 1, v, 1e-12)
		return nil
	})
	require.NoError(t, err)
}

func TestBagSyncCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBag()
	b.Sum("num_examples").Update(1)
	assert.Error(t, b.Sync(ctx, gang.Single{}))
}
