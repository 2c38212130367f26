package metrics

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/strand-ml/strand/internal/gang"
)

// Bag holds named metrics. Metrics created with Sum and Mean are scoped
// to the current step and reset by Commit; metrics created with
// PersistentSum survive commits and accumulate over the whole run.
//
// A Bag is not safe for concurrent use. In a gang, each rank owns its
// own Bag and Sync reconciles them.
type Bag struct {
	sums       map[string]*Sum
	means      map[string]*Mean
	persistent map[string]bool
	steps      []map[string]float64
}

// NewBag creates an empty metric bag.
func NewBag() *Bag {
	return &Bag{
		sums:       make(map[string]*Sum),
		means:      make(map[string]*Mean),
		persistent: make(map[string]bool),
	}
}

// Sum returns the step-scoped sum metric with the given name, creating
// it on first use.
func (b *Bag) Sum(name string) *Sum {
	b.checkName(name, b.means)
	s, ok := b.sums[name]
	if !ok {
		s = &Sum{}
		b.sums[name] = s
	}
	return s
}

// PersistentSum returns the sum metric with the given name, creating it
// on first use. Persistent sums are not reset by Commit.
func (b *Bag) PersistentSum(name string) *Sum {
	s := b.Sum(name)
	b.persistent[name] = true
	return s
}

// Mean returns the step-scoped mean metric with the given name,
// creating it on first use.
func (b *Bag) Mean(name string) *Mean {
	b.checkName(name, b.sums)
	m, ok := b.means[name]
	if !ok {
		m = &Mean{}
		b.means[name] = m
	}
	return m
}

func (b *Bag) checkName(name string, other any) {
	var taken bool
	switch o := other.(type) {
	case map[string]*Sum:
		_, taken = o[name]
	case map[string]*Mean:
		_, taken = o[name]
	}
	if taken {
		panic(fmt.Sprintf("metric %q already registered with a different kind", name))
	}
}

// Value returns the current value of the named metric.
func (b *Bag) Value(name string) (float64, bool) {
	if s, ok := b.sums[name]; ok {
		return s.Value(), true
	}
	if m, ok := b.means[name]; ok {
		return m.Value(), true
	}
	return 0, false
}

// Values returns a snapshot of every metric's current value.
func (b *Bag) Values() map[string]float64 {
	out := make(map[string]float64, len(b.sums)+len(b.means))
	for name, s := range b.sums {
		out[name] = s.Value()
	}
	for name, m := range b.means {
		out[name] = m.Value()
	}
	return out
}

// Reset clears all step-scoped metrics. Persistent sums keep their
// totals.
func (b *Bag) Reset() {
	for name, s := range b.sums {
		if !b.persistent[name] {
			s.Reset()
		}
	}
	for _, m := range b.means {
		m.Reset()
	}
}

// ResetAll clears every metric, persistent ones included, and discards
// the committed step history.
func (b *Bag) ResetAll() {
	for _, s := range b.sums {
		s.Reset()
	}
	for _, m := range b.means {
		m.Reset()
	}
	b.persistent = make(map[string]bool)
	b.steps = nil
}

// Commit snapshots every metric's current value, appends the snapshot
// to the step history, resets the step-scoped metrics, and returns the
// snapshot.
func (b *Bag) Commit() map[string]float64 {
	snapshot := b.Values()
	b.steps = append(b.steps, snapshot)
	b.Reset()
	return snapshot
}

// NumSteps returns the number of committed steps.
func (b *Bag) NumSteps() int {
	return len(b.steps)
}

// SummaryStats describes the committed step values of one metric.
type SummaryStats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Summary computes summary statistics over the committed step values of
// the named metric. It returns false when no committed step recorded
// the metric.
func (b *Bag) Summary(name string) (SummaryStats, bool) {
	var values []float64
	for _, step := range b.steps {
		if v, ok := step[name]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return SummaryStats{}, false
	}
	return SummaryStats{
		Mean: stat.Mean(values, nil),
		Std:  stat.StdDev(values, nil),
		Min:  floats.Min(values),
		Max:  floats.Max(values),
	}, true
}

// UpdateSeqBatch records the bookkeeping counters for one batch of
// sequences: example and element counts for the step and the whole run,
// and the fraction of the (batch, seqLen) grid occupied by padding.
// A nil seqLens means no padding: every row has seqLen elements.
func (b *Bag) UpdateSeqBatch(batchSize, seqLen int, seqLens []int) {
	numElements := batchSize * seqLen
	if seqLens != nil {
		numElements = 0
		for _, n := range seqLens {
			numElements += n
		}
	}
	capacity := batchSize * seqLen

	b.Sum("num_examples").Update(float64(batchSize))
	b.Sum("num_elements").Update(float64(numElements))
	b.PersistentSum("total_num_examples").Update(float64(batchSize))
	b.PersistentSum("total_num_elements").Update(float64(numElements))

	if capacity > 0 {
		ratio := 1 - float64(numElements)/float64(capacity)
		b.Mean("padding_ratio").Update(ratio, float64(capacity))
	}
}

// UpdateLoss records a summed loss over numElements elements as a
// per-element weighted mean.
func (b *Bag) UpdateLoss(loss float64, numElements int) {
	if numElements <= 0 {
		panic(fmt.Sprintf("loss update needs a positive element count, got %d", numElements))
	}
	b.Mean("loss").Update(loss/float64(numElements), float64(numElements))
}

// Sync all-reduces the bag's counters across the gang, so that every
// rank ends up holding the global totals and the globally weighted
// means. All ranks must hold bags with identical metric names.
func (b *Bag) Sync(ctx context.Context, g gang.Gang) error {
	sumNames := sortedKeys(b.sums)
	meanNames := sortedKeys(b.means)

	vec := make([]float64, 0, len(sumNames)+2*len(meanNames))
	for _, name := range sumNames {
		vec = append(vec, b.sums[name].total)
	}
	for _, name := range meanNames {
		m := b.means[name]
		vec = append(vec, m.sum, m.weight)
	}

	reduced, err := g.AllReduce(ctx, vec)
	if err != nil {
		return fmt.Errorf("sync metric bag: %w", err)
	}

	i := 0
	for _, name := range sumNames {
		b.sums[name].total = reduced[i]
		i++
	}
	for _, name := range meanNames {
		m := b.means[name]
		m.sum = reduced[i]
		m.weight = reduced[i+1]
		i += 2
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
