// Package gang coordinates groups of workers that reduce metric values
// together. A gang is a fixed-size set of ranks; every rank must call
// AllReduce for a round to complete.
package gang

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Gang is a group of collaborating workers.
type Gang interface {
	// Rank returns this worker's index within the gang, in [0, Size).
	Rank() int

	// Size returns the number of workers in the gang.
	Size() int

	// AllReduce element-wise sums values across all ranks and returns the
	// reduced vector. It blocks until every rank has contributed to the
	// current round, or until ctx is canceled.
	AllReduce(ctx context.Context, values []float64) ([]float64, error)
}

// Single is a gang of one. AllReduce returns a copy of the input.
type Single struct{}

func (Single) Rank() int { return 0 }

func (Single) Size() int { return 1 }

func (Single) AllReduce(ctx context.Context, values []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]float64(nil), values...), nil
}

// round accumulates one all-reduce. The sum and err fields are only
// written while holding the reducer's mutex and before done is closed,
// so waiters may read them freely after done.
type round struct {
	sum     []float64
	arrived int
	done    chan struct{}
	err     error
}

// localReducer is the shared state behind a set of LocalGang handles.
type localReducer struct {
	mu   sync.Mutex
	size int
	cur  *round
}

func (r *localReducer) allReduce(ctx context.Context, values []float64) ([]float64, error) {
	r.mu.Lock()
	if r.cur == nil {
		r.cur = &round{done: make(chan struct{})}
	}
	rd := r.cur

	if rd.sum == nil {
		rd.sum = make([]float64, len(values))
	} else if len(rd.sum) != len(values) {
		err := fmt.Errorf("gang: all-reduce length mismatch: got %d values, round has %d", len(values), len(rd.sum))
		rd.err = err
		r.cur = nil
		close(rd.done)
		r.mu.Unlock()
		return nil, err
	}
	floats.Add(rd.sum, values)
	rd.arrived++

	if rd.arrived == r.size {
		r.cur = nil
		close(rd.done)
		r.mu.Unlock()
		return append([]float64(nil), rd.sum...), nil
	}
	r.mu.Unlock()

	select {
	case <-rd.done:
		if rd.err != nil {
			return nil, fmt.Errorf("gang: all-reduce aborted: %w", rd.err)
		}
		return append([]float64(nil), rd.sum...), nil
	case <-ctx.Done():
		// Poison the round so the remaining ranks fail instead of
		// waiting for a contribution that will never come.
		r.mu.Lock()
		if rd.err == nil {
			rd.err = ctx.Err()
			if r.cur == rd {
				r.cur = nil
			}
			close(rd.done)
		}
		r.mu.Unlock()
		return nil, ctx.Err()
	}
}

// LocalGang is one rank of an in-process gang. All ranks returned by a
// single NewLocal call share the same reducer.
type LocalGang struct {
	rank    int
	reducer *localReducer
}

// NewLocal creates a gang of size in-process ranks.
func NewLocal(size int) []*LocalGang {
	if size <= 0 {
		panic(fmt.Sprintf("gang size must be positive, got %d", size))
	}
	reducer := &localReducer{size: size}
	gangs := make([]*LocalGang, size)
	for i := range gangs {
		gangs[i] = &LocalGang{rank: i, reducer: reducer}
	}
	return gangs
}

func (g *LocalGang) Rank() int { return g.rank }

func (g *LocalGang) Size() int { return g.reducer.size }

func (g *LocalGang) AllReduce(ctx context.Context, values []float64) ([]float64, error) {
	return g.reducer.allReduce(ctx, values)
}

// RunLocal runs fn once per rank of a fresh local gang, each on its own
// goroutine, and waits for all of them. The first error cancels the
// context passed to the remaining ranks.
func RunLocal(ctx context.Context, size int, fn func(ctx context.Context, g Gang) error) error {
	gangs := NewLocal(size)

	eg, ctx := errgroup.WithContext(ctx)
	for _, g := range gangs {
		eg.Go(func() error {
			return fn(ctx, g)
		})
	}
	return eg.Wait()
}
