package gang

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleAllReduce(t *testing.T) {
	g := Single{}
	assert.Equal(t, 0, g.Rank())
	assert.Equal(t, 1, g.Size())

	in := []float64{1, 2, 3}
	out, err := g.AllReduce(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// The result is a copy, not the caller's slice.
	out[0] = 99
	assert.Equal(t, float64(1), in[0])
}

func TestSingleAllReduceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Single{}.AllReduce(ctx, []float64{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalRanks(t *testing.T) {
	gangs := NewLocal(3)
	require.Len(t, gangs, 3)
	for i, g := range gangs {
		assert.Equal(t, i, g.Rank())
		assert.Equal(t, 3, g.Size())
	}
}

func TestNewLocalInvalidSizePanics(t *testing.T) {
	assert.Panics(t, func() { NewLocal(0) })
}

func TestRunLocalSums(t *testing.T) {
	var mu sync.Mutex
	var results [][]float64

	err := RunLocal(context.Background(), 4, func(ctx context.Context, g Gang) error {
		out, err := g.AllReduce(ctx, []float64{float64(g.Rank()), 1})
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, out)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	// Every rank observes the same reduction: 0+1+2+3 and 1+1+1+1.
	require.Len(t, results, 4)
	for _, out := range results {
		assert.Equal(t, []float64{6, 4}, out)
	}
}

func TestRunLocalMultipleRounds(t *testing.T) {
	err := RunLocal(context.Background(), 3, func(ctx context.Context, g Gang) error {
		first, err := g.AllReduce(ctx, []float64{1})
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{3}, first)

		second, err := g.AllReduce(ctx, []float64{float64(g.Rank())})
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{3}, second)
		return nil
	})
	require.NoError(t, err)
}

func TestRunLocalRanksAreDistinct(t *testing.T) {
	var mu sync.Mutex
	var ranks []int

	err := RunLocal(context.Background(), 4, func(ctx context.Context, g Gang) error {
		mu.Lock()
		ranks = append(ranks, g.Rank())
		mu.Unlock()
		_, err := g.AllReduce(ctx, []float64{0})
		return err
	})
	require.NoError(t, err)

	sort.Ints(ranks)
	assert.Equal(t, []int{0, 1, 2, 3}, ranks)
}

func TestAllReduceLengthMismatch(t *testing.T) {
	err := RunLocal(context.Background(), 2, func(ctx context.Context, g Gang) error {
		_, err := g.AllReduce(ctx, make([]float64, 1+g.Rank()))
		return err
	})
	assert.ErrorContains(t, err, "length mismatch")
}

func TestAllReduceContextCancel(t *testing.T) {
	gangs := NewLocal(2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	// Only rank 0 contributes; the round can never complete.
	_, err := gangs[0].AllReduce(ctx, []float64{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllReduceCancelPoisonsRound(t *testing.T) {
	gangs := NewLocal(3)

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(g *LocalGang) {
			_, err := g.AllReduce(ctx, []float64{1})
			errs <- err
		}(gangs[i])
	}

	time.Sleep(10 * time.Millisecond)
	cancel()

	// Both waiting ranks are released with an error rather than hanging.
	for i := 0; i < 2; i++ {
		assert.Error(t, <-errs)
	}
}
