package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

// Shared helpers for the package tests.

func seededRng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test sampling
}

func randSeqs(t *testing.T, b *cpu.CPUBackend, batch, seq, dim int, seed int64) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	return tensor.RandFrom[float32](seededRng(seed), tensor.Shape{batch, seq, dim}, b)
}

func requireSameData(t *testing.T, want, got *tensor.RawTensor) {
	t.Helper()
	require.True(t, want.Shape().Equal(got.Shape()), "shape mismatch: %v vs %v", want.Shape(), got.Shape())
	require.Equal(t, want.AsFloat32(), got.AsFloat32())
}
