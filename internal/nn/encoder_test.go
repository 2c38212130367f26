package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ml/strand/internal/autodiff"
	"github.com/strand-ml/strand/internal/backend/cpu"
	"github.com/strand-ml/strand/internal/tensor"
)

func layerConfig(dim int, order NormOrder) EncoderLayerConfig {
	return EncoderLayerConfig{
		ModelDim:    dim,
		NumHeads:    2,
		FFNInnerDim: dim * 2,
		NormOrder:   order,
	}
}

func newStack(b *cpu.CPUBackend, numLayers int, order NormOrder, layerDrop float32, seed int64) *EncoderStack[*cpu.CPUBackend] {
	rng := seededRng(seed)
	layers := make([]*EncoderLayer[*cpu.CPUBackend], numLayers)
	for i := range layers {
		layers[i] = NewEncoderLayer(layerConfig(8, order), rng, b)
	}
	return NewEncoderStack(layers, EncoderStackConfig{
		LayerDropProb: layerDrop,
		NormOrder:     order,
		ModelDim:      8,
	}, nil, rng, b)
}

func TestEncoderStackPreservesShape(t *testing.T) {
	b := cpu.New()

	for _, order := range []NormOrder{POST, PRE} {
		stack := newStack(b, 3, order, 0, 1)
		stack.Eval()

		seqs := randSeqs(t, b, 2, 5, 8, 2)
		padding := NewPaddingMask(2, 5, []int{5, 3})

		out, outPadding := stack.Forward(seqs, padding)
		assert.Equal(t, tensor.Shape{2, 5, 8}, out.Shape(), "order %s", order)
		assert.Same(t, padding, outPadding, "order %s", order)
	}
}

func TestEncoderStackRequiresLayers(t *testing.T) {
	b := cpu.New()
	assert.Panics(t, func() {
		NewEncoderStack(nil, EncoderStackConfig{ModelDim: 8}, nil, nil, b)
	})
}

func TestEncoderStackFinalNormOnlyForNonPost(t *testing.T) {
	b := cpu.New()

	post := newStack(b, 1, POST, 0, 1)
	pre := newStack(b, 1, PRE, 0, 1)

	assert.Nil(t, post.finalNorm)
	assert.NotNil(t, pre.finalNorm)

	// The final norm's parameters are part of the stack's parameter list.
	assert.Len(t, pre.Parameters(), len(post.Parameters())+2)
}

func TestLayerDropAllDroppedIsIdentity(t *testing.T) {
	b := cpu.New()

	// POST order: no final norm, and no dropout configured anywhere, so with
	// every layer dropped the stack is exactly the identity.
	stack := newStack(b, 3, POST, 1.0, 3)
	stack.Train()

	seqs := randSeqs(t, b, 2, 4, 8, 4)
	original := append([]float32(nil), seqs.Data()...)

	out, _ := stack.Forward(seqs, nil)
	assert.Equal(t, original, out.Data())
}

func TestLayerDropAllDroppedZeroGradients(t *testing.T) {
	b := autodiff.New(cpu.New())
	rng := seededRng(5)

	layers := []*EncoderLayer[*autodiff.AutodiffBackend[*cpu.CPUBackend]]{
		NewEncoderLayer(layerConfig(8, POST), rng, b),
		NewEncoderLayer(layerConfig(8, POST), rng, b),
	}
	stack := NewEncoderStack(layers, EncoderStackConfig{
		LayerDropProb: 1.0,
		NormOrder:     POST,
		ModelDim:      8,
	}, nil, rng, b)
	stack.Train()

	b.Tape().StartRecording()

	seqs := tensor.RandFrom[float32](rng, tensor.Shape{1, 3, 8}, b)
	out, _ := stack.Forward(seqs, nil)

	grads := autodiff.Backward(out, b)

	// The stack was the identity, so the input receives the seed gradient
	// unchanged.
	inGrad := grads[seqs.Raw()]
	require.NotNil(t, inGrad)
	for _, v := range inGrad.AsFloat32() {
		assert.Equal(t, float32(1), v)
	}

	// Every dropped layer's parameters get exactly zero gradient.
	for _, p := range stack.Parameters() {
		grad, ok := grads[p.Tensor().Raw()]
		if !ok {
			continue
		}
		for _, v := range grad.AsFloat32() {
			require.Zero(t, v, "parameter %s received non-zero gradient", p.Name())
		}
	}
}

func TestHooksWithLayerDropPanics(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 2, POST, 0.5, 6)
	stack.Train()

	stack.RegisterLayerOutputHook(func(int, *tensor.Tensor[float32, *cpu.CPUBackend], *PaddingMask, int) bool {
		return true
	})

	seqs := randSeqs(t, b, 1, 3, 8, 7)
	assert.Panics(t, func() { stack.Forward(seqs, nil) })
}

func TestHooksAllowedWithLayerDropInEval(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 2, POST, 0.5, 6)
	stack.Eval()

	calls := 0
	stack.RegisterLayerOutputHook(func(int, *tensor.Tensor[float32, *cpu.CPUBackend], *PaddingMask, int) bool {
		calls++
		return true
	})

	seqs := randSeqs(t, b, 1, 3, 8, 7)
	stack.Forward(seqs, nil)
	assert.Equal(t, 2, calls)
}

func TestHookFalseStopsChainingForThatLayerOnly(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 5, POST, 0, 8)
	stack.Eval()

	var firstSeen, secondSeen []int
	stack.RegisterLayerOutputHook(func(idx int, _ *tensor.Tensor[float32, *cpu.CPUBackend], _ *PaddingMask, numLayers int) bool {
		require.Equal(t, 5, numLayers)
		firstSeen = append(firstSeen, idx)
		return idx != 2 // stop chaining on layer 2
	})
	stack.RegisterLayerOutputHook(func(idx int, _ *tensor.Tensor[float32, *cpu.CPUBackend], _ *PaddingMask, _ int) bool {
		secondSeen = append(secondSeen, idx)
		return true
	})

	seqs := randSeqs(t, b, 1, 3, 8, 9)
	stack.Forward(seqs, nil)

	// All five layers executed and invoked the first hook; the second hook
	// was skipped only for layer 2's output.
	assert.Equal(t, []int{0, 1, 2, 3, 4}, firstSeen)
	assert.Equal(t, []int{0, 1, 3, 4}, secondSeen)
}

func TestHookHandleRemove(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 2, POST, 0, 10)
	stack.Eval()

	calls := 0
	handle := stack.RegisterLayerOutputHook(func(int, *tensor.Tensor[float32, *cpu.CPUBackend], *PaddingMask, int) bool {
		calls++
		return true
	})

	seqs := randSeqs(t, b, 1, 3, 8, 11)
	stack.Forward(seqs, nil)
	assert.Equal(t, 2, calls)

	handle.Remove()
	stack.Forward(seqs, nil)
	assert.Equal(t, 2, calls)

	// Removing twice is a no-op.
	handle.Remove()
}

func TestHooksInvokedInRegistrationOrder(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 1, POST, 0, 12)
	stack.Eval()

	var order []string
	stack.RegisterLayerOutputHook(func(int, *tensor.Tensor[float32, *cpu.CPUBackend], *PaddingMask, int) bool {
		order = append(order, "first")
		return true
	})
	stack.RegisterLayerOutputHook(func(int, *tensor.Tensor[float32, *cpu.CPUBackend], *PaddingMask, int) bool {
		order = append(order, "second")
		return true
	})

	seqs := randSeqs(t, b, 1, 2, 8, 13)
	stack.Forward(seqs, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLayerDropInactiveInEval(t *testing.T) {
	b := cpu.New()
	stack := newStack(b, 2, POST, 1.0, 14)
	stack.Eval()

	seqs := randSeqs(t, b, 1, 3, 8, 15)
	original := append([]float32(nil), seqs.Data()...)

	out, _ := stack.Forward(seqs, nil)
	// In eval mode LayerDrop never fires, so the layers transform the input.
	assert.NotEqual(t, original, out.Data())
}

func TestEncoderStackSharedBiasFactory(t *testing.T) {
	b := cpu.New()

	rng := seededRng(16)
	layers := []*EncoderLayer[*cpu.CPUBackend]{
		NewEncoderLayer(layerConfig(8, POST), rng, b),
		NewEncoderLayer(layerConfig(8, POST), rng, b),
	}

	factoryCalls := 0
	factory := func(seqs *tensor.Tensor[float32, *cpu.CPUBackend], _ bool) *tensor.Tensor[float32, *cpu.CPUBackend] {
		factoryCalls++
		return CausalAttentionBias[*cpu.CPUBackend]()(seqs, false)
	}

	stack := NewEncoderStack(layers, EncoderStackConfig{NormOrder: POST, ModelDim: 8}, factory, rng, b)
	stack.Eval()

	seqs := randSeqs(t, b, 1, 4, 8, 17)
	stack.Forward(seqs, nil)

	// Derived once per call, shared by both layers.
	assert.Equal(t, 1, factoryCalls)
}
