package nn

import (
	"fmt"
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// LayerHook observes a layer's output during EncoderStack.Forward. It
// receives the layer index, the layer's output sequence and padding mask,
// and the total layer count. Returning false stops further hooks for that
// layer's output; subsequent layers still run and still invoke all hooks.
type LayerHook[B tensor.Backend] func(layerIdx int, seqs *tensor.Tensor[float32, B], padding *PaddingMask, numLayers int) bool

// HookHandle identifies a registered hook and removes it on demand.
// Removing twice is a no-op.
type HookHandle struct {
	id     int
	remove func(id int)
}

// Remove unregisters the hook.
func (h HookHandle) Remove() {
	if h.remove != nil {
		h.remove(h.id)
	}
}

type hookEntry[B tensor.Backend] struct {
	id   int
	hook LayerHook[B]
}

// dropRecorder is the backend capability the stack needs for LayerDrop
// gradient bookkeeping. The autodiff backend provides it; plain compute
// backends do not, and then a drop simply keeps the running state.
type dropRecorder interface {
	RecordDropForBackward(kept, discarded *tensor.RawTensor) *tensor.RawTensor
}

// EncoderStackConfig configures an encoder stack.
type EncoderStackConfig struct {
	// LayerDropProb is the probability of dropping each layer independently
	// per forward call during training. Zero disables LayerDrop.
	LayerDropProb float32
	// FinalDropout is applied after the final normalization. Zero disables
	// it.
	FinalDropout float32
	// NormOrder must match the layers' order. A non-POST order gets a final
	// layer normalization after the last layer.
	NormOrder NormOrder
	// ModelDim sizes the final layer normalization.
	ModelDim int
	// Epsilon for the final norm. Zero defaults to 1e-5.
	Epsilon float32
}

// EncoderStack runs L >= 1 encoder layers in order.
//
// During training with LayerDropProb > 0, each layer's output may be
// discarded: the layer still runs on the current state, but the state is not
// updated, and a gradient bookkeeping bypass routes a zero gradient to the
// discarded output so taped graphs stay consistent across calls. Hooks and
// LayerDrop are mutually exclusive during training, since dropped layers
// break the per-layer output contract hooks rely on.
type EncoderStack[B tensor.Backend] struct {
	layers       []*EncoderLayer[B]
	biasFactory  AttentionBiasFactory[B]
	finalNorm    Normalizer[B] // nil for POST order
	finalDropout *Dropout[B]   // nil when cfg.FinalDropout == 0

	layerDropProb float32
	rng           *rand.Rand
	training      bool

	hooks      []hookEntry[B]
	nextHookID int

	backend B
}

// NewEncoderStack creates a stack over the given layers. rng drives
// LayerDrop sampling and final dropout; nil falls back to an unseeded
// generator. biasFactory may be nil for no shared attention bias.
func NewEncoderStack[B tensor.Backend](
	layers []*EncoderLayer[B],
	cfg EncoderStackConfig,
	biasFactory AttentionBiasFactory[B],
	rng *rand.Rand,
	backend B,
) *EncoderStack[B] {
	if len(layers) == 0 {
		panic("EncoderStack: at least one layer is required")
	}
	if cfg.LayerDropProb < 0 || cfg.LayerDropProb > 1 {
		panic(fmt.Sprintf("EncoderStack: layer drop probability must be in [0, 1], got %v", cfg.LayerDropProb))
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-5
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // model randomness, not security
	}

	var finalNorm Normalizer[B]
	if cfg.NormOrder != POST {
		finalNorm = NewLayerNorm(cfg.ModelDim, cfg.Epsilon, backend)
	}

	var finalDropout *Dropout[B]
	if cfg.FinalDropout > 0 {
		finalDropout = NewDropout(cfg.FinalDropout, rng, backend)
	}

	return &EncoderStack[B]{
		layers:        layers,
		biasFactory:   biasFactory,
		finalNorm:     finalNorm,
		finalDropout:  finalDropout,
		layerDropProb: cfg.LayerDropProb,
		rng:           rng,
		training:      true,
		backend:       backend,
	}
}

// Train puts the stack and its layers in training mode: dropout and
// LayerDrop become active.
func (s *EncoderStack[B]) Train() { s.setTraining(true) }

// Eval puts the stack and its layers in evaluation mode: dropout and
// LayerDrop become identity.
func (s *EncoderStack[B]) Eval() { s.setTraining(false) }

// Training reports whether the stack is in training mode.
func (s *EncoderStack[B]) Training() bool { return s.training }

func (s *EncoderStack[B]) setTraining(training bool) {
	s.training = training
	for _, layer := range s.layers {
		layer.SetTraining(training)
	}
	if s.finalDropout != nil {
		s.finalDropout.SetTraining(training)
	}
}

// NumLayers returns the layer count.
func (s *EncoderStack[B]) NumLayers() int { return len(s.layers) }

// RegisterLayerOutputHook registers a hook invoked after each non-dropped
// layer, in registration order. Hooks must not be registered or removed
// while a forward call is in progress.
func (s *EncoderStack[B]) RegisterLayerOutputHook(hook LayerHook[B]) HookHandle {
	id := s.nextHookID
	s.nextHookID++
	s.hooks = append(s.hooks, hookEntry[B]{id: id, hook: hook})
	return HookHandle{id: id, remove: s.removeHook}
}

func (s *EncoderStack[B]) removeHook(id int) {
	for i, entry := range s.hooks {
		if entry.id == id {
			s.hooks = append(s.hooks[:i], s.hooks[i+1:]...)
			return
		}
	}
}

// Forward runs the stack on seqs (batch, seq, modelDim) and returns the
// transformed sequence and the padding mask of the last accepted layer.
//
// Panics with a configuration error if hooks are registered while LayerDrop
// is active in training mode.
func (s *EncoderStack[B]) Forward(seqs *tensor.Tensor[float32, B], padding *PaddingMask) (*tensor.Tensor[float32, B], *PaddingMask) {
	layerDropActive := s.training && s.layerDropProb > 0
	if layerDropActive && len(s.hooks) > 0 {
		panic("EncoderStack: layer hooks cannot be combined with LayerDrop during training")
	}

	// The bias is derived once and shared by every layer in this call.
	var attnBias *tensor.Tensor[float32, B]
	if s.biasFactory != nil {
		attnBias = s.biasFactory(seqs, s.training)
	}

	// Draws for all layers are produced together so a seeded generator
	// reproduces the same drop pattern; they are applied per layer.
	var draws []float64
	if layerDropActive {
		draws = make([]float64, len(s.layers))
		for i := range draws {
			draws[i] = s.rng.Float64()
		}
	}

	for i, layer := range s.layers {
		// The layer always runs on the latest accepted state, even when
		// its output is about to be discarded: the discarded output must
		// exist for the gradient bypass below.
		layerSeqs, layerPadding := layer.Forward(seqs, padding, attnBias)

		if draws != nil && float32(draws[i]) <= s.layerDropProb {
			seqs = s.recordDrop(seqs, layerSeqs)
			continue
		}

		seqs, padding = layerSeqs, layerPadding

		for _, entry := range s.hooks {
			if !entry.hook(i, seqs, padding, len(s.layers)) {
				break
			}
		}
	}

	if s.finalNorm != nil {
		seqs = s.finalNorm.Forward(seqs)
	}
	if s.finalDropout != nil {
		seqs = s.finalDropout.Forward(seqs)
	}
	return seqs, padding
}

// recordDrop keeps the running state and, when the backend can tape it,
// records a forward-identity bypass so the discarded output's producers
// receive an explicit zero gradient.
func (s *EncoderStack[B]) recordDrop(kept, discarded *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	recorder, ok := any(s.backend).(dropRecorder)
	if !ok {
		return kept
	}
	return tensor.New[float32](recorder.RecordDropForBackward(kept.Raw(), discarded.Raw()), s.backend)
}

// Parameters returns the parameters of every layer plus the final norm.
func (s *EncoderStack[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, layer := range s.layers {
		params = append(params, layer.Parameters()...)
	}
	if s.finalNorm != nil {
		params = append(params, s.finalNorm.Parameters()...)
	}
	return params
}
