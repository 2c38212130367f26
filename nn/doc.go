// Copyright 2025 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides Transformer encoder building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, LayerNorm, Dropout, FeedForward, MultiheadAttention
//   - Encoder: EncoderLayer, EncoderStack with LayerDrop and output hooks
//   - Masking: Masker, ComputeRowMask, ExtractMaskedElements
//   - Utilities: Module interface, Parameter, PaddingMask, Xavier init
//
// # Basic Usage
//
//	import (
//	    "github.com/strand-ml/strand/backend/cpu"
//	    "github.com/strand-ml/strand/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(1))
//
//	    layers := []*nn.EncoderLayer[*cpu.Backend]{
//	        nn.NewEncoderLayer(nn.EncoderLayerConfig{
//	            ModelDim:    64,
//	            NumHeads:    4,
//	            FFNInnerDim: 256,
//	            NormOrder:   nn.PRE,
//	        }, rng, backend),
//	    }
//	    stack := nn.NewEncoderStack(layers, nn.EncoderStackConfig{
//	        NormOrder: nn.PRE,
//	        ModelDim:  64,
//	    }, nil, rng, backend)
//
//	    out, _ := stack.Forward(seqs, padding)
//	}
//
// # Span Masking
//
// Masker applies wav2vec2-style span masking before the encoder runs:
// temporal spans are overwritten with a learned embedding, optional
// spatial (feature) spans are zeroed.
//
//	masker := nn.NewMasker(nn.MaskerConfig{
//	    ModelDim:            64,
//	    TemporalSpanLen:     10,
//	    MaxTemporalMaskProb: 0.65,
//	}, rng, backend)
//
//	masked, mask := masker.Forward(seqs, padding)
//	targets := nn.ExtractMaskedElements(masked, mask)
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	for _, param := range stack.Parameters() {
//	    fmt.Println(param.Name(), param.Tensor().Shape())
//	}
package nn
