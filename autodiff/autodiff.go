// Copyright 2025 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package wraps any compute backend with a gradient tape that
// records operations during the forward pass and replays them backward
// to accumulate gradients.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//
//	x := tensor.Rand[float32](tensor.Shape{2, 3}, backend)
//	y := x.Mul(x)
//
//	grads := autodiff.Backward(y, backend)
package autodiff

import (
	"github.com/strand-ml/strand/internal/autodiff"
	"github.com/strand-ml/strand/internal/tensor"
)

// Backend is the autodiff-enabled backend wrapping an inner backend B.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface of backends that support
// backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward runs backpropagation from t and returns gradients keyed by
// raw tensor identity.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
