// Copyright 2025 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in Strand.
//
// The package defines core interfaces and types for type-safe tensor
// operations:
//   - Tensor[T, B]: High-level generic tensor with type safety
//   - RawTensor: Low-level tensor for advanced use cases
//   - Backend: Interface for device-specific compute implementations
//   - Shape, DataType, Device: Core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Element-wise addition
package tensor

import (
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor data types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend is the interface compute backends implement.
type Backend = tensor.Backend

// RawTensor is the low-level, type-erased tensor representation.
type RawTensor = tensor.RawTensor

// Tensor is a generic type-safe tensor.
//
// T is the data type (float32, float64, int32, int64, uint8, bool).
// B is the backend implementation.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Creation functions

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Rand creates a tensor filled with random values from the uniform
// distribution U(0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Rand[T, B](shape, b)
}

// RandFrom is Rand drawing from the given generator, for reproducible
// sampling.
func RandFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return tensor.RandFrom[T, B](rng, shape, b)
}

// Randn creates a tensor filled with random values from the standard
// normal distribution N(0, 1).
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, b)
}

// RandnFrom is Randn drawing from the given generator.
func RandnFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return tensor.RandnFrom[T, B](rng, shape, b)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	backend := cpu.New()
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// New creates a tensor from a raw tensor.
//
// This is a low-level function. Most users should use creation functions
// like Zeros, Ones, or FromSlice instead.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a new raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Masked operations

// MaskedFill writes value into t wherever mask is true. The mask
// broadcasts against t's shape. The fill mutates t in place and is never
// differentiated.
func MaskedFill[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B], value float32) *Tensor[T, B] {
	return tensor.MaskedFill(t, mask, value)
}

// MaskedAssign writes the value vector into every row of t selected by
// mask, which covers t's shape minus the trailing dimension.
func MaskedAssign[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B], value *Tensor[T, B]) *Tensor[T, B] {
	return tensor.MaskedAssign(t, mask, value)
}

// MaskedSelectRows gathers the rows of t selected by mask into a new
// (count, rowLen) tensor.
func MaskedSelectRows[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B]) *Tensor[T, B] {
	return tensor.MaskedSelectRows(t, mask)
}

// Utility functions

// BroadcastShapes computes the broadcast shape for two shapes following
// NumPy broadcasting rules. Returns the resulting shape and a flag
// indicating whether the first operand needs broadcasting.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
