package tensor

// MaskedFill writes value at every coordinate of t where mask is true. The
// mask must be broadcastable to t's shape. The tensor is mutated in place
// and returned for chaining; the operation is not differentiated.
func MaskedFill[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B], value float32) *Tensor[T, B] {
	return New[T, B](t.Backend().MaskedFill(t.Raw(), mask.Raw(), value), t.Backend())
}

// MaskedAssign writes the vector value over the last dimension of t at every
// row where mask is true. The mask's shape must equal t's shape without its
// last dimension; value must be 1D with that last dimension's length. The
// tensor is mutated in place and returned.
func MaskedAssign[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B], value *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.Backend().MaskedAssign(t.Raw(), mask.Raw(), value.Raw()), t.Backend())
}

// MaskedSelectRows gathers the rows of t selected by mask into a new
// [K, lastDim] tensor, in row-major order, where K is the number of true
// entries in the mask.
func MaskedSelectRows[T DType, B Backend](t *Tensor[T, B], mask *Tensor[bool, B]) *Tensor[T, B] {
	return New[T, B](t.Backend().MaskedSelectRows(t.Raw(), mask.Raw()), t.Backend())
}
