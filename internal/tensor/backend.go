package tensor

// Backend defines the compute interface tensors delegate to. A backend owns
// the kernels; the tensor types own shape/type bookkeeping.
//
// Implementations:
//   - cpu: pure Go reference backend
//   - autodiff: decorator that records operations on a gradient tape
type Backend interface {
	// Element-wise binary operations (with broadcasting).
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul performs batched matrix multiplication.
	// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
	// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Unsqueeze(x *RawTensor, dim int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor

	// Softmax along a dimension (only the last dimension is supported).
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reductions.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Boolean-mask indexing. MaskedFill and MaskedAssign mutate x in place
	// and return it; the mask is never differentiated through.
	//
	// MaskedFill writes a scalar at every coordinate where mask (broadcastable
	// to x's shape) is true.
	MaskedFill(x, mask *RawTensor, value float32) *RawTensor

	// MaskedAssign writes the 1D vector value over the last dimension of x at
	// every row selected by mask, whose shape must equal x's shape without its
	// last dimension.
	MaskedAssign(x, mask, value *RawTensor) *RawTensor

	// MaskedSelectRows gathers the rows of x selected by mask (same layout as
	// MaskedAssign) into a new [K, lastDim] tensor, in row-major order.
	MaskedSelectRows(x, mask *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
