package cpu

import (
	"fmt"

	"github.com/strand-ml/strand/internal/parallel"
	"github.com/strand-ml/strand/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (c *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch: %v @ %v", aShape, bShape))
	}
	if a.DType() != tensor.Float32 {
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := newRawLike(tensor.Shape{m, n}, a)

	ad, bd, rd := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	parallel.For(m, func(i int) {
		matmulRow(rd[i*n:(i+1)*n], ad[i*k:(i+1)*k], bd, k, n)
	}, c.par)

	return result
}

// matmulRow computes one output row: dst = aRow @ b, using the cache-friendly
// ikj loop order.
func matmulRow(dst, aRow, b []float32, k, n int) {
	for p := 0; p < k; p++ {
		av := aRow[p]
		if av == 0 {
			continue
		}
		bRow := b[p*n : (p+1)*n]
		for j := range dst {
			dst[j] += av * bRow[j]
		}
	}
}

// BatchMatMul performs batched matrix multiplication over the trailing two
// dimensions of 3D or 4D tensors. Batch dimensions must match exactly.
func (c *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != len(bShape) || (len(aShape) != 3 && len(aShape) != 4) {
		panic(fmt.Sprintf("batchmatmul: expected matching 3D or 4D tensors, got %v and %v", aShape, bShape))
	}

	nd := len(aShape)
	batch := 1
	for d := 0; d < nd-2; d++ {
		if aShape[d] != bShape[d] {
			panic(fmt.Sprintf("batchmatmul: batch dimensions mismatch: %v vs %v", aShape, bShape))
		}
		batch *= aShape[d]
	}

	m, k, n := aShape[nd-2], aShape[nd-1], bShape[nd-1]
	if k != bShape[nd-2] {
		panic(fmt.Sprintf("batchmatmul: inner dimensions mismatch: %v @ %v", aShape, bShape))
	}
	if a.DType() != tensor.Float32 {
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s", a.DType()))
	}

	outShape := aShape.Clone()
	outShape[nd-1] = n
	result := newRawLike(outShape, a)

	ad, bd, rd := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	parallel.For(batch*m, func(idx int) {
		bi, i := idx/m, idx%m
		aMat := ad[bi*m*k : (bi+1)*m*k]
		bMat := bd[bi*k*n : (bi+1)*k*n]
		rMat := rd[bi*m*n : (bi+1)*m*n]
		matmulRow(rMat[i*n:(i+1)*n], aMat[i*k:(i+1)*k], bMat, k, n)
	}, c.par)

	return result
}
