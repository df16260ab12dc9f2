// Package vector provides quantisation and similarity primitives for
// embedding vectors.
//
// Embeddings are persisted as 8-bit signed integers: components are
// clamped to [-1, 1], scaled by 127 and rounded. Dequantisation divides
// by 127. The transform is lossy but bounded: each component is
// recovered within 1/127 absolute error.
package vector

import "math"

// quantScale maps [-1, 1] onto the int8 range [-127, 127].
const quantScale = 127

// Quantize converts a float vector into its persisted int8 form.
// Components outside [-1, 1] are clamped.
func Quantize(vec []float32) []int8 {
	if len(vec) == 0 {
		return nil
	}
	q := make([]int8, len(vec))
	for i, v := range vec {
		f := float64(v)
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		q[i] = int8(math.Round(f * quantScale))
	}
	return q
}

// Dequantize reconstructs a float vector from its quantised form.
// The result has the same length as the input.
func Dequantize(q []int8) []float32 {
	if len(q) == 0 {
		return nil
	}
	vec := make([]float32, len(q))
	for i, v := range q {
		vec[i] = float32(v) / quantScale
	}
	return vec
}

// CosineSimilarity computes the normalised dot product of two vectors.
// It returns 0 rather than an error when the vectors differ in length
// or either has zero magnitude, so a degenerate stored vector ranks
// last instead of failing the whole search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// Int8SliceToBytes converts a quantised vector to a byte slice for
// BLOB storage. The length is derived from the BLOB size on decode.
func Int8SliceToBytes(q []int8) []byte {
	if len(q) == 0 {
		return nil
	}
	buf := make([]byte, len(q))
	for i, v := range q {
		buf[i] = byte(v)
	}
	return buf
}

// BytesToInt8Slice converts a stored BLOB back to a quantised vector.
func BytesToInt8Slice(data []byte) []int8 {
	if len(data) == 0 {
		return nil
	}
	q := make([]int8, len(data))
	for i, b := range data {
		q[i] = int8(b)
	}
	return q
}
