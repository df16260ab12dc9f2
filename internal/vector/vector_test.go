package vector

import (
	"math"
	"testing"
)

func TestQuantizeRoundTrip(t *testing.T) {
	vecs := [][]float32{
		{0, 1, -1, 0.5, -0.5},
		{0.123, -0.987, 0.004, 0.999},
		{1, 1, 1},
		{-1, -1, -1},
	}

	for _, vec := range vecs {
		got := Dequantize(Quantize(vec))
		if len(got) != len(vec) {
			t.Fatalf("expected length %d, got %d", len(vec), len(got))
		}
		for i := range vec {
			diff := math.Abs(float64(got[i]) - float64(vec[i]))
			if diff > 1.0/127 {
				t.Errorf("component %d: |%f - %f| = %f exceeds 1/127", i, got[i], vec[i], diff)
			}
		}
	}
}

func TestQuantizeClamps(t *testing.T) {
	q := Quantize([]float32{2.5, -3.0})
	if q[0] != 127 {
		t.Errorf("expected 127 for out-of-range positive, got %d", q[0])
	}
	if q[1] != -127 {
		t.Errorf("expected -127 for out-of-range negative, got %d", q[1])
	}
}

func TestQuantizeEmpty(t *testing.T) {
	if Quantize(nil) != nil {
		t.Error("expected nil for empty input")
	}
	if Dequantize(nil) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.2, 0.4, 0.8}
		got := CosineSimilarity(v, v)
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("expected ~1, got %f", got)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		got := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
		if math.Abs(got) > 1e-9 {
			t.Errorf("expected ~0, got %f", got)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
		if math.Abs(got+1) > 1e-9 {
			t.Errorf("expected ~-1, got %f", got)
		}
	})

	t.Run("bounds", func(t *testing.T) {
		a := []float32{0.3, -0.7, 0.2, 0.9}
		b := []float32{-0.1, 0.5, 0.8, -0.4}
		got := CosineSimilarity(a, b)
		if got < -1 || got > 1 {
			t.Errorf("similarity %f outside [-1, 1]", got)
		}
	})

	t.Run("zero magnitude returns zero", func(t *testing.T) {
		if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})

	t.Run("length mismatch returns zero", func(t *testing.T) {
		if got := CosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})
}

func TestInt8BytesRoundTrip(t *testing.T) {
	q := []int8{-127, -1, 0, 1, 127}
	got := BytesToInt8Slice(Int8SliceToBytes(q))
	if len(got) != len(q) {
		t.Fatalf("expected length %d, got %d", len(q), len(got))
	}
	for i := range q {
		if got[i] != q[i] {
			t.Errorf("component %d: expected %d, got %d", i, q[i], got[i])
		}
	}
}
