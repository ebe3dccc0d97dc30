package metric

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroVectorIsOrthogonal(t *testing.T) {
	zero := []float32{0, 0, 0, 0}
	v := []float32{1, 0, 0, 0}

	assert.Equal(t, float32(1.0), NonOptimized(zero, v))
	assert.Equal(t, float32(1.0), SIMD(zero, v))
	assert.Equal(t, float32(1.0), NonOptimized(zero, zero))
}

func TestIdenticalVectorIsZeroDistance(t *testing.T) {
	v := []float32{1, 2, 3, 4}

	assert.InDelta(t, 0.0, NonOptimized(v, v), 1e-5)
	assert.InDelta(t, 0.0, SIMD(v, v), 1e-5)
}

func TestOrthogonalUnitVectors(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}

	assert.InDelta(t, 1.0, NonOptimized(a, b), 1e-5)
	assert.InDelta(t, 1.0, ForUnits(a, b), 1e-5)
}

func TestVariantsAgree(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		dim := 1 + r.Intn(300)
		u := randUnit(r, dim)
		v := randUnit(r, dim)

		want := NonOptimized(u, v)
		assert.InDelta(t, float64(want), float64(ForUnits(u, v)), 1e-4)
		assert.InDelta(t, float64(want), float64(SIMD(u, v)), 1e-5)
		assert.InDelta(t, float64(want), float64(SIMDForUnits(u, v)), 1e-4)
	}
}

func TestKnownTriangle(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	c := []float32{1, 1, 0, 0}

	got := NonOptimized(a, c)
	want := float32(1 - 1/math.Sqrt2)
	assert.InDelta(t, float64(want), float64(got), 1e-5)
}

func randUnit(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var norm float32
	for i := range v {
		v[i] = r.Float32()*2 - 1
		norm += v[i] * v[i]
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
