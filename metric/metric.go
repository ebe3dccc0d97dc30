// Package metric implements the cosine distance kernels used throughout the
// HNSW graph and the collection engine. All variants agree to within 1e-5
// absolute error for components in [-1,1]; a zero-norm vector is treated as
// orthogonal to everything (distance 1.0) rather than producing NaN.
package metric

import (
	"math"

	"golang.org/x/sys/cpu"
)

// useUnrolled gates the manually-unrolled kernel on AVX2-capable amd64
// hosts. It mirrors the feature-detection dispatch used by larger vector
// stores that carry hand-written assembly, but the unrolled kernel here is
// plain Go: no platform-specific machine code, same result either way.
var useUnrolled = cpu.X86.HasAVX2

// Func computes the cosine distance between two equal-length vectors.
type Func func(u, v []float32) float32

// NonOptimized computes cosine distance with a single scalar pass:
// dot, and both norms, accumulated together.
func NonOptimized(u, v []float32) float32 {
	var dot, normU, normV float32
	for i := range u {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}
	return cosineFromParts(dot, normU, normV)
}

// ForUnits computes cosine distance assuming both inputs are already
// unit-norm: 1 - u·v, skipping the norm computation entirely.
func ForUnits(u, v []float32) float32 {
	var dot float32
	for i := range u {
		dot += u[i] * v[i]
	}
	return 1 - dot
}

// SIMD is the vectorised form of NonOptimized. On AVX2-capable hosts it
// uses an 8-wide manually-unrolled accumulation loop; elsewhere it falls
// back to NonOptimized.
func SIMD(u, v []float32) float32 {
	if !useUnrolled {
		return NonOptimized(u, v)
	}
	return simdUnrolled(u, v)
}

// SIMDForUnits is the vectorised form of ForUnits.
func SIMDForUnits(u, v []float32) float32 {
	if !useUnrolled {
		return ForUnits(u, v)
	}
	return simdUnrolledForUnits(u, v)
}

func simdUnrolled(u, v []float32) float32 {
	n := len(u)
	lanes := n - n%8

	var dot0, dot1, dot2, dot3, dot4, dot5, dot6, dot7 float32
	var nu0, nu1, nu2, nu3, nu4, nu5, nu6, nu7 float32
	var nv0, nv1, nv2, nv3, nv4, nv5, nv6, nv7 float32

	for i := 0; i < lanes; i += 8 {
		dot0 += u[i] * v[i]
		dot1 += u[i+1] * v[i+1]
		dot2 += u[i+2] * v[i+2]
		dot3 += u[i+3] * v[i+3]
		dot4 += u[i+4] * v[i+4]
		dot5 += u[i+5] * v[i+5]
		dot6 += u[i+6] * v[i+6]
		dot7 += u[i+7] * v[i+7]

		nu0 += u[i] * u[i]
		nu1 += u[i+1] * u[i+1]
		nu2 += u[i+2] * u[i+2]
		nu3 += u[i+3] * u[i+3]
		nu4 += u[i+4] * u[i+4]
		nu5 += u[i+5] * u[i+5]
		nu6 += u[i+6] * u[i+6]
		nu7 += u[i+7] * u[i+7]

		nv0 += v[i] * v[i]
		nv1 += v[i+1] * v[i+1]
		nv2 += v[i+2] * v[i+2]
		nv3 += v[i+3] * v[i+3]
		nv4 += v[i+4] * v[i+4]
		nv5 += v[i+5] * v[i+5]
		nv6 += v[i+6] * v[i+6]
		nv7 += v[i+7] * v[i+7]
	}

	dot := dot0 + dot1 + dot2 + dot3 + dot4 + dot5 + dot6 + dot7
	normU := nu0 + nu1 + nu2 + nu3 + nu4 + nu5 + nu6 + nu7
	normV := nv0 + nv1 + nv2 + nv3 + nv4 + nv5 + nv6 + nv7

	for i := lanes; i < n; i++ {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}

	return cosineFromParts(dot, normU, normV)
}

func simdUnrolledForUnits(u, v []float32) float32 {
	n := len(u)
	lanes := n - n%8

	var dot0, dot1, dot2, dot3, dot4, dot5, dot6, dot7 float32

	for i := 0; i < lanes; i += 8 {
		dot0 += u[i] * v[i]
		dot1 += u[i+1] * v[i+1]
		dot2 += u[i+2] * v[i+2]
		dot3 += u[i+3] * v[i+3]
		dot4 += u[i+4] * v[i+4]
		dot5 += u[i+5] * v[i+5]
		dot6 += u[i+6] * v[i+6]
		dot7 += u[i+7] * v[i+7]
	}

	dot := dot0 + dot1 + dot2 + dot3 + dot4 + dot5 + dot6 + dot7

	for i := lanes; i < n; i++ {
		dot += u[i] * v[i]
	}

	return 1 - dot
}

func cosineFromParts(dot, normU, normV float32) float32 {
	if normU == 0 || normV == 0 {
		return 1.0
	}
	return 1 - dot/(sqrt(normU)*sqrt(normV))
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return sqrt(sum)
}

func sqrt(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
