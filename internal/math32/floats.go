// Package math32 provides float32 vector kernels used by training and search.
// This is an internal package - external users should use the distance package.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		distance += (a[i] - b[i]) * (a[i] - b[i])
	}

	return distance
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// AddInPlace adds b to a element-wise.
// Assumes vectors are the same length (caller's responsibility).
func AddInPlace(a, b []float32) {
	for i := range a {
		a[i] += b[i]
	}
}

// Sub writes a-b into dst element-wise.
// Assumes all slices are the same length (caller's responsibility).
func Sub(dst, a, b []float32) {
	for i := range a {
		dst[i] = a[i] - b[i]
	}
}
