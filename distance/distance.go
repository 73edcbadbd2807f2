package distance

import (
	"fmt"
	"slices"

	"github.com/hupe1980/vecbuild/index"
	"github.com/hupe1980/vecbuild/internal/math32"
)

// Func is a function type for distance calculation.
// Assumes vectors are the same length (caller's responsibility).
type Func func(a, b []float32) float32

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	return math32.SquaredL2(a, b)
}

// NegativeDot returns the negated dot product so that larger similarity maps
// to smaller distance.
func NegativeDot(a, b []float32) float32 {
	return -math32.Dot(a, b)
}

// CosineDistance returns 1 - cosine similarity. Zero-norm inputs yield the
// maximum distance of 1.
func CosineDistance(a, b []float32) float32 {
	dot := math32.Dot(a, b)
	na := math32.Sqrt(math32.Dot(a, a))
	nb := math32.Sqrt(math32.Dot(b, b))
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(na*nb)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := math32.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	math32.ScaleInPlace(v, 1/math32.Sqrt(norm2))
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Provider returns the distance function for the given metric.
func Provider(mt index.MetricType) (Func, error) {
	switch mt {
	case index.MetricTypeL2:
		return SquaredL2, nil
	case index.MetricTypeCosine:
		return CosineDistance, nil
	case index.MetricTypeDot:
		return NegativeDot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", mt)
	}
}
