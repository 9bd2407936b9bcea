package domain

import "math"

// Distance returns the distance between a and b under m. Vectors of
// different length are compared over their common prefix.
func (m Metric) Distance(a, b []float32) float64 {
	n := min(len(a), len(b))
	switch m {
	case MetricEuclidean:
		sum := 0.0
		for i := 0; i < n; i++ {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return sum
	default:
		var dot, na, nb float64
		for i := 0; i < n; i++ {
			x, y := float64(a[i]), float64(b[i])
			dot += x * y
			na += x * x
			nb += y * y
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	}
}

// Score converts a distance into a similarity where larger is better.
// Cosine: 1 - distance, the cosine similarity in [-1, 1].
// Euclidean: 1 / (1 + distance), in (0, 1].
func (m Metric) Score(distance float64) float64 {
	if m == MetricEuclidean {
		return 1 / (1 + distance)
	}
	return 1 - distance
}
