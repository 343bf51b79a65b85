package enrich

import "math"

const minZSamples = 3

// welford accumulates mean and variance in one pass.
type welford struct {
	count int
	mean  float64
	m2    float64
}

func (w *welford) update(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

func (w *welford) sigma() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count-1))
}

// zScore returns the standard score of x against the sample, or 0 when
// the sample is too small or degenerate to support one.
func zScore(sample []float64, x float64) float64 {
	if len(sample) < minZSamples {
		return 0
	}
	var w welford
	for _, v := range sample {
		w.update(v)
	}
	sigma := w.sigma()
	if sigma == 0 {
		return 0
	}
	return (x - w.mean) / sigma
}
