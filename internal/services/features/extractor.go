package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PctChange computes simple returns r_t = x_t / x_{t-1} - 1.
// The result has the same length as values; position 0 and any position
// touching a missing value or a zero previous value is NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cur/prev - 1
	}
	return out
}

// RollingMean is the trailing mean over w observations, maintained
// incrementally. A window containing a NaN, or fewer than w points, is NaN.
func RollingMean(values []float64, w int) []float64 {
	out := make([]float64, len(values))
	if w <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	var missing int
	for i, v := range values {
		if math.IsNaN(v) {
			missing++
		} else {
			sum += v
		}
		if i >= w {
			old := values[i-w]
			if math.IsNaN(old) {
				missing--
			} else {
				sum -= old
			}
		}
		if i+1 < w || missing > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(w)
	}
	return out
}

// RollingStd is the trailing sample standard deviation over w observations.
func RollingStd(values []float64, w int) []float64 {
	return rolling(values, nil, w, func(x, _ []float64) float64 {
		return stat.StdDev(x, nil)
	})
}

// RollingCorrelation is the trailing Pearson correlation of x and y.
func RollingCorrelation(x, y []float64, w int) []float64 {
	return rolling(x, y, w, func(a, b []float64) float64 {
		return stat.Correlation(a, b, nil)
	})
}

// RollingBeta is the trailing cov(y, x) / var(x), the sensitivity of y to x.
func RollingBeta(y, x []float64, w int) []float64 {
	return rolling(x, y, w, func(a, b []float64) float64 {
		v := stat.Variance(a, nil)
		if v == 0 {
			return math.NaN()
		}
		return stat.Covariance(a, b, nil) / v
	})
}

func rolling(x, y []float64, w int, fn func(a, b []float64) float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.NaN()
		if w < 2 || i+1 < w {
			continue
		}
		a := x[i+1-w : i+1]
		var b []float64
		if y != nil {
			b = y[i+1-w : i+1]
		}
		if hasNaN(a) || hasNaN(b) {
			continue
		}
		out[i] = fn(a, b)
	}
	return out
}

func hasNaN(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Valid returns the non-NaN values of s.
func Valid(s []float64) []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the last non-NaN value of s.
func Last(s []float64) (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}

// MeanStd returns the mean and sample standard deviation of the non-NaN
// values. ok is false when fewer than two values remain.
func MeanStd(s []float64) (mean, std float64, ok bool) {
	v := Valid(s)
	if len(v) < 2 {
		return 0, 0, false
	}
	mean, std = stat.MeanStdDev(v, nil)
	return mean, std, true
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
