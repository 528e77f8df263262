package features

import (
	"math"
	"testing"
)

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{100, 110, math.NaN(), 121})
	if !math.IsNaN(got[0]) || !math.IsNaN(got[2]) || !math.IsNaN(got[3]) {
		t.Fatalf("expected NaN at 0, 2, 3: %v", got)
	}
	if math.Abs(got[1]-0.1) > 1e-12 {
		t.Fatalf("unexpected return %v", got[1])
	}
}

func TestPctChangeZeroAndNegativeBase(t *testing.T) {
	got := PctChange([]float64{0, 5, -10, -5})
	if !math.IsNaN(got[1]) {
		t.Fatalf("expected NaN after a zero base, got %v", got[1])
	}
	if math.Abs(got[2]-(-3)) > 1e-12 || math.Abs(got[3]-(-0.5)) > 1e-12 {
		t.Fatalf("negative bases must still produce returns: %v", got)
	}
}

func TestRollingMeanMatchesDirect(t *testing.T) {
	vals := make([]float64, 300)
	for i := range vals {
		vals[i] = 50 + 10*math.Sin(float64(i)/7) + float64(i%13)*0.37
	}
	w := 20
	got := RollingMean(vals, w)
	for i := range vals {
		if i+1 < w {
			if !math.IsNaN(got[i]) {
				t.Fatalf("expected NaN at %d", i)
			}
			continue
		}
		sum := 0.0
		for j := i + 1 - w; j <= i; j++ {
			sum += vals[j]
		}
		if math.Abs(got[i]-sum/float64(w)) > 1e-9 {
			t.Fatalf("mean mismatch at %d: %v vs %v", i, got[i], sum/float64(w))
		}
	}
}

func TestRollingMeanNaNWindow(t *testing.T) {
	vals := []float64{1, 2, math.NaN(), 4, 5, 6}
	got := RollingMean(vals, 2)
	if !math.IsNaN(got[2]) || !math.IsNaN(got[3]) {
		t.Fatalf("windows touching NaN must be NaN: %v", got)
	}
	if got[5] != 5.5 {
		t.Fatalf("unexpected mean %v", got[5])
	}
}

func TestRollingBetaOfScaledSeries(t *testing.T) {
	x := []float64{0.01, -0.02, 0.015, 0.03, -0.01, 0.005}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2 * x[i]
	}
	beta := RollingBeta(y, x, 4)
	if math.Abs(beta[5]-2) > 1e-9 {
		t.Fatalf("expected beta 2, got %v", beta[5])
	}
	corr := RollingCorrelation(x, y, 4)
	if math.Abs(corr[5]-1) > 1e-9 {
		t.Fatalf("expected correlation 1, got %v", corr[5])
	}
}

func TestMeanStd(t *testing.T) {
	m, s, ok := MeanStd([]float64{math.NaN(), 2, 4, 4, 4, 5, 5, 7, 9})
	if !ok || m != 5 {
		t.Fatalf("unexpected mean %v ok=%v", m, ok)
	}
	if math.Abs(s-2.138089935299395) > 1e-9 {
		t.Fatalf("unexpected std %v", s)
	}
	if _, _, ok := MeanStd([]float64{1}); ok {
		t.Fatalf("expected not ok for one value")
	}
}
