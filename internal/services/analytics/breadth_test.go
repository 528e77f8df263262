package analytics

import (
	"math"
	"testing"
	"time"
)

func TestBreadthEqualToAverageIsNotAbove(t *testing.T) {
	n := 250
	tbl := tableOf(consecutive(n), []string{"FLAT"}, map[string][]float64{"FLAT": constant(n, 100)})
	out := ComputeBreadth(tbl, time.Time{}, nil)
	if len(out.Points) != n {
		t.Fatalf("expected %d points, got %d", n, len(out.Points))
	}
	last := out.Points[n-1]
	for k, w := range out.Windows {
		if last.Pct[k] == nil || *last.Pct[k] != 0 {
			t.Fatalf("window %d: expected 0%%, got %v", w, last.Pct[k])
		}
	}
}

func TestBreadthRisingIsAbove(t *testing.T) {
	n := 250
	tbl := tableOf(consecutive(n), []string{"UP"}, map[string][]float64{"UP": ramp(n, 10, 0.1)})
	out := ComputeBreadth(tbl, time.Time{}, nil)
	last := out.Points[n-1]
	for k := range out.Windows {
		if last.Pct[k] == nil || *last.Pct[k] != 100 {
			t.Fatalf("expected 100%%, got %v", last.Pct[k])
		}
	}
	if out.Points[18].Pct[0] != nil {
		t.Fatalf("20D average undefined before 20 observations")
	}
	if out.Points[19].Pct[0] == nil {
		t.Fatalf("20D average defined at 20 observations")
	}
}

func TestBreadthShortHistoryIsExcluded(t *testing.T) {
	n := 60
	short := constant(n, math.NaN())
	for i := n - 10; i < n; i++ {
		short[i] = 1 // flat, would count as not above
	}
	tbl := tableOf(consecutive(n), []string{"LONG", "SHORT"}, map[string][]float64{
		"LONG":  ramp(n, 10, 1),
		"SHORT": short,
	})
	out := ComputeBreadth(tbl, time.Time{}, []int{20})
	last := out.Points[n-1]
	if last.Counted[0] != 1 {
		t.Fatalf("expected only LONG counted, got %d", last.Counted[0])
	}
	if *last.Pct[0] != 100 {
		t.Fatalf("expected 100%%, got %v", *last.Pct[0])
	}
}

func TestBreadthHonoursStart(t *testing.T) {
	n := 300
	tbl := tableOf(consecutive(n), []string{"UP"}, map[string][]float64{"UP": ramp(n, 10, 1)})
	out := ComputeBreadth(tbl, dayN(150), nil)
	if len(out.Points) != 150 {
		t.Fatalf("expected 150 points, got %d", len(out.Points))
	}
	for _, p := range out.Points {
		if p.Pct[2] != nil {
			t.Fatalf("200D average needs 200 rows after start")
		}
	}
}

func TestBreadthMatchesDirectComputation(t *testing.T) {
	n := 260
	cols := map[string][]float64{}
	order := []string{"A", "B", "C", "D"}
	for j, s := range order {
		v := make([]float64, n)
		for i := range v {
			v[i] = 100 + 15*math.Sin(float64(i+7*j)/(9+float64(j))) + 0.01*float64(i*j)
		}
		cols[s] = v
	}
	tbl := tableOf(consecutive(n), order, cols)
	out := ComputeBreadth(tbl, time.Time{}, nil)
	for i := 0; i < n; i++ {
		for k, w := range out.Windows {
			if i+1 < w {
				continue
			}
			above := 0
			for _, s := range order {
				sum := 0.0
				for x := i + 1 - w; x <= i; x++ {
					sum += cols[s][x]
				}
				if cols[s][i] > sum/float64(w) {
					above++
				}
			}
			want := float64(above) / float64(len(order)) * 100
			if got := out.Points[i].Pct[k]; got == nil || *got != want {
				t.Fatalf("row %d window %d: got %v want %v", i, w, got, want)
			}
		}
	}
}
