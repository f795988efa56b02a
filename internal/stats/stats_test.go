package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2, 10})

	if s.Count != 5 || s.Sum != 20 || s.Mean != 4 {
		t.Errorf("count/sum/mean = %d/%v/%v", s.Count, s.Sum, s.Mean)
	}
	if s.Min != 1 || s.Max != 10 || s.Median != 3 {
		t.Errorf("min/max/median = %v/%v/%v", s.Min, s.Max, s.Median)
	}
	// rank 3.6 between 4 and 10
	if math.Abs(s.P90-7.6) > 1e-9 {
		t.Errorf("p90 = %v", s.P90)
	}
	if math.Abs(s.StdDev-math.Sqrt(10)) > 1e-9 {
		t.Errorf("stddev = %v", s.StdDev)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v", s)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{3, 1, 2, 4}
	tests := []struct {
		q, want float64
	}{
		{0, 1},
		{0.5, 2.5},
		{1, 4},
		{-1, 1},
		{2, 4},
	}
	for _, tt := range tests {
		if got := Quantile(values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if values[0] != 3 {
		t.Error("Quantile sorted its input")
	}
}
