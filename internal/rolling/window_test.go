package rolling

import (
	"math"
	"testing"
)

func TestWindowMeanMatchesArithmeticMean(t *testing.T) {
	t.Parallel()

	w := New(5)
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	for _, v := range values {
		w.Add(v)
	}

	// Window holds the last 5: 3,4,5,6,7
	want := (3.0 + 4 + 5 + 6 + 7) / 5
	if got := w.Mean(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean() = %v, want %v", got, want)
	}
}

func TestWindowVarianceRequiresTwoSamples(t *testing.T) {
	t.Parallel()

	w := New(3)
	if got := w.Variance(); got != 0 {
		t.Errorf("empty window variance = %v, want 0", got)
	}

	w.Add(5)
	if got := w.Variance(); got != 0 {
		t.Errorf("single-sample variance = %v, want 0", got)
	}

	w.Add(10)
	// sample variance of {5,10}: mean=7.5, sumSq dev = (2.5^2)*2=12.5, /(n-1)=12.5
	if got := w.Variance(); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("Variance() = %v, want 12.5", got)
	}
}

func TestWindowEvictsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	w := New(3)
	w.Add(1)
	w.Add(2)
	w.Add(3)
	w.Add(4) // evicts 1

	if got := w.Oldest(); got != 2 {
		t.Errorf("Oldest() = %v, want 2", got)
	}
	if got := w.Last(); got != 4 {
		t.Errorf("Last() = %v, want 4", got)
	}
	if got, want := w.Min(), 2.0; got != want {
		t.Errorf("Min() = %v, want %v", got, want)
	}
	if got, want := w.Max(), 4.0; got != want {
		t.Errorf("Max() = %v, want %v", got, want)
	}
}

func TestWindowPercentile(t *testing.T) {
	t.Parallel()

	w := New(5)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		w.Add(v)
	}

	if got := w.Percentile(0); got != 10 {
		t.Errorf("Percentile(0) = %v, want 10", got)
	}
	if got := w.Percentile(1); got != 50 {
		t.Errorf("Percentile(1) = %v, want 50", got)
	}
	if got := w.Median(); got != 30 {
		t.Errorf("Median() = %v, want 30", got)
	}
}

func TestWindowClearResetsAllState(t *testing.T) {
	t.Parallel()

	w := New(4)
	w.Add(1)
	w.Add(2)
	w.Clear()

	if w.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", w.Count())
	}
	if w.Mean() != 0 {
		t.Errorf("Mean() after Clear = %v, want 0", w.Mean())
	}
	if w.Sum() != 0 {
		t.Errorf("Sum() after Clear = %v, want 0", w.Sum())
	}
}

func TestWindowIsFull(t *testing.T) {
	t.Parallel()

	w := New(2)
	if w.IsFull() {
		t.Error("new window should not be full")
	}
	w.Add(1)
	w.Add(2)
	if !w.IsFull() {
		t.Error("window at capacity should be full")
	}
}
