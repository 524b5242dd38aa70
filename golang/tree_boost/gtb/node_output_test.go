package gtb

import (
	"math"
	"testing"
)

func TestTwoClassLeafValue(t *testing.T) {
	residuals := []float64{0.5, -0.25, 1.5}
	nu := 0.5 - 0.25 + 1.5
	de := 0.5*1.5 + 0.25*1.75 + 1.5*0.5
	got := TwoClassOutput().ComputeLeafValue(residuals)
	if math.Abs(got-nu/de) > 1e-12 {
		t.Fatalf("expected %v, got %v", nu/de, got)
	}
}

func TestTwoClassLeafValueSaturated(t *testing.T) {
	if got := TwoClassOutput().ComputeLeafValue([]float64{0, 0}); got != 0 {
		t.Fatalf("expected 0 for vanished residuals, got %v", got)
	}
}

func TestKClassLeafValue(t *testing.T) {
	residuals := []float64{0.6, -0.3, 0.2}
	nu := 0.6 - 0.3 + 0.2
	de := 0.6*0.4 + 0.3*0.7 + 0.2*0.8
	expected := (2.0 / 3.0) * nu / de
	got := KClassOutput(3).ComputeLeafValue(residuals)
	if math.Abs(got-expected) > 1e-12 {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	if KClassOutput(3).NumClasses() != 3 {
		t.Fatalf("unexpected number of classes %d", KClassOutput(3).NumClasses())
	}
}

func TestKClassLeafValueFallsBackToMean(t *testing.T) {
	// |y| in {0, 1} zeroes the denominator
	residuals := []float64{1, 1, 0, -1}
	got := KClassOutput(4).ComputeLeafValue(residuals)
	if math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("expected the mean 0.25, got %v", got)
	}
	if got := KClassOutput(4).ComputeLeafValue(nil); got != 0 {
		t.Fatalf("expected 0 for an empty leaf, got %v", got)
	}
}

func TestLeafValueUsesRoutedRowsOnly(t *testing.T) {
	response := []float64{0.5, 100, 0.5}
	got := TwoClassOutput().LeafValue(response, []int{0, 2})
	expected := 1.0 / 1.5
	if math.Abs(got-expected) > 1e-12 {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
