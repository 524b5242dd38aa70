package gtb

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestParseAttributes(t *testing.T) {
	for _, description := range []string{"Q,C,Q", "[Q,C,Q]", " q , c ,Q "} {
		attributes, err := ParseAttributes(description)
		if err != nil {
			t.Fatalf("%q: %v", description, err)
		}
		if !reflect.DeepEqual(attributes, []Attribute{Quantitative, Categorical, Quantitative}) {
			t.Fatalf("%q: unexpected attributes %v", description, attributes)
		}
	}
	if attributes, err := ParseAttributes("[]"); err != nil || attributes != nil {
		t.Fatalf("expected no attributes, got %v, %v", attributes, err)
	}
	if _, err := ParseAttributes("Q,X"); !IsConfigError(err) {
		t.Fatalf("expected a config error, got %v", err)
	}
}

func TestResolveAttributes(t *testing.T) {
	x := NewDenseMatrix(mat.NewDense(2, 3, nil))
	attributes, err := ResolveAttributes(nil, x)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(attributes, []Attribute{Quantitative, Quantitative, Quantitative}) {
		t.Fatalf("unexpected attributes %v", attributes)
	}
	if _, err := ResolveAttributes([]Attribute{Categorical}, x); !IsConfigError(err) {
		t.Fatalf("expected a config error, got %v", err)
	}
}

func TestResolveNumVars(t *testing.T) {
	cases := []struct {
		numVars  float64
		cols     int
		expected int
	}{
		{0, 16, 4},
		{-1, 10, 4},
		{0.5, 10, 5},
		{1, 10, 10},
		{3, 10, 3},
		{30, 10, 10},
		{0.01, 10, 1},
		{0, 1, 1},
	}
	for _, c := range cases {
		if got := ResolveNumVars(c.numVars, c.cols); got != c.expected {
			t.Fatalf("ResolveNumVars(%v, %d) = %d, expected %d", c.numVars, c.cols, got, c.expected)
		}
	}
}
