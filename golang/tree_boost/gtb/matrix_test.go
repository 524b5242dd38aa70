package gtb

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDenseMatrixBuilder(t *testing.T) {
	builder := NewDenseMatrixBuilder(2)
	builder.NextColumn(0, 1)
	builder.NextColumn(2, 3)
	builder.NextRow()
	builder.NextColumn(1, math.NaN())
	builder.NextColumn(0, 4)
	builder.NextRow()
	x := builder.Build()

	if x.Rows() != 2 || x.Cols() != 3 {
		t.Fatalf("unexpected shape %dx%d", x.Rows(), x.Cols())
	}
	expected := mat.NewDense(2, 3, []float64{1, 0, 3, 4, 0, 0})
	if !mat.Equal(x.(*DenseMatrix).Features, expected) {
		t.Fatalf("unexpected matrix\n%v", mat.Formatted(x.(*DenseMatrix).Features))
	}
}

func TestEmptyDenseMatrixBuilder(t *testing.T) {
	x := NewDenseMatrixBuilder(0).Build()
	if x.Rows() != 0 || x.Cols() != 0 {
		t.Fatalf("expected an empty matrix, got %dx%d", x.Rows(), x.Cols())
	}
}

func TestCSRMatrixBuilder(t *testing.T) {
	builder := NewCSRMatrixBuilder(4)
	for _, feature := range []string{"3:2.5", "1", "0:0"} {
		if err := builder.NextFeature(feature); err != nil {
			t.Fatal(err)
		}
	}
	builder.NextRow()
	builder.NextColumn(2, 7)
	builder.NextColumn(2, 8)
	builder.NextRow()
	x := builder.Build()

	if x.Rows() != 2 || x.Cols() != 4 {
		t.Fatalf("unexpected shape %dx%d", x.Rows(), x.Cols())
	}
	checks := []struct {
		i, j     int
		expected float64
	}{
		{0, 0, 0}, {0, 1, 1}, {0, 2, 0}, {0, 3, 2.5},
		{1, 0, 0}, {1, 2, 8}, {1, 3, 0},
	}
	for _, c := range checks {
		if got := x.At(c.i, c.j); got != c.expected {
			t.Fatalf("At(%d, %d) = %v, expected %v", c.i, c.j, got, c.expected)
		}
	}

	if err := builder.NextFeature("a:1"); !IsDataError(err) {
		t.Fatalf("expected a data error, got %v", err)
	}
	if err := builder.NextFeature("1:b"); !IsDataError(err) {
		t.Fatalf("expected a data error, got %v", err)
	}
}

func TestCSRGetRowResetsPreviousRow(t *testing.T) {
	x := &CSRMatrix{
		RowPointers:   []int{0, 2, 3},
		ColumnIndices: []int{0, 2, 1},
		Values:        []float64{5, 6, 7},
		NumCols:       3,
	}
	row := x.RowVector()
	x.GetRow(0, row)
	if row.Get(0) != 5 || row.Get(1) != 0 || row.Get(2) != 6 {
		t.Fatalf("unexpected first row %v", row.values)
	}
	x.GetRow(1, row)
	if row.Get(0) != 0 || row.Get(1) != 7 || row.Get(2) != 0 {
		t.Fatalf("unexpected second row %v", row.values)
	}
	if row.Get(10) != 0 || row.Size() != 3 {
		t.Fatalf("unexpected out of range access")
	}
}

func TestPermuted(t *testing.T) {
	dense := NewDenseMatrix(mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	}))
	sparse := &CSRMatrix{
		RowPointers:   []int{0, 1, 2, 4},
		ColumnIndices: []int{0, 1, 0, 1},
		Values:        []float64{1, 4, 5, 6},
		NumCols:       2,
	}
	perm := []int{2, 0, 1}
	for _, x := range []FeatureMatrix{dense, sparse} {
		permuted := x.Permuted(perm)
		for p := 0; p < 3; p++ {
			for q := 0; q < 2; q++ {
				if permuted.At(p, q) != x.At(perm[p], q) {
					t.Fatalf("%T: At(%d, %d) = %v, expected %v", x, p, q, permuted.At(p, q), x.At(perm[p], q))
				}
			}
		}
	}
}
