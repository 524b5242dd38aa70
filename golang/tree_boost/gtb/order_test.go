package gtb

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestOrderIndex(t *testing.T) {
	x := NewDenseMatrix(mat.NewDense(4, 2, []float64{
		3, 1,
		1, 0,
		2, 1,
		0, 0,
	}))
	index := NewOrderIndex(x)
	if index.Rows() != 4 || index.Cols() != 2 {
		t.Fatalf("unexpected shape %dx%d", index.Rows(), index.Cols())
	}
	if got := index.Column(0); !reflect.DeepEqual(got, []int{3, 1, 2, 0}) {
		t.Fatalf("unexpected order of column 0: %v", got)
	}
	// ties keep the row order
	if got := index.Column(1); !reflect.DeepEqual(got, []int{1, 3, 0, 2}) {
		t.Fatalf("unexpected order of column 1: %v", got)
	}
}
