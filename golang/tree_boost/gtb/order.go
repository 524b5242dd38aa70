package gtb

import (
	"runtime"

	"github.com/unixpickle/essentials"
	"golang.org/x/exp/slices"
	"gorgonia.org/tensor"
)

//OrderIndex stores, for every feature column, the row indices sorted ascending by feature value.
//It is built once per training run and shared by every tree fit.
type OrderIndex struct {
	rows, cols int
	order      *tensor.Dense
}

//NewOrderIndex argsorts every column of x. Columns are processed concurrently;
//the stable sort keeps ties in row order so the result is deterministic.
func NewOrderIndex(x FeatureMatrix) *OrderIndex {
	rows, cols := x.Rows(), x.Cols()
	index := &OrderIndex{
		rows:  rows,
		cols:  cols,
		order: tensor.New(tensor.WithShape(essentials.MaxInt(cols, 1), essentials.MaxInt(rows, 1)), tensor.Of(tensor.Int)),
	}
	data := index.order.Data().([]int)

	essentials.ConcurrentMap(runtime.GOMAXPROCS(0), cols, func(q int) {
		column := make([]float64, rows)
		for p := 0; p < rows; p++ {
			column[p] = x.At(p, q)
		}
		sorted := data[q*rows : (q+1)*rows]
		for p := range sorted {
			sorted[p] = p
		}
		slices.SortStableFunc(sorted, func(a, b int) bool {
			return column[a] < column[b]
		})
	})
	return index
}

//Column returns the sorted row indices of feature q. The slice must not be modified.
func (index *OrderIndex) Column(q int) []int {
	data := index.order.Data().([]int)
	return data[q*index.rows : (q+1)*index.rows]
}

//Rows returns the number of rows covered by the index.
func (index *OrderIndex) Rows() int {
	return index.rows
}

//Cols returns the number of feature columns covered by the index.
func (index *OrderIndex) Cols() int {
	return index.cols
}
