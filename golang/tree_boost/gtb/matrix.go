package gtb

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

//FeatureMatrix is a read-only row-addressable feature matrix.
type FeatureMatrix interface {
	Rows() int
	Cols() int
	At(i, j int) float64
	//RowVector allocates a buffer suitable for GetRow.
	RowVector() *RowVector
	//GetRow fills row with the i-th row of the matrix, reusing its storage.
	GetRow(i int, row *RowVector)
	//Permuted returns a matrix whose i-th row is the perm[i]-th row of the receiver.
	Permuted(perm []int) FeatureMatrix
}

//RowVector is a reusable view of one matrix row.
type RowVector struct {
	values  []float64
	touched []int // non-zero positions written by a sparse row, reset on the next fill
}

//NewRowVector wraps the given values. The slice is used directly, not copied.
func NewRowVector(values []float64) *RowVector {
	return &RowVector{values: values}
}

//Get returns the value of column j.
func (row *RowVector) Get(j int) float64 {
	if j < 0 || j >= len(row.values) {
		return 0
	}
	return row.values[j]
}

//Size returns the number of columns in the row.
func (row *RowVector) Size() int {
	return len(row.values)
}

//DenseMatrix is a row-major dense feature matrix backed by gonum.
type DenseMatrix struct {
	Features *mat.Dense
}

//NewDenseMatrix wraps the dense features.
func NewDenseMatrix(features *mat.Dense) *DenseMatrix {
	return &DenseMatrix{Features: features}
}

func (m *DenseMatrix) Rows() int {
	h, _ := m.Features.Dims()
	return h
}

func (m *DenseMatrix) Cols() int {
	_, w := m.Features.Dims()
	return w
}

func (m *DenseMatrix) At(i, j int) float64 {
	return m.Features.At(i, j)
}

func (m *DenseMatrix) RowVector() *RowVector {
	return &RowVector{values: make([]float64, m.Cols())}
}

func (m *DenseMatrix) GetRow(i int, row *RowVector) {
	copy(row.values, m.Features.RawRowView(i))
}

func (m *DenseMatrix) Permuted(perm []int) FeatureMatrix {
	h, w := m.Features.Dims()
	permuted := mat.NewDense(h, w, nil)
	for p := 0; p < h; p++ {
		permuted.SetRow(p, m.Features.RawRowView(perm[p]))
	}
	return &DenseMatrix{Features: permuted}
}

//CSRMatrix is a compressed sparse row matrix. Absent entries read as zero.
//Column indices are sorted inside every row.
type CSRMatrix struct {
	RowPointers   []int
	ColumnIndices []int
	Values        []float64
	NumCols       int
}

func (m *CSRMatrix) Rows() int {
	return len(m.RowPointers) - 1
}

func (m *CSRMatrix) Cols() int {
	return m.NumCols
}

func (m *CSRMatrix) At(i, j int) float64 {
	begin, end := m.RowPointers[i], m.RowPointers[i+1]
	columns := m.ColumnIndices[begin:end]
	pos := sort.SearchInts(columns, j)
	if pos < len(columns) && columns[pos] == j {
		return m.Values[begin+pos]
	}
	return 0
}

func (m *CSRMatrix) RowVector() *RowVector {
	return &RowVector{values: make([]float64, m.NumCols)}
}

func (m *CSRMatrix) GetRow(i int, row *RowVector) {
	for _, j := range row.touched {
		row.values[j] = 0
	}
	row.touched = row.touched[:0]
	for pos := m.RowPointers[i]; pos < m.RowPointers[i+1]; pos++ {
		j := m.ColumnIndices[pos]
		row.values[j] = m.Values[pos]
		row.touched = append(row.touched, j)
	}
}

func (m *CSRMatrix) Permuted(perm []int) FeatureMatrix {
	rows := m.Rows()
	permuted := &CSRMatrix{
		RowPointers:   make([]int, 1, rows+1),
		ColumnIndices: make([]int, 0, len(m.ColumnIndices)),
		Values:        make([]float64, 0, len(m.Values)),
		NumCols:       m.NumCols,
	}
	for p := 0; p < rows; p++ {
		begin, end := m.RowPointers[perm[p]], m.RowPointers[perm[p]+1]
		permuted.ColumnIndices = append(permuted.ColumnIndices, m.ColumnIndices[begin:end]...)
		permuted.Values = append(permuted.Values, m.Values[begin:end]...)
		permuted.RowPointers = append(permuted.RowPointers, len(permuted.ColumnIndices))
	}
	return permuted
}
