package gtb

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//MatrixBuilder accumulates rows one column at a time.
type MatrixBuilder interface {
	NextColumn(j int, value float64)
	NextRow()
	Build() FeatureMatrix
}

//DenseMatrixBuilder builds a DenseMatrix. Rows shorter than the widest row are padded with zeros.
type DenseMatrixBuilder struct {
	rows    [][]float64
	current []float64
	maxCols int
}

//NewDenseMatrixBuilder creates a builder with capacity for the given number of rows.
func NewDenseMatrixBuilder(initialRows int) *DenseMatrixBuilder {
	return &DenseMatrixBuilder{rows: make([][]float64, 0, initialRows)}
}

//NextColumn stores the value of column j in the current row. NaN values are treated as missing.
func (b *DenseMatrixBuilder) NextColumn(j int, value float64) {
	if j < 0 || math.IsNaN(value) {
		return
	}
	for len(b.current) <= j {
		b.current = append(b.current, 0)
	}
	b.current[j] = value
}

func (b *DenseMatrixBuilder) NextRow() {
	if len(b.current) > b.maxCols {
		b.maxCols = len(b.current)
	}
	b.rows = append(b.rows, b.current)
	b.current = nil
}

func (b *DenseMatrixBuilder) Build() FeatureMatrix {
	if len(b.rows) == 0 || b.maxCols == 0 {
		// gonum refuses zero-sized allocations
		return &DenseMatrix{Features: &mat.Dense{}}
	}
	features := mat.NewDense(len(b.rows), b.maxCols, nil)
	for p, row := range b.rows {
		for q, value := range row {
			features.Set(p, q, value)
		}
	}
	return &DenseMatrix{Features: features}
}

type sparseEntry struct {
	column int
	value  float64
}

//CSRMatrixBuilder builds a CSRMatrix from index/value features.
type CSRMatrixBuilder struct {
	matrix  *CSRMatrix
	current []sparseEntry
}

//NewCSRMatrixBuilder creates a builder with capacity for the given number of non-zero entries.
func NewCSRMatrixBuilder(initialNonZeros int) *CSRMatrixBuilder {
	return &CSRMatrixBuilder{matrix: &CSRMatrix{
		RowPointers:   []int{0},
		ColumnIndices: make([]int, 0, initialNonZeros),
		Values:        make([]float64, 0, initialNonZeros),
	}}
}

func (b *CSRMatrixBuilder) NextColumn(j int, value float64) {
	if j < 0 || math.IsNaN(value) || value == 0 {
		return
	}
	b.current = append(b.current, sparseEntry{j, value})
}

//NextFeature parses a "index:value" or "index" feature. A bare index has the value 1.
func (b *CSRMatrixBuilder) NextFeature(feature string) error {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return nil
	}
	indexPart, valuePart := feature, ""
	if pos := strings.IndexByte(feature, ':'); pos >= 0 {
		indexPart, valuePart = feature[:pos], feature[pos+1:]
	}
	index, err := strconv.Atoi(indexPart)
	if err != nil || index < 0 {
		return dataErrorf("feature %q has an invalid column index", feature)
	}
	value := 1.0
	if valuePart != "" {
		value, err = strconv.ParseFloat(valuePart, 64)
		if err != nil {
			return dataErrorf("feature %q has an invalid value", feature)
		}
	}
	b.NextColumn(index, value)
	return nil
}

func (b *CSRMatrixBuilder) NextRow() {
	sort.SliceStable(b.current, func(i, j int) bool {
		return b.current[i].column < b.current[j].column
	})
	m := b.matrix
	for ind, entry := range b.current {
		// a repeated column keeps the last value
		if ind+1 < len(b.current) && b.current[ind+1].column == entry.column {
			continue
		}
		m.ColumnIndices = append(m.ColumnIndices, entry.column)
		m.Values = append(m.Values, entry.value)
		if entry.column >= m.NumCols {
			m.NumCols = entry.column + 1
		}
	}
	m.RowPointers = append(m.RowPointers, len(m.ColumnIndices))
	b.current = b.current[:0]
}

func (b *CSRMatrixBuilder) Build() FeatureMatrix {
	return b.matrix
}
