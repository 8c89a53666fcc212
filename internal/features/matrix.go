package features

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Matrix is a compressed sparse row matrix of float64 values.
type Matrix struct {
	NumRows int       `json:"rows"`
	NumCols int       `json:"cols"`
	RowPtr  []int     `json:"row_ptr"`
	ColIdx  []int     `json:"col_idx"`
	Values  []float64 `json:"values"`
}

// Row is a sparse view over one matrix row. Indices are strictly increasing.
type Row struct {
	Indices []int
	Values  []float64
}

// NewMatrix returns an empty matrix with a fixed column space.
func NewMatrix(cols int) *Matrix {
	return &Matrix{NumCols: cols, RowPtr: []int{0}}
}

// AppendRow adds a row; indices must be sorted and within the column space.
func (m *Matrix) AppendRow(r Row) error {
	if len(r.Indices) != len(r.Values) {
		return fmt.Errorf("row has %d indices and %d values", len(r.Indices), len(r.Values))
	}
	prev := -1
	for _, idx := range r.Indices {
		if idx <= prev || idx >= m.NumCols {
			return fmt.Errorf("column %d out of order or outside [0,%d)", idx, m.NumCols)
		}
		prev = idx
	}
	m.ColIdx = append(m.ColIdx, r.Indices...)
	m.Values = append(m.Values, r.Values...)
	m.RowPtr = append(m.RowPtr, len(m.ColIdx))
	m.NumRows++
	return nil
}

// Dims returns rows and columns.
func (m *Matrix) Dims() (int, int) {
	return m.NumRows, m.NumCols
}

// Row returns a view of row i backed by the matrix storage.
func (m *Matrix) Row(i int) Row {
	start, end := m.RowPtr[i], m.RowPtr[i+1]
	return Row{Indices: m.ColIdx[start:end], Values: m.Values[start:end]}
}

// NNZ reports the number of stored values.
func (m *Matrix) NNZ() int {
	return len(m.Values)
}

// Validate checks the structural invariants after decoding.
func (m *Matrix) Validate() error {
	if len(m.RowPtr) != m.NumRows+1 {
		return fmt.Errorf("row pointer length %d does not match %d rows", len(m.RowPtr), m.NumRows)
	}
	if len(m.ColIdx) != len(m.Values) || m.RowPtr[m.NumRows] != len(m.Values) {
		return fmt.Errorf("inconsistent storage: %d indices, %d values", len(m.ColIdx), len(m.Values))
	}
	for _, c := range m.ColIdx {
		if c < 0 || c >= m.NumCols {
			return fmt.Errorf("column %d outside [0,%d)", c, m.NumCols)
		}
	}
	return nil
}

// Dot computes the inner product of a sparse row with a dense vector.
func (r Row) Dot(w []float64) float64 {
	var sum float64
	for k, idx := range r.Indices {
		sum += r.Values[k] * w[idx]
	}
	return sum
}

// At returns the value at column j, zero when absent.
func (r Row) At(j int) float64 {
	lo, hi := 0, len(r.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case r.Indices[mid] == j:
			return r.Values[mid]
		case r.Indices[mid] < j:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Norm returns the euclidean norm of the row.
func (r Row) Norm() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	return floats.Norm(r.Values, 2)
}
