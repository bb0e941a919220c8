package expression

import "fmt"

// Matrix is a samples-by-genes numeric array backed by exactly one storage
// variant: dense row-major, compressed sparse row, or compressed sparse
// column. The variant is fixed at construction.
type Matrix struct {
	b     backing
	dtype DType
}

// NewDense creates a dense matrix from row-major data of length rows*cols.
// The dtype is integer (Int32) when every value is integral, Float64
// otherwise.
func NewDense(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: dense data length %d does not match %dx%d", ErrConfiguration, len(data), rows, cols)
	}
	return &Matrix{b: newDense(rows, cols, data), dtype: inferDType(data)}, nil
}

// NewDenseRows creates a dense matrix from per-sample rows, which must all
// have the same length.
func NewDenseRows(rows [][]float64) (*Matrix, error) {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	data := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("%w: row %d has length %d, want %d", ErrConfiguration, i, len(row), c)
		}
		data = append(data, row...)
	}
	return NewDense(r, c, data)
}

// NewCSR creates a compressed-sparse-row matrix. indices holds column
// indices per stored entry; row i occupies data[indptr[i]:indptr[i+1]].
func NewCSR(rows, cols int, indptr, indices []int, data []float64) (*Matrix, error) {
	if err := checkCompressed(rows, cols, indptr, indices, data, cols); err != nil {
		return nil, err
	}
	m := &csr{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}
	return &Matrix{b: m, dtype: inferDType(data)}, nil
}

// NewCSC creates a compressed-sparse-column matrix. indices holds row
// indices per stored entry; column j occupies data[indptr[j]:indptr[j+1]].
func NewCSC(rows, cols int, indptr, indices []int, data []float64) (*Matrix, error) {
	if err := checkCompressed(cols, rows, indptr, indices, data, rows); err != nil {
		return nil, err
	}
	m := &csc{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}
	return &Matrix{b: m, dtype: inferDType(data)}, nil
}

func checkCompressed(major, minor int, indptr, indices []int, data []float64, bound int) error {
	if len(indptr) != major+1 {
		return fmt.Errorf("%w: indptr length %d, want %d", ErrConfiguration, len(indptr), major+1)
	}
	if len(indices) != len(data) {
		return fmt.Errorf("%w: %d indices for %d values", ErrConfiguration, len(indices), len(data))
	}
	if indptr[0] != 0 || indptr[major] != len(data) {
		return fmt.Errorf("%w: indptr does not span the stored values", ErrConfiguration)
	}
	for i := 1; i < len(indptr); i++ {
		if indptr[i] < indptr[i-1] {
			return fmt.Errorf("%w: indptr is not monotonic", ErrConfiguration)
		}
	}
	for _, j := range indices {
		if j < 0 || j >= bound {
			return fmt.Errorf("%w: stored index %d out of range [0,%d)", ErrConfiguration, j, bound)
		}
	}
	return nil
}

func inferDType(data []float64) DType {
	if allIntegral(data) {
		return Int32
	}
	return Float64
}

// Rows returns the sample count.
func (m *Matrix) Rows() int { r, _ := m.b.dims(); return r }

// Cols returns the gene count.
func (m *Matrix) Cols() int { _, c := m.b.dims(); return c }

// At returns the value at sample i, gene j.
func (m *Matrix) At(i, j int) float64 { return m.b.at(i, j) }

// IsSparse reports whether the backing is a compressed variant.
func (m *Matrix) IsSparse() bool { return m.b.isSparse() }

// NNZ returns the stored entry count (non-zero count for dense).
func (m *Matrix) NNZ() int { return m.b.nnz() }

// DType returns the logical element type.
func (m *Matrix) DType() DType { return m.dtype }

// Clone returns an independent deep copy.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{b: m.b.clone(), dtype: m.dtype}
}

// Values materializes the matrix as per-sample rows. The result is always a
// fresh dense copy; mutating it does not touch the backing.
func (m *Matrix) Values() [][]float64 {
	d := m.b.toDense()
	if _, ok := m.b.(*dense); ok {
		d = m.b.clone().(*dense)
	}
	out := make([][]float64, d.rows)
	for i := range out {
		out[i] = d.data[i*d.cols : (i+1)*d.cols]
	}
	return out
}

// GatherRows builds a new matrix from the given sample indices, in order.
// Indices may repeat; a bootstrap draw is the expected caller.
func (m *Matrix) GatherRows(idx []int) *Matrix {
	return &Matrix{b: m.b.gatherRows(idx), dtype: m.dtype}
}

// SliceColumns returns the half-open gene range [start, end) as a new
// matrix in the same storage variant.
func (m *Matrix) SliceColumns(start, end int) (*Matrix, error) {
	if start < 0 || end < start || end > m.Cols() {
		return nil, fmt.Errorf("%w: column range [%d,%d) out of bounds for %d genes", ErrConfiguration, start, end, m.Cols())
	}
	return &Matrix{b: m.b.sliceColumns(start, end), dtype: m.dtype}, nil
}

// Dot computes a numeric product against other. When otherRight is true the
// product is m×other, otherwise other×m. The result variant follows the
// dispatch table: sparse·sparse and sparse·dense stay sparse (the dense
// operand is converted), dense·sparse densifies the sparse operand, and
// dense·dense is a plain product. forceDense densifies a sparse result.
func (m *Matrix) Dot(other *Matrix, otherRight, forceDense bool) (*Matrix, error) {
	a, b := m, other
	if !otherRight {
		a, b = other, m
	}
	if a.Cols() != b.Rows() {
		return nil, &ErrDimensionMismatch{Expected: a.Cols(), Actual: b.Rows()}
	}

	var out backing
	switch {
	case m.IsSparse():
		out = csrMul(a.b.toCSR(), b.b.toCSR())
	case other.IsSparse():
		out = denseMul(a.b.toDense(), b.b.toDense())
	default:
		out = denseMul(a.b.(*dense), b.b.(*dense))
	}

	if forceDense && out.isSparse() {
		out = out.toDense()
	}

	dt := Float64
	if m.dtype.IsInteger() && other.dtype.IsInteger() {
		dt = m.dtype
	}
	return &Matrix{b: out, dtype: dt}, nil
}
