package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csrFromRows builds a CSR matrix holding the same values as rows.
func csrFromRows(t *testing.T, rows [][]float64) *Matrix {
	t.Helper()
	indptr := []int{0}
	var indices []int
	var data []float64
	for _, row := range rows {
		for j, v := range row {
			if v != 0 {
				indices = append(indices, j)
				data = append(data, v)
			}
		}
		indptr = append(indptr, len(data))
	}
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m, err := NewCSR(len(rows), cols, indptr, indices, data)
	require.NoError(t, err)
	return m
}

// cscFromRows builds a CSC matrix holding the same values as rows.
func cscFromRows(t *testing.T, rows [][]float64) *Matrix {
	t.Helper()
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	indptr := []int{0}
	var indices []int
	var data []float64
	for j := 0; j < cols; j++ {
		for i := range rows {
			if v := rows[i][j]; v != 0 {
				indices = append(indices, i)
				data = append(data, v)
			}
		}
		indptr = append(indptr, len(data))
	}
	m, err := NewCSC(len(rows), cols, indptr, indices, data)
	require.NoError(t, err)
	return m
}

func denseFromRows(t *testing.T, rows [][]float64) *Matrix {
	t.Helper()
	m, err := NewDenseRows(rows)
	require.NoError(t, err)
	return m
}

func TestNewDense_Validation(t *testing.T) {
	_, err := NewDense(2, 3, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewDenseRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewCSR_Validation(t *testing.T) {
	tests := []struct {
		name    string
		indptr  []int
		indices []int
		data    []float64
	}{
		{"short indptr", []int{0, 1}, []int{0}, []float64{1}},
		{"non-monotonic indptr", []int{0, 2, 1}, []int{0, 1}, []float64{1, 2}},
		{"index out of range", []int{0, 1, 2}, []int{0, 5}, []float64{1, 2}},
		{"indptr span mismatch", []int{0, 1, 1}, []int{0, 1}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSR(2, 3, tt.indptr, tt.indices, tt.data)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestMatrix_DTypeInference(t *testing.T) {
	m := denseFromRows(t, [][]float64{{1, 2}, {3, 4}})
	assert.Equal(t, Int32, m.DType())
	assert.True(t, m.DType().IsInteger())

	m = denseFromRows(t, [][]float64{{1.5, 2}, {3, 4}})
	assert.Equal(t, Float64, m.DType())
}

func TestMatrix_At(t *testing.T) {
	rows := [][]float64{{1, 0, 3}, {0, 5, 0}}
	for name, m := range map[string]*Matrix{
		"dense": denseFromRows(t, rows),
		"csr":   csrFromRows(t, rows),
		"csc":   cscFromRows(t, rows),
	} {
		t.Run(name, func(t *testing.T) {
			for i := range rows {
				for j := range rows[i] {
					assert.Equal(t, rows[i][j], m.At(i, j))
				}
			}
		})
	}
}

func TestMatrix_Dot_DispatchTable(t *testing.T) {
	a := [][]float64{{1, 2}, {3, 4}}
	b := [][]float64{{5, 6}, {7, 8}}
	want := [][]float64{{19, 22}, {43, 50}}

	variants := map[string]func(*testing.T, [][]float64) *Matrix{
		"dense": denseFromRows,
		"csr":   csrFromRows,
		"csc":   cscFromRows,
	}

	for leftName, leftFn := range variants {
		for rightName, rightFn := range variants {
			t.Run(leftName+"x"+rightName, func(t *testing.T) {
				left := leftFn(t, a)
				right := rightFn(t, b)
				got, err := left.Dot(right, true, false)
				require.NoError(t, err)

				// Sparse self keeps a sparse product; a dense self
				// densifies the other operand.
				assert.Equal(t, left.IsSparse(), got.IsSparse())
				assert.Equal(t, want, got.Values())
			})
		}
	}
}

func TestMatrix_Dot_LeftSide(t *testing.T) {
	a := denseFromRows(t, [][]float64{{1, 2}, {3, 4}})
	b := denseFromRows(t, [][]float64{{5, 6}, {7, 8}})

	got, err := a.Dot(b, false, false)
	require.NoError(t, err)
	// other on the left: b×a.
	assert.Equal(t, [][]float64{{23, 34}, {31, 46}}, got.Values())
}

func TestMatrix_Dot_ForceDense(t *testing.T) {
	a := csrFromRows(t, [][]float64{{1, 0}, {0, 2}})
	b := csrFromRows(t, [][]float64{{3, 0}, {0, 4}})

	got, err := a.Dot(b, true, true)
	require.NoError(t, err)
	assert.False(t, got.IsSparse())
	assert.Equal(t, [][]float64{{3, 0}, {0, 8}}, got.Values())
}

func TestMatrix_Dot_DimensionMismatch(t *testing.T) {
	a := denseFromRows(t, [][]float64{{1, 2, 3}})
	b := denseFromRows(t, [][]float64{{1, 2}, {3, 4}})

	_, err := a.Dot(b, true, false)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestMatrix_GatherRows_WithReplacement(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	for name, m := range map[string]*Matrix{
		"dense": denseFromRows(t, rows),
		"csr":   csrFromRows(t, rows),
		"csc":   cscFromRows(t, rows),
	} {
		t.Run(name, func(t *testing.T) {
			got := m.GatherRows([]int{2, 0, 2, 1})
			assert.Equal(t, [][]float64{{5, 6}, {1, 2}, {5, 6}, {3, 4}}, got.Values())
			assert.Equal(t, m.IsSparse(), got.IsSparse())
		})
	}
}

func TestMatrix_SliceColumns(t *testing.T) {
	rows := [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}}
	for name, m := range map[string]*Matrix{
		"dense": denseFromRows(t, rows),
		"csr":   csrFromRows(t, rows),
		"csc":   cscFromRows(t, rows),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := m.SliceColumns(1, 3)
			require.NoError(t, err)
			assert.Equal(t, [][]float64{{2, 3}, {6, 7}}, got.Values())

			_, err = m.SliceColumns(2, 5)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestMatrix_Clone_Independent(t *testing.T) {
	m := csrFromRows(t, [][]float64{{1, 0}, {0, 2}})
	cp := m.Clone()
	cp.b.scaleScalar(10, false)

	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 10.0, cp.At(0, 0))
}
