package expression

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// csc is a compressed sparse column (column-major) backing. indices holds
// row indices; column j's entries live in data[indptr[j]:indptr[j+1]].
type csc struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

func (m *csc) dims() (int, int) { return m.rows, m.cols }
func (m *csc) isSparse() bool   { return true }
func (m *csc) nnz() int         { return len(m.data) }

func (m *csc) at(i, j int) float64 {
	for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
		if m.indices[p] == i {
			return m.data[p]
		}
	}
	return 0
}

func (m *csc) clone() backing {
	return &csc{
		rows:    m.rows,
		cols:    m.cols,
		indptr:  append([]int(nil), m.indptr...),
		indices: append([]int(nil), m.indices...),
		data:    append([]float64(nil), m.data...),
	}
}

func (m *csc) toDense() *dense {
	out := make([]float64, m.rows*m.cols)
	for j := 0; j < m.cols; j++ {
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			out[m.indices[p]*m.cols+j] = m.data[p]
		}
	}
	return &dense{rows: m.rows, cols: m.cols, data: out}
}

// toCSR rebuilds the matrix in row-major compressed form via a counting pass.
func (m *csc) toCSR() *csr {
	indptr := make([]int, m.rows+1)
	for _, i := range m.indices {
		indptr[i+1]++
	}
	for i := 0; i < m.rows; i++ {
		indptr[i+1] += indptr[i]
	}
	indices := make([]int, len(m.indices))
	data := make([]float64, len(m.data))
	next := append([]int(nil), indptr...)
	for j := 0; j < m.cols; j++ {
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			i := m.indices[p]
			indices[next[i]] = j
			data[next[i]] = m.data[p]
			next[i]++
		}
	}
	return &csr{rows: m.rows, cols: m.cols, indptr: indptr, indices: indices, data: data}
}

func (m *csc) scaleScalar(v float64, div bool) {
	if div {
		for i := range m.data {
			m.data[i] /= v
		}
	} else {
		for i := range m.data {
			m.data[i] *= v
		}
	}
}

func (m *csc) scaleSamples(v []float64, div bool) error {
	return ErrOrientation
}

// scaleGenes broadcasts along the compressed axis: the scale value for gene
// j is repeated over column j's stored entries.
func (m *csc) scaleGenes(v []float64, div bool) error {
	for j := 0; j < m.cols; j++ {
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			if div {
				m.data[p] /= v[j]
			} else {
				m.data[p] *= v[j]
			}
		}
	}
	return nil
}

func (m *csc) scaleElems(v []float64, div bool) error {
	return ErrOrientation
}

func (m *csc) apply(fn func(float64) float64) {
	for i := range m.data {
		m.data[i] = fn(m.data[i])
	}
}

func (m *csc) columnStats() []colStat {
	stats := make([]colStat, m.cols)
	for j := 0; j < m.cols; j++ {
		s := colStat{min: math.Inf(1), max: math.Inf(-1)}
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			v := m.data[p]
			if v < s.min {
				s.min = v
			}
			if v > s.max {
				s.max = v
			}
			s.nnz++
		}
		if s.nnz < m.rows {
			if s.min > 0 || s.nnz == 0 {
				s.min = 0
			}
			if s.max < 0 || s.nnz == 0 {
				s.max = 0
			}
		}
		stats[j] = s
	}
	return stats
}

func (m *csc) columnSums() []float64 {
	sums := make([]float64, m.cols)
	for j := 0; j < m.cols; j++ {
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			sums[j] += m.data[p]
		}
	}
	return sums
}

func (m *csc) rowSums() []float64 {
	sums := make([]float64, m.rows)
	for p, i := range m.indices {
		sums[i] += m.data[p]
	}
	return sums
}

func (m *csc) nonFiniteColumns() *roaring.Bitmap {
	bm := roaring.New()
	for j := 0; j < m.cols; j++ {
		for p := m.indptr[j]; p < m.indptr[j+1]; p++ {
			if v := m.data[p]; math.IsNaN(v) || math.IsInf(v, 0) {
				bm.Add(uint32(j))
				break
			}
		}
	}
	return bm
}

func (m *csc) selectColumns(keep []bool) backing {
	indptr := []int{0}
	var indices []int
	var data []float64
	for j := 0; j < m.cols; j++ {
		if !keep[j] {
			continue
		}
		indices = append(indices, m.indices[m.indptr[j]:m.indptr[j+1]]...)
		data = append(data, m.data[m.indptr[j]:m.indptr[j+1]]...)
		indptr = append(indptr, len(data))
	}
	return &csc{rows: m.rows, cols: len(indptr) - 1, indptr: indptr, indices: indices, data: data}
}

// gatherRows routes through CSR: with-replacement row gathers need row-major
// access, so the gather happens in row orientation and converts back.
func (m *csc) gatherRows(idx []int) backing {
	gathered := m.toCSR().gatherRows(idx).(*csr)
	return csrToCSC(gathered)
}

func (m *csc) sliceColumns(start, end int) backing {
	indptr := make([]int, end-start+1)
	base := m.indptr[start]
	for j := start; j <= end; j++ {
		indptr[j-start] = m.indptr[j] - base
	}
	return &csc{
		rows:    m.rows,
		cols:    end - start,
		indptr:  indptr,
		indices: append([]int(nil), m.indices[base:m.indptr[end]]...),
		data:    append([]float64(nil), m.data[base:m.indptr[end]]...),
	}
}

func csrToCSC(m *csr) *csc {
	indptr := make([]int, m.cols+1)
	for _, j := range m.indices {
		indptr[j+1]++
	}
	for j := 0; j < m.cols; j++ {
		indptr[j+1] += indptr[j]
	}
	indices := make([]int, len(m.indices))
	data := make([]float64, len(m.data))
	next := append([]int(nil), indptr...)
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			j := m.indices[p]
			indices[next[j]] = i
			data[next[j]] = m.data[p]
			next[j]++
		}
	}
	return &csc{rows: m.rows, cols: m.cols, indptr: indptr, indices: indices, data: data}
}
