package expression

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// csr is a compressed sparse row (row-major) backing. indices holds column
// indices; row i's entries live in data[indptr[i]:indptr[i+1]].
type csr struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

func (m *csr) dims() (int, int) { return m.rows, m.cols }
func (m *csr) isSparse() bool   { return true }
func (m *csr) nnz() int         { return len(m.data) }

func (m *csr) at(i, j int) float64 {
	for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
		if m.indices[p] == j {
			return m.data[p]
		}
	}
	return 0
}

func (m *csr) clone() backing {
	return &csr{
		rows:    m.rows,
		cols:    m.cols,
		indptr:  append([]int(nil), m.indptr...),
		indices: append([]int(nil), m.indices...),
		data:    append([]float64(nil), m.data...),
	}
}

func (m *csr) toDense() *dense {
	out := make([]float64, m.rows*m.cols)
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			out[i*m.cols+m.indices[p]] = m.data[p]
		}
	}
	return &dense{rows: m.rows, cols: m.cols, data: out}
}

func (m *csr) toCSR() *csr { return m }

func (m *csr) scaleScalar(v float64, div bool) {
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

// scaleSamples broadcasts along the compressed axis: the scale value for
// sample i is repeated over row i's stored entries.
func (m *csr) scaleSamples(v []float64, div bool) error {
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			if div {
				m.data[p] /= v[i]
			} else {
				m.data[p] *= v[i]
			}
		}
	}
	return nil
}

func (m *csr) scaleGenes(v []float64, div bool) error {
	return ErrOrientation
}

func (m *csr) scaleElems(v []float64, div bool) error {
	return ErrOrientation
}

func (m *csr) apply(fn func(float64) float64) {
	for i := range m.data {
		m.data[i] = fn(m.data[i])
	}
}

func (m *csr) columnStats() []colStat {
	stats := make([]colStat, m.cols)
	for j := range stats {
		stats[j] = colStat{min: math.Inf(1), max: math.Inf(-1)}
	}
	for p, j := range m.indices {
		v := m.data[p]
		s := &stats[j]
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
		s.nnz++
	}
	// Implicit zeros count toward the range of any column that is not full.
	for j := range stats {
		s := &stats[j]
		if s.nnz < m.rows {
			if s.min > 0 || s.nnz == 0 {
				s.min = 0
			}
			if s.max < 0 || s.nnz == 0 {
				s.max = 0
			}
		}
	}
	return stats
}

func (m *csr) columnSums() []float64 {
	sums := make([]float64, m.cols)
	for p, j := range m.indices {
		sums[j] += m.data[p]
	}
	return sums
}

func (m *csr) rowSums() []float64 {
	sums := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			sums[i] += m.data[p]
		}
	}
	return sums
}

func (m *csr) nonFiniteColumns() *roaring.Bitmap {
	bm := roaring.New()
	for p, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bm.Add(uint32(m.indices[p]))
		}
	}
	return bm
}

func (m *csr) selectColumns(keep []bool) backing {
	remap := make([]int, m.cols)
	kept := 0
	for j, k := range keep {
		if k {
			remap[j] = kept
			kept++
		} else {
			remap[j] = -1
		}
	}
	indptr := make([]int, m.rows+1)
	var indices []int
	var data []float64
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			if nj := remap[m.indices[p]]; nj >= 0 {
				indices = append(indices, nj)
				data = append(data, m.data[p])
			}
		}
		indptr[i+1] = len(data)
	}
	return &csr{rows: m.rows, cols: kept, indptr: indptr, indices: indices, data: data}
}

func (m *csr) gatherRows(idx []int) backing {
	indptr := make([]int, len(idx)+1)
	var indices []int
	var data []float64
	for i, src := range idx {
		indices = append(indices, m.indices[m.indptr[src]:m.indptr[src+1]]...)
		data = append(data, m.data[m.indptr[src]:m.indptr[src+1]]...)
		indptr[i+1] = len(data)
	}
	return &csr{rows: len(idx), cols: m.cols, indptr: indptr, indices: indices, data: data}
}

func (m *csr) sliceColumns(start, end int) backing {
	indptr := make([]int, m.rows+1)
	var indices []int
	var data []float64
	for i := 0; i < m.rows; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			if j := m.indices[p]; j >= start && j < end {
				indices = append(indices, j-start)
				data = append(data, m.data[p])
			}
		}
		indptr[i+1] = len(data)
	}
	return &csr{rows: m.rows, cols: end - start, indptr: indptr, indices: indices, data: data}
}

// csrMul computes the sparse product a×b with a per-row marker workspace.
// Each output row's indices are sorted before the row is sealed.
func csrMul(a, b *csr) *csr {
	indptr := make([]int, a.rows+1)
	var indices []int
	var data []float64

	marker := make([]int, b.cols)
	for j := range marker {
		marker[j] = -1
	}

	for i := 0; i < a.rows; i++ {
		rowStart := len(data)
		for p := a.indptr[i]; p < a.indptr[i+1]; p++ {
			j := a.indices[p]
			v := a.data[p]
			for q := b.indptr[j]; q < b.indptr[j+1]; q++ {
				k := b.indices[q]
				if marker[k] < rowStart {
					marker[k] = len(data)
					indices = append(indices, k)
					data = append(data, v*b.data[q])
				} else {
					data[marker[k]] += v * b.data[q]
				}
			}
		}
		sortRow(indices[rowStart:], data[rowStart:])
		indptr[i+1] = len(data)
	}
	return &csr{rows: a.rows, cols: b.cols, indptr: indptr, indices: indices, data: data}
}

func sortRow(indices []int, data []float64) {
	sort.Sort(&rowSorter{indices: indices, data: data})
}

type rowSorter struct {
	indices []int
	data    []float64
}

func (s *rowSorter) Len() int           { return len(s.indices) }
func (s *rowSorter) Less(i, j int) bool { return s.indices[i] < s.indices[j] }
func (s *rowSorter) Swap(i, j int) {
	s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
	s.data[i], s.data[j] = s.data[j], s.data[i]
}
