package expression

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// dense is a row-major dense backing.
type dense struct {
	rows, cols int
	data       []float64 // len rows*cols
}

func newDense(rows, cols int, data []float64) *dense {
	return &dense{rows: rows, cols: cols, data: data}
}

func (d *dense) dims() (int, int) { return d.rows, d.cols }
func (d *dense) isSparse() bool   { return false }

func (d *dense) nnz() int {
	n := 0
	for _, v := range d.data {
		if v != 0 {
			n++
		}
	}
	return n
}

func (d *dense) at(i, j int) float64 { return d.data[i*d.cols+j] }

func (d *dense) clone() backing {
	cp := make([]float64, len(d.data))
	copy(cp, d.data)
	return &dense{rows: d.rows, cols: d.cols, data: cp}
}

func (d *dense) toDense() *dense { return d }

func (d *dense) toCSR() *csr {
	indptr := make([]int, d.rows+1)
	var indices []int
	var data []float64
	for i := 0; i < d.rows; i++ {
		for j := 0; j < d.cols; j++ {
			if v := d.data[i*d.cols+j]; v != 0 {
				indices = append(indices, j)
				data = append(data, v)
			}
		}
		indptr[i+1] = len(data)
	}
	return &csr{rows: d.rows, cols: d.cols, indptr: indptr, indices: indices, data: data}
}

func (d *dense) scaleScalar(v float64, div bool) {
	if div {
		for i := range d.data {
			d.data[i] /= v
		}
	} else {
		for i := range d.data {
			d.data[i] *= v
		}
	}
}

func (d *dense) scaleSamples(v []float64, div bool) error {
	for i := 0; i < d.rows; i++ {
		row := d.data[i*d.cols : (i+1)*d.cols]
		if div {
			for j := range row {
				row[j] /= v[i]
			}
		} else {
			for j := range row {
				row[j] *= v[i]
			}
		}
	}
	return nil
}

func (d *dense) scaleGenes(v []float64, div bool) error {
	for i := 0; i < d.rows; i++ {
		row := d.data[i*d.cols : (i+1)*d.cols]
		if div {
			for j := range row {
				row[j] /= v[j]
			}
		} else {
			for j := range row {
				row[j] *= v[j]
			}
		}
	}
	return nil
}

func (d *dense) scaleElems(v []float64, div bool) error {
	if len(v) != len(d.data) {
		return &ErrDimensionMismatch{Expected: len(d.data), Actual: len(v)}
	}
	if div {
		for i := range d.data {
			d.data[i] /= v[i]
		}
	} else {
		for i := range d.data {
			d.data[i] *= v[i]
		}
	}
	return nil
}

func (d *dense) apply(fn func(float64) float64) {
	for i := range d.data {
		d.data[i] = fn(d.data[i])
	}
}

// applyRows runs fn over the half-open row range [start, stop).
func (d *dense) applyRows(fn func(float64) float64, start, stop int) {
	for i := start * d.cols; i < stop*d.cols; i++ {
		d.data[i] = fn(d.data[i])
	}
}

func (d *dense) columnStats() []colStat {
	stats := make([]colStat, d.cols)
	for j := range stats {
		stats[j] = colStat{min: math.Inf(1), max: math.Inf(-1)}
	}
	for i := 0; i < d.rows; i++ {
		for j := 0; j < d.cols; j++ {
			v := d.data[i*d.cols+j]
			s := &stats[j]
			if v < s.min {
				s.min = v
			}
			if v > s.max {
				s.max = v
			}
			if v != 0 {
				s.nnz++
			}
		}
	}
	return stats
}

func (d *dense) columnSums() []float64 {
	sums := make([]float64, d.cols)
	for i := 0; i < d.rows; i++ {
		row := d.data[i*d.cols : (i+1)*d.cols]
		for j, v := range row {
			sums[j] += v
		}
	}
	return sums
}

func (d *dense) rowSums() []float64 {
	sums := make([]float64, d.rows)
	for i := 0; i < d.rows; i++ {
		row := d.data[i*d.cols : (i+1)*d.cols]
		for _, v := range row {
			sums[i] += v
		}
	}
	return sums
}

func (d *dense) nonFiniteColumns() *roaring.Bitmap {
	bm := roaring.New()
	for i := 0; i < d.rows; i++ {
		for j := 0; j < d.cols; j++ {
			if v := d.data[i*d.cols+j]; math.IsNaN(v) || math.IsInf(v, 0) {
				bm.Add(uint32(j))
			}
		}
	}
	return bm
}

func (d *dense) selectColumns(keep []bool) backing {
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	out := make([]float64, d.rows*kept)
	for i := 0; i < d.rows; i++ {
		o := i * kept
		for j := 0; j < d.cols; j++ {
			if keep[j] {
				out[o] = d.data[i*d.cols+j]
				o++
			}
		}
	}
	return &dense{rows: d.rows, cols: kept, data: out}
}

func (d *dense) gatherRows(idx []int) backing {
	out := make([]float64, len(idx)*d.cols)
	for i, src := range idx {
		copy(out[i*d.cols:(i+1)*d.cols], d.data[src*d.cols:(src+1)*d.cols])
	}
	return &dense{rows: len(idx), cols: d.cols, data: out}
}

func (d *dense) sliceColumns(start, end int) backing {
	w := end - start
	out := make([]float64, d.rows*w)
	for i := 0; i < d.rows; i++ {
		copy(out[i*w:(i+1)*w], d.data[i*d.cols+start:i*d.cols+end])
	}
	return &dense{rows: d.rows, cols: w, data: out}
}

// denseMul computes a×b as a plain dense product.
func denseMul(a, b *dense) *dense {
	out := make([]float64, a.rows*b.cols)
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			v := a.data[i*a.cols+k]
			if v == 0 {
				continue
			}
			bRow := b.data[k*b.cols : (k+1)*b.cols]
			outRow := out[i*b.cols : (i+1)*b.cols]
			for j := range bRow {
				outRow[j] += v * bRow[j]
			}
		}
	}
	return &dense{rows: a.rows, cols: b.cols, data: out}
}
