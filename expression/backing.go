package expression

import "github.com/RoaringBitmap/roaring/v2"

// Axis selects the broadcast direction of a scale operation.
type Axis int

const (
	// AxisAll scales every element, by a scalar or a full-size array.
	AxisAll Axis = iota
	// AxisGenes broadcasts a per-gene vector along the gene (column) axis.
	AxisGenes
	// AxisSamples broadcasts a per-sample vector along the sample (row) axis.
	AxisSamples
)

// colStat captures one gene column's value range and stored-entry count.
// Min and Max include implicit zeros for sparse backings.
type colStat struct {
	min, max float64
	nnz      int
}

// backing is the storage variant behind a Matrix. The variant is chosen once
// at construction; every operation has one implementation per variant so no
// call site probes the storage format.
type backing interface {
	dims() (rows, cols int)
	isSparse() bool
	nnz() int
	at(i, j int) float64
	clone() backing

	toDense() *dense
	toCSR() *csr

	// scaleScalar multiplies (or divides) every stored value by v.
	scaleScalar(v float64, div bool)
	// scaleSamples broadcasts a length-rows vector along the sample axis.
	scaleSamples(v []float64, div bool) error
	// scaleGenes broadcasts a length-cols vector along the gene axis.
	scaleGenes(v []float64, div bool) error
	// scaleElems applies a full-size elementwise array (dense only).
	scaleElems(v []float64, div bool) error

	// apply runs fn over values in place; sparse variants touch stored
	// entries only.
	apply(fn func(float64) float64)

	columnStats() []colStat
	columnSums() []float64
	rowSums() []float64
	nonFiniteColumns() *roaring.Bitmap

	selectColumns(keep []bool) backing
	gatherRows(idx []int) backing
	sliceColumns(start, end int) backing
}
