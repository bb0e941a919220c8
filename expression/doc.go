// Package expression stores gene expression data as a samples-by-genes
// numeric matrix unified with aligned per-sample and per-gene metadata.
//
// The matrix is backed by exactly one storage variant — dense row-major,
// compressed sparse row, or compressed sparse column — chosen at
// construction. Every operation (scaling, transforms, products, trimming,
// non-finite scans) has one implementation per variant, so sparse data is
// never densified behind the caller's back and broadcasting respects the
// compressed orientation.
//
// Integer input keeps an integer dtype tag until an operation forces
// floating point; the promotion follows the input width (Int32 to Float32,
// Int64 to Float64) so no precision beyond the original integer width is
// invented.
package expression
