package expression

import (
	"fmt"
	"strconv"
)

const defaultTransformChunk = 1000

// Store unifies a samples-by-genes matrix with aligned per-sample and
// per-gene metadata. The backing matrix is exclusively owned by the Store;
// callers obtain data through slices and copies, never a live reference.
type Store struct {
	m           *Matrix
	sampleNames []string
	geneNames   []string
	genePos     map[string]int
	sampleMeta  *Table
	geneMeta    *Table

	// pendingTrim records the intersection of assigned gene metadata with
	// the current gene labels; the next TrimGenes call without an explicit
	// allow list consumes it.
	pendingTrim []string
}

type storeConfig struct {
	transpose   bool
	dtype       *DType
	sampleNames []string
	geneNames   []string
	sampleMeta  *Table
	geneMeta    *Table
}

// Option configures Store construction.
type Option func(*storeConfig)

// WithTranspose treats input rows as genes and columns as samples.
func WithTranspose() Option {
	return func(c *storeConfig) { c.transpose = true }
}

// WithDType forces the logical element type instead of inferring it.
func WithDType(d DType) Option {
	return func(c *storeConfig) { c.dtype = &d }
}

// WithSampleNames sets the sample (row) labels.
func WithSampleNames(names []string) Option {
	return func(c *storeConfig) { c.sampleNames = names }
}

// WithGeneNames sets the gene (column) labels.
func WithGeneNames(names []string) Option {
	return func(c *storeConfig) { c.geneNames = names }
}

// WithSampleMetadata assigns initial per-sample metadata.
func WithSampleMetadata(t *Table) Option {
	return func(c *storeConfig) { c.sampleMeta = t }
}

// WithGeneMetadata assigns initial per-gene metadata.
func WithGeneMetadata(t *Table) Option {
	return func(c *storeConfig) { c.geneMeta = t }
}

// New creates a Store around a matrix. Label defaults are positional
// strings. An explicit dtype must be able to hold the data: an integer
// dtype over non-integral values is a configuration error.
func New(m *Matrix, opts ...Option) (*Store, error) {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.transpose {
		m = &Matrix{b: transposeBacking(m.b), dtype: m.dtype}
	} else {
		m = m.Clone()
	}

	if cfg.dtype != nil {
		if err := checkExplicitDType(*cfg.dtype, m); err != nil {
			return nil, err
		}
		m.dtype = *cfg.dtype
	}

	s := &Store{m: m}
	var err error
	if s.sampleNames, err = axisLabels(cfg.sampleNames, m.Rows(), "sample"); err != nil {
		return nil, err
	}
	if s.geneNames, err = axisLabels(cfg.geneNames, m.Cols(), "gene"); err != nil {
		return nil, err
	}
	s.genePos = labelPositions(s.geneNames)

	if cfg.sampleMeta != nil {
		s.SetMetaData(cfg.sampleMeta)
	}
	if cfg.geneMeta != nil {
		s.SetGeneData(cfg.geneMeta)
	}
	return s, nil
}

// NewFromTable creates a Store from a labeled table. Numeric columns form
// the matrix (one gene per column); non-numeric columns are routed into the
// sample metadata instead of the numeric matrix. The dtype is integer when
// every numeric value is integral.
func NewFromTable(t *Table, opts ...Option) (*Store, error) {
	var geneNames []string
	var numeric []Column
	var routed []Column
	for _, name := range t.ColumnNames() {
		c, _ := t.Column(name)
		if c.Numeric {
			geneNames = append(geneNames, c.Name)
			numeric = append(numeric, c)
		} else {
			routed = append(routed, c)
		}
	}

	rows := t.Len()
	data := make([]float64, rows*len(numeric))
	for j, c := range numeric {
		for i, v := range c.Values {
			data[i*len(numeric)+j] = v
		}
	}
	m, err := NewDense(rows, len(numeric), data)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithSampleNames(t.Index()), WithGeneNames(geneNames)}, opts...)
	s, err := New(m, opts...)
	if err != nil {
		return nil, err
	}
	if len(routed) > 0 {
		meta, err := NewTable(t.Index(), routed...)
		if err != nil {
			return nil, err
		}
		s.SetMetaData(meta)
	}
	return s, nil
}

func checkExplicitDType(d DType, m *Matrix) error {
	switch d {
	case Int32, Int64:
		if !m.dtype.IsInteger() {
			return fmt.Errorf("%w: dtype %s cannot hold non-integral data", ErrConfiguration, d)
		}
	case Float32, Float64:
	default:
		return fmt.Errorf("%w: unsupported dtype %d", ErrConfiguration, int(d))
	}
	return nil
}

func axisLabels(names []string, n int, axis string) ([]string, error) {
	if names == nil {
		names = make([]string, n)
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
		return names, nil
	}
	if len(names) != n {
		return nil, fmt.Errorf("%w: %d %s labels for %d %ss", ErrConfiguration, len(names), axis, n, axis)
	}
	seen := make(map[string]struct{}, n)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate %s label %q", ErrConfiguration, axis, name)
		}
		seen[name] = struct{}{}
	}
	return append([]string(nil), names...), nil
}

func labelPositions(labels []string) map[string]int {
	pos := make(map[string]int, len(labels))
	for i, label := range labels {
		pos[label] = i
	}
	return pos
}

func transposeBacking(b backing) backing {
	switch m := b.(type) {
	case *dense:
		out := make([]float64, len(m.data))
		for i := 0; i < m.rows; i++ {
			for j := 0; j < m.cols; j++ {
				out[j*m.rows+i] = m.data[i*m.cols+j]
			}
		}
		return &dense{rows: m.cols, cols: m.rows, data: out}
	case *csr:
		// A CSR matrix reread as CSC is its transpose.
		c := m.clone().(*csr)
		return &csc{rows: c.cols, cols: c.rows, indptr: c.indptr, indices: c.indices, data: c.data}
	case *csc:
		c := m.clone().(*csc)
		return &csr{rows: c.cols, cols: c.rows, indptr: c.indptr, indices: c.indices, data: c.data}
	default:
		return b.clone()
	}
}

// NumSamples returns the sample (row) count.
func (s *Store) NumSamples() int { return s.m.Rows() }

// NumGenes returns the gene (column) count.
func (s *Store) NumGenes() int { return s.m.Cols() }

// SampleNames returns a copy of the sample labels.
func (s *Store) SampleNames() []string {
	return append([]string(nil), s.sampleNames...)
}

// GeneNames returns a copy of the gene labels.
func (s *Store) GeneNames() []string {
	return append([]string(nil), s.geneNames...)
}

// DType returns the matrix's logical element type.
func (s *Store) DType() DType { return s.m.DType() }

// IsSparse reports whether the backing matrix is sparse.
func (s *Store) IsSparse() bool { return s.m.IsSparse() }

// At returns the value at sample i, gene j.
func (s *Store) At(i, j int) float64 { return s.m.At(i, j) }

// Values materializes the matrix as per-sample rows (always a copy).
func (s *Store) Values() [][]float64 { return s.m.Values() }

// MetaData returns the per-sample metadata table.
func (s *Store) MetaData() *Table { return s.sampleMeta }

// GeneData returns the per-gene metadata table.
func (s *Store) GeneData() *Table { return s.geneMeta }

// SetMetaData assigns per-sample metadata. The table is realigned to the
// current sample order; same-named columns are overwritten, other existing
// columns are preserved, and samples absent from the new table become
// placeholder rows.
func (s *Store) SetMetaData(t *Table) {
	s.sampleMeta = s.sampleMeta.merge(t, s.sampleNames)
}

// SetGeneData assigns per-gene metadata under the same merge rule as
// SetMetaData, and records the intersection of the new table's labels with
// the current genes as a pending trim list for the next TrimGenes call.
func (s *Store) SetGeneData(t *Table) {
	present := make(map[string]struct{}, t.Len())
	for _, label := range t.Index() {
		present[label] = struct{}{}
	}
	trim := make([]string, 0, len(present))
	for _, g := range s.geneNames {
		if _, ok := present[g]; ok {
			trim = append(trim, g)
		}
	}
	s.pendingTrim = trim
	s.geneMeta = s.geneMeta.merge(t, s.geneNames)
}

// ConvertToFloat promotes an integer dtype to its float width: Int32 to
// Float32, Int64 to Float64. Float data is left untouched. The promotion is
// irrevocable; later operations run in floating point.
func (s *Store) ConvertToFloat() {
	s.m.dtype = s.m.dtype.Float()
}

// GeneSums returns the per-gene (column) totals.
func (s *Store) GeneSums() []float64 { return s.m.b.columnSums() }

// SampleSums returns the per-sample (row) totals.
func (s *Store) SampleSums() []float64 { return s.m.b.rowSums() }

// MultiplyScalar scales every element. Integer data is promoted to float
// first.
func (s *Store) MultiplyScalar(v float64) {
	s.ConvertToFloat()
	s.m.b.scaleScalar(v, false)
}

// DivideScalar divides every element. Integer data is promoted to float
// first.
func (s *Store) DivideScalar(v float64) {
	s.ConvertToFloat()
	s.m.b.scaleScalar(v, true)
}

// Multiply broadcasts a scale vector along the given axis. AxisGenes wants
// one value per gene, AxisSamples one per sample, AxisAll a full-size
// elementwise array. Sparse backings broadcast only along their compressed
// axis: CSR along samples, CSC along genes; the orthogonal axis returns
// ErrOrientation.
func (s *Store) Multiply(v []float64, axis Axis) error {
	return s.scale(v, axis, false)
}

// Divide is Multiply's division counterpart, with identical axis and
// orientation rules.
func (s *Store) Divide(v []float64, axis Axis) error {
	return s.scale(v, axis, true)
}

func (s *Store) scale(v []float64, axis Axis, div bool) error {
	s.ConvertToFloat()
	switch axis {
	case AxisAll:
		return s.m.b.scaleElems(v, div)
	case AxisGenes:
		if len(v) != s.NumGenes() {
			return &AlignmentError{Axis: "gene", Detail: fmt.Sprintf("scale vector has %d values for %d genes", len(v), s.NumGenes())}
		}
		return s.m.b.scaleGenes(v, div)
	case AxisSamples:
		if len(v) != s.NumSamples() {
			return &AlignmentError{Axis: "sample", Detail: fmt.Sprintf("scale vector has %d values for %d samples", len(v), s.NumSamples())}
		}
		return s.m.b.scaleSamples(v, div)
	default:
		return fmt.Errorf("%w: axis must be AxisAll, AxisGenes or AxisSamples", ErrConfiguration)
	}
}

// TransformOptions configures Transform.
type TransformOptions struct {
	// AddPseudocount adds 1 before applying the function. Sparse backings
	// add to stored entries only.
	AddPseudocount bool
	// MemoryEfficient applies the function over row chunks instead of the
	// whole dense array at once.
	MemoryEfficient bool
	// ChunkSize is the rows per chunk when MemoryEfficient is set.
	// Defaults to 1000.
	ChunkSize int
}

// Transform applies fn elementwise. Sparse backings run fn over stored
// values only. Integer data whose transform produces non-integral values is
// promoted to float first.
func (s *Store) Transform(fn func(float64) float64, opts TransformOptions) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultTransformChunk
	}
	if opts.AddPseudocount {
		s.m.b.apply(func(v float64) float64 { return v + 1 })
	}

	if s.m.IsSparse() {
		s.m.b.apply(fn)
		return
	}

	if s.m.dtype.IsInteger() && s.NumSamples() > 0 && s.NumGenes() > 0 {
		if !isIntegral(fn(s.m.At(0, 0))) {
			s.ConvertToFloat()
		}
	}

	d := s.m.b.(*dense)
	if !opts.MemoryEfficient {
		d.apply(fn)
		return
	}
	rows := d.rows
	chunks := (rows + opts.ChunkSize - 1) / opts.ChunkSize
	for i := 0; i < chunks; i++ {
		start := i * opts.ChunkSize
		stop := start + opts.ChunkSize
		if stop > rows {
			stop = rows
		}
		d.applyRows(fn, start, stop)
	}
}

// TrimGenes removes unwanted genes. The keep set starts from allowList if
// given, otherwise from the pending trim list recorded by SetGeneData,
// otherwise every gene; removeConstant then drops genes whose value range
// does not exceed the tolerance (zero for integer data, ten machine
// epsilons for float). When nothing is removed the matrix is left as-is;
// otherwise it is rebuilt as an explicit copy over the keep set so the
// original storage can be released.
func (s *Store) TrimGenes(removeConstant bool, allowList []string) error {
	total := s.NumGenes()
	keep := make([]bool, total)

	switch {
	case allowList != nil:
		allowed := make(map[string]struct{}, len(allowList))
		for _, g := range allowList {
			allowed[g] = struct{}{}
		}
		for j, g := range s.geneNames {
			_, keep[j] = allowed[g]
		}
	case s.pendingTrim != nil:
		allowed := make(map[string]struct{}, len(s.pendingTrim))
		for _, g := range s.pendingTrim {
			allowed[g] = struct{}{}
		}
		for j, g := range s.geneNames {
			_, keep[j] = allowed[g]
		}
		s.pendingTrim = nil
	default:
		for j := range keep {
			keep[j] = true
		}
	}

	kept := countTrue(keep)
	listRemoved := total - kept

	constantRemoved := 0
	if removeConstant {
		comp := 0.0
		if !s.m.dtype.IsInteger() {
			comp = 10 * s.m.dtype.Eps()
		}
		stats := s.m.b.columnStats()
		for j := range keep {
			if !keep[j] {
				continue
			}
			if s.m.IsSparse() {
				keep[j] = stats[j].nnz > 0 && stats[j].min != stats[j].max
			} else {
				keep[j] = stats[j].max-stats[j].min > comp
			}
		}
		constantRemoved = kept - countTrue(keep)
		kept = countTrue(keep)
	}

	if kept == 0 {
		return &EmptyResultError{ListRemoved: listRemoved, ConstantRemoved: constantRemoved}
	}
	if kept == total {
		return nil
	}

	s.m.b = s.m.b.selectColumns(keep)
	names := make([]string, 0, kept)
	for j, k := range keep {
		if k {
			names = append(names, s.geneNames[j])
		}
	}
	s.geneNames = names
	s.genePos = labelPositions(names)
	if s.geneMeta != nil {
		s.geneMeta = s.geneMeta.Reindex(names)
	}
	return nil
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}

// NonFinite returns the count and labels of genes containing any NaN or
// infinite value, computed per backing format without densifying.
func (s *Store) NonFinite() (int, []string) {
	bm := s.m.b.nonFiniteColumns()
	n := int(bm.GetCardinality())
	if n == 0 {
		return 0, nil
	}
	labels := make([]string, 0, n)
	it := bm.Iterator()
	for it.HasNext() {
		labels = append(labels, s.geneNames[it.Next()])
	}
	return n, labels
}

// Dot computes a numeric product between the store's matrix and other; see
// Matrix.Dot for the dispatch rules.
func (s *Store) Dot(other *Matrix, otherRight, forceDense bool) (*Matrix, error) {
	return s.m.Dot(other, otherRight, forceDense)
}

// SampleSlice gathers the given sample rows into a new matrix. Indices may
// repeat, as they do in a bootstrap draw.
func (s *Store) SampleSlice(idx []int) (*Matrix, error) {
	for _, i := range idx {
		if i < 0 || i >= s.NumSamples() {
			return nil, fmt.Errorf("%w: sample index %d out of range [0,%d)", ErrConfiguration, i, s.NumSamples())
		}
	}
	return s.m.GatherRows(idx), nil
}

// Copy returns a fully independent deep copy of the store.
func (s *Store) Copy() *Store {
	cp := &Store{
		m:           s.m.Clone(),
		sampleNames: append([]string(nil), s.sampleNames...),
		geneNames:   append([]string(nil), s.geneNames...),
		genePos:     labelPositions(s.geneNames),
		sampleMeta:  s.sampleMeta.Clone(),
		geneMeta:    s.geneMeta.Clone(),
	}
	if s.pendingTrim != nil {
		cp.pendingTrim = append([]string(nil), s.pendingTrim...)
	}
	return cp
}

// AlignedSamples verifies that two stores agree on sample labels in order
// and membership.
func AlignedSamples(a, b *Store) error {
	return alignedLabels(a.sampleNames, b.sampleNames, "sample")
}

// AlignedGenes verifies that two stores agree on gene labels in order and
// membership.
func AlignedGenes(a, b *Store) error {
	return alignedLabels(a.geneNames, b.geneNames, "gene")
}

func alignedLabels(a, b []string, axis string) error {
	if len(a) != len(b) {
		return &AlignmentError{Axis: axis, Detail: fmt.Sprintf("%d labels vs %d", len(a), len(b))}
	}
	for i := range a {
		if a[i] != b[i] {
			return &AlignmentError{Axis: axis, Detail: fmt.Sprintf("position %d: %q vs %q", i, a[i], b[i])}
		}
	}
	return nil
}
