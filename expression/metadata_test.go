package expression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Validation(t *testing.T) {
	t.Run("duplicate labels", func(t *testing.T) {
		_, err := NewTable([]string{"a", "a"})
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewTable([]string{"a", "b"},
			Column{Name: "x", Numeric: true, Values: []float64{1}})
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestTable_Reindex(t *testing.T) {
	tbl, err := NewTable([]string{"a", "b", "c"},
		Column{Name: "n", Numeric: true, Values: []float64{1, 2, 3}},
		Column{Name: "s", Strings: []string{"x", "y", "z"}},
	)
	require.NoError(t, err)

	out := tbl.Reindex([]string{"c", "missing", "a"})
	assert.Equal(t, []string{"c", "missing", "a"}, out.Index())

	n, _ := out.Column("n")
	assert.Equal(t, 3.0, n.Values[0])
	assert.True(t, math.IsNaN(n.Values[1]))
	assert.Equal(t, 1.0, n.Values[2])

	s, _ := out.Column("s")
	assert.Equal(t, []string{"z", "", "x"}, s.Strings)
}

func TestTable_MergeColumnOrder(t *testing.T) {
	labels := []string{"a", "b"}
	old, err := NewTable(labels,
		Column{Name: "keep", Strings: []string{"1", "2"}},
		Column{Name: "shared", Strings: []string{"old", "old"}},
	)
	require.NoError(t, err)
	next, err := NewTable(labels,
		Column{Name: "shared", Strings: []string{"new", "new"}},
		Column{Name: "added", Numeric: true, Values: []float64{7, 8}},
	)
	require.NoError(t, err)

	merged := old.merge(next, labels)
	assert.Equal(t, []string{"shared", "added", "keep"}, merged.ColumnNames())

	shared, _ := merged.Column("shared")
	assert.Equal(t, []string{"new", "new"}, shared.Strings)
}

func TestTable_NilReceiver(t *testing.T) {
	var tbl *Table
	assert.Zero(t, tbl.Len())
	_, ok := tbl.Column("x")
	assert.False(t, ok)
	assert.Nil(t, tbl.Clone())

	next, err := NewTable([]string{"a"}, Column{Name: "c", Strings: []string{"v"}})
	require.NoError(t, err)
	merged := tbl.merge(next, []string{"a"})
	require.NotNil(t, merged)
	assert.Equal(t, []string{"c"}, merged.ColumnNames())
}

func TestTable_CloneIndependent(t *testing.T) {
	tbl, err := NewTable([]string{"a"}, Column{Name: "n", Numeric: true, Values: []float64{1}})
	require.NoError(t, err)

	cp := tbl.Clone()
	c, _ := cp.Column("n")
	c.Values[0] = 99

	orig, _ := tbl.Column("n")
	assert.Equal(t, 1.0, orig.Values[0])
}
