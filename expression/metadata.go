package expression

import (
	"fmt"
	"math"
)

// Column is one labeled metadata column, either numeric or string valued.
type Column struct {
	Name    string
	Numeric bool
	Values  []float64
	Strings []string
}

func (c Column) length() int {
	if c.Numeric {
		return len(c.Values)
	}
	return len(c.Strings)
}

func (c Column) clone() Column {
	cp := Column{Name: c.Name, Numeric: c.Numeric}
	if c.Numeric {
		cp.Values = append([]float64(nil), c.Values...)
	} else {
		cp.Strings = append([]string(nil), c.Strings...)
	}
	return cp
}

// Table is a labeled metadata table keyed by row labels. It backs both the
// per-sample and per-gene metadata of a Store.
type Table struct {
	index   []string
	pos     map[string]int
	columns []Column
}

// NewTable creates a table over the given row labels. Every column must
// match the index length, and labels must be unique.
func NewTable(index []string, columns ...Column) (*Table, error) {
	pos := make(map[string]int, len(index))
	for i, label := range index {
		if _, dup := pos[label]; dup {
			return nil, fmt.Errorf("%w: duplicate metadata label %q", ErrConfiguration, label)
		}
		pos[label] = i
	}
	for _, c := range columns {
		if c.length() != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values for %d labels", ErrConfiguration, c.Name, c.length(), len(index))
		}
	}
	return &Table{index: append([]string(nil), index...), pos: pos, columns: columns}, nil
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Index returns a copy of the row labels.
func (t *Table) Index() []string {
	return append([]string(nil), t.index...)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Clone returns an independent deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.clone()
	}
	cp, _ := NewTable(t.index, cols...)
	return cp
}

// Reindex realigns the table to the given label order. Labels absent from
// the table become placeholders: NaN for numeric columns, the empty string
// otherwise. Rows not named in labels are dropped.
func (t *Table) Reindex(labels []string) *Table {
	cols := make([]Column, len(t.columns))
	for ci, c := range t.columns {
		nc := Column{Name: c.Name, Numeric: c.Numeric}
		if c.Numeric {
			nc.Values = make([]float64, len(labels))
		} else {
			nc.Strings = make([]string, len(labels))
		}
		for i, label := range labels {
			src, ok := t.pos[label]
			switch {
			case c.Numeric && ok:
				nc.Values[i] = c.Values[src]
			case c.Numeric:
				nc.Values[i] = math.NaN()
			case ok:
				nc.Strings[i] = c.Strings[src]
			}
		}
		cols[ci] = nc
	}
	out, _ := NewTable(labels, cols...)
	return out
}

// merge realigns next to labels and overlays it onto t: columns named in
// next replace same-named existing columns, every other existing column is
// preserved. next's columns come first, matching assignment order.
func (t *Table) merge(next *Table, labels []string) *Table {
	aligned := next.Reindex(labels)
	if t == nil || len(t.columns) == 0 {
		return aligned
	}
	incoming := make(map[string]bool, len(aligned.columns))
	for _, c := range aligned.columns {
		incoming[c.Name] = true
	}
	kept := t.Reindex(labels)
	for _, c := range kept.columns {
		if !incoming[c.Name] {
			aligned.columns = append(aligned.columns, c)
		}
	}
	return aligned
}
