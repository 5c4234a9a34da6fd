package entity

// Table is a parsed tabular file: a header plus rows aligned to it.
//
// A nil cell means the value is missing.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnIndex returns the position of the named column or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i, column col, or nil when out of range.
func (t Table) Cell(i, col int) any {
	if i < 0 || i >= len(t.Rows) || col < 0 || col >= len(t.Rows[i]) {
		return nil
	}
	return t.Rows[i][col]
}

// Clone returns a deep copy of the header and row slices.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}
