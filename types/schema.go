package types

import "github.com/kvsql/kvsql/errs"

// Datatype is a column's declared type.
type Datatype int

const (
	Bool Datatype = iota
	Int
	Float
	Str
)

func (d Datatype) String() string {
	switch d {
	case Bool:
		return "BOOL"
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case Str:
		return "STRING"
	default:
		return "?"
	}
}

// Matches reports whether v's kind fits d (Null always fits).
func (d Datatype) Matches(v Value) bool {
	if v.IsNull() {
		return true
	}
	switch d {
	case Bool:
		return v.Kind == KindBool
	case Int:
		return v.Kind == KindInt
	case Float:
		return v.Kind == KindFloat
	case Str:
		return v.Kind == KindStr
	default:
		return false
	}
}

// Column describes one table column.
type Column struct {
	Name         string
	Datatype     Datatype
	Nullable     bool
	Default      Value
	HasDefault   bool
	PrimaryKey   bool
	Index        bool
}

// Table is a catalog entry: name plus ordered columns.
type Table struct {
	Name    string
	Columns []Column
}

// PrimaryKeyColumn returns the table's single primary key column and its
// index, or ok=false if the table somehow has none (Validate rejects that
// case, so callers on a validated Table can assume ok is always true).
func (t Table) PrimaryKeyColumn() (col Column, index int, ok bool) {
	for i, c := range t.Columns {
		if c.PrimaryKey {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// ColumnIndex returns the position of the column named name, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants a table's column set must
// satisfy: exactly one primary key, the primary key is not nullable and
// carries no default, every default is type-compatible with its column
// (or Null when the column is nullable), and a column cannot be both a
// secondary index and the primary key.
func (t Table) Validate() error {
	if len(t.Columns) == 0 {
		return errs.Parse("table %q must declare at least one column", t.Name)
	}

	seen := map[string]bool{}
	pkCount := 0
	for _, c := range t.Columns {
		if seen[c.Name] {
			return errs.Parse("table %q: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true

		if c.PrimaryKey {
			pkCount++
			if c.Nullable {
				return errs.Parse("table %q: primary key column %q cannot be nullable", t.Name, c.Name)
			}
			if c.HasDefault {
				return errs.Parse("table %q: primary key column %q cannot have a default", t.Name, c.Name)
			}
			if c.Index {
				return errs.Parse("table %q: column %q cannot be both primary key and secondary index", t.Name, c.Name)
			}
		}

		if c.HasDefault {
			if c.Default.IsNull() {
				if !c.Nullable {
					return errs.Parse("table %q: column %q default is NULL but column is not nullable", t.Name, c.Name)
				}
			} else if !c.Datatype.Matches(c.Default) {
				return errs.Parse("table %q: column %q default does not match its declared type", t.Name, c.Name)
			}
		}
	}

	switch pkCount {
	case 0:
		return errs.Parse("table %q must declare exactly one primary key column", t.Name)
	case 1:
		// ok
	default:
		return errs.Parse("table %q declares more than one primary key column", t.Name)
	}
	return nil
}
