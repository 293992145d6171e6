package exec

import (
	"math"

	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execInsert(n *plan.Insert, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}

	count := 0
	for _, values := range n.Values {
		row, err := buildInsertRow(table, n.Columns, values)
		if err != nil {
			return ResultSet{}, err
		}
		if err := typeCheckRow(table, row); err != nil {
			return ResultSet{}, err
		}

		_, pkPos, _ := table.PrimaryKeyColumn()
		pk := row[pkPos]
		if pk.Kind == types.KindFloat && math.IsNaN(pk.Flt) {
			return ResultSet{}, errs.Internal("primary key cannot be NaN")
		}
		if _, ok, err := cat.GetRow(n.Table, pk); err != nil {
			return ResultSet{}, err
		} else if ok {
			return ResultSet{}, errs.Internal("primary key %q conflicted", pk.String())
		}

		if err := cat.PutRow(n.Table, pk, row); err != nil {
			return ResultSet{}, err
		}
		if err := updateIndexEntries(cat, table, n.Table, pk, nil, row); err != nil {
			return ResultSet{}, err
		}
		count++
	}

	return ResultSet{Kind: KindInsert, Count: count}, nil
}

// buildInsertRow resolves one VALUES tuple to a full row in declared-column
// order: with an explicit column list, values map onto those columns by
// name and every other column falls back to its default; with no column
// list, value fills the leading columns positionally and the remaining
// trailing columns fall back to their defaults.
func buildInsertRow(table types.Table, columns []string, values []ast.Expression) (types.Row, error) {
	row := make(types.Row, len(table.Columns))
	set := make([]bool, len(table.Columns))

	if len(columns) == 0 {
		if len(values) > len(table.Columns) {
			return nil, errs.Internal("table %q has %d columns, %d values given", table.Name, len(table.Columns), len(values))
		}
		for i, expr := range values {
			v, err := eval(expr)
			if err != nil {
				return nil, err
			}
			row[i] = v
			set[i] = true
		}
	} else {
		if len(columns) != len(values) {
			return nil, errs.Internal("column list has %d entries, %d values given", len(columns), len(values))
		}
		for i, name := range columns {
			idx := table.ColumnIndex(name)
			if idx < 0 {
				return nil, errs.Internal("column %q does not exist", name)
			}
			v, err := eval(values[i])
			if err != nil {
				return nil, err
			}
			row[idx] = v
			set[idx] = true
		}
	}

	for i, col := range table.Columns {
		if set[i] {
			continue
		}
		if !col.HasDefault {
			return nil, errs.Internal("column %q has no value and no default", col.Name)
		}
		row[i] = col.Default
	}

	return row, nil
}

// typeCheckRow verifies every column's value matches its declared datatype
// (Null only where nullable), in column order.
func typeCheckRow(table types.Table, row types.Row) error {
	for i, col := range table.Columns {
		v := row[i]
		if v.IsNull() {
			if !col.Nullable {
				return errs.Internal("column %q is not nullable", col.Name)
			}
			continue
		}
		if !col.Datatype.Matches(v) {
			return errs.Internal("column %q expects %s, got %s", col.Name, col.Datatype, v.TypeName())
		}
	}
	return nil
}

func execUpdate(n *plan.Update, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}

	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}

	_, pkPos, _ := table.PrimaryKeyColumn()
	count := 0
	for _, oldRow := range src.Rows {
		newRow := oldRow.Clone()
		for _, set := range n.SetClauses {
			idx := table.ColumnIndex(set.Column)
			if idx < 0 {
				return ResultSet{}, errs.Internal("column %q does not exist", set.Column)
			}
			v, err := eval(set.Value, scope{columns: src.Columns, row: oldRow})
			if err != nil {
				return ResultSet{}, err
			}
			newRow[idx] = v
		}
		if err := typeCheckRow(table, newRow); err != nil {
			return ResultSet{}, err
		}

		oldPk, newPk := oldRow[pkPos], newRow[pkPos]
		if !types.Equal(oldPk, newPk) {
			if _, ok, err := cat.GetRow(n.Table, newPk); err != nil {
				return ResultSet{}, err
			} else if ok {
				return ResultSet{}, errs.Internal("primary key %q conflicted", newPk.String())
			}
			if err := cat.DeleteRow(n.Table, oldPk); err != nil {
				return ResultSet{}, err
			}
			if err := cat.PutRow(n.Table, newPk, newRow); err != nil {
				return ResultSet{}, err
			}
		} else {
			if err := cat.PutRow(n.Table, newPk, newRow); err != nil {
				return ResultSet{}, err
			}
		}

		if types.Equal(oldPk, newPk) {
			err = updateIndexEntries(cat, table, n.Table, newPk, oldRow, newRow)
		} else if err = updateIndexEntries(cat, table, n.Table, oldPk, oldRow, nil); err == nil {
			err = updateIndexEntries(cat, table, n.Table, newPk, nil, newRow)
		}
		if err != nil {
			return ResultSet{}, err
		}
		count++
	}

	return ResultSet{Kind: KindUpdate, Count: count}, nil
}

func execDelete(n *plan.Delete, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}

	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}

	_, pkPos, _ := table.PrimaryKeyColumn()
	count := 0
	for _, row := range src.Rows {
		pk := row[pkPos]
		if err := cat.DeleteRow(n.Table, pk); err != nil {
			return ResultSet{}, err
		}
		if err := updateIndexEntries(cat, table, n.Table, pk, row, nil); err != nil {
			return ResultSet{}, err
		}
		count++
	}

	return ResultSet{Kind: KindDelete, Count: count}, nil
}

// updateIndexEntries keeps every secondary-index posting list in sync with
// a row write: oldRow nil means an insert (add only), newRow nil means a
// delete (remove only), both present means an update (remove the old
// value's entry, add the new one, skipped per-column when unchanged).
func updateIndexEntries(cat *catalog.Catalog, table types.Table, tableName string, pk types.Value, oldRow, newRow types.Row) error {
	for i, col := range table.Columns {
		if !col.Index {
			continue
		}
		var oldVal, newVal types.Value
		if oldRow != nil {
			oldVal = oldRow[i]
		}
		if newRow != nil {
			newVal = newRow[i]
		}

		if oldRow != nil && newRow != nil && types.Equal(oldVal, newVal) {
			continue
		}
		if oldRow != nil {
			if err := cat.IndexRemove(tableName, col.Name, oldVal, pk); err != nil {
				return err
			}
		}
		if newRow != nil {
			if err := cat.IndexAdd(tableName, col.Name, newVal, pk); err != nil {
				return err
			}
		}
	}
	return nil
}
