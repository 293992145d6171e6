package exec

import (
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execProjection(n *plan.Projection, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}

	positions := make([]int, len(n.Columns))
	newColumns := make([]string, len(n.Columns))
	for i, c := range n.Columns {
		if c.Expr == nil {
			return ResultSet{}, errs.Internal("projection column * is not a field reference")
		}
		id, ok := c.Expr.(*ast.Identifier)
		if !ok {
			return ResultSet{}, errs.Internal("projection column %s is not a field reference", c.Expr.String())
		}
		pos := columnIndex(src.Columns, id.Value)
		if pos < 0 {
			return ResultSet{}, errs.Internal("column %q does not exist", id.Value)
		}
		positions[i] = pos
		if c.Alias != "" {
			newColumns[i] = c.Alias
		} else {
			newColumns[i] = bareColumnName(id.Value)
		}
	}

	rows := make([]types.Row, len(src.Rows))
	for i, row := range src.Rows {
		out := make(types.Row, len(positions))
		for j, pos := range positions {
			out[j] = row[pos]
		}
		rows[i] = out
	}
	return ResultSet{Kind: KindScan, Columns: newColumns, Rows: rows}, nil
}

func columnIndex(columns []string, name string) int {
	bare := bareColumnName(name)
	for i, c := range columns {
		if c == bare {
			return i
		}
	}
	return -1
}

func execFilter(n *plan.Filter, cat *catalog.Catalog) (ResultSet, error) {
	return filterBy(n.Source, n.Condition, cat)
}

func execHaving(n *plan.Having, cat *catalog.Catalog) (ResultSet, error) {
	return filterBy(n.Source, n.Condition, cat)
}

func filterBy(source plan.Node, condition ast.Expression, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(source, cat)
	if err != nil {
		return ResultSet{}, err
	}
	out := make([]types.Row, 0, len(src.Rows))
	for _, row := range src.Rows {
		ok, err := evalFilter(condition, scope{columns: src.Columns, row: row})
		if err != nil {
			return ResultSet{}, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return ResultSet{Kind: KindScan, Columns: src.Columns, Rows: out}, nil
}
