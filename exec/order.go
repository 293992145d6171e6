package exec

import (
	"sort"

	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execOrderBy(n *plan.OrderBy, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}

	positions := make([]int, len(n.Items))
	for i, item := range n.Items {
		id, ok := item.Expr.(*ast.Identifier)
		if !ok {
			return ResultSet{}, errs.Internal("order by key %s is not a field reference", item.Expr.String())
		}
		pos := columnIndex(src.Columns, id.Value)
		if pos < 0 {
			return ResultSet{}, errs.Internal("order by column %q does not exist", id.Value)
		}
		positions[i] = pos
	}

	rows := make([]types.Row, len(src.Rows))
	copy(rows, src.Rows)

	sort.SliceStable(rows, func(a, b int) bool {
		for i, pos := range positions {
			cmp, ok := types.Compare(rows[a][pos], rows[b][pos])
			if !ok || cmp == 0 {
				continue
			}
			if n.Items[i].Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return ResultSet{Kind: KindScan, Columns: src.Columns, Rows: rows}, nil
}

func execOffset(n *plan.Offset, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}
	off := n.Offset
	if off < 0 {
		off = 0
	}
	if int(off) >= len(src.Rows) {
		return ResultSet{Kind: KindScan, Columns: src.Columns, Rows: nil}, nil
	}
	return ResultSet{Kind: KindScan, Columns: src.Columns, Rows: src.Rows[off:]}, nil
}

func execLimit(n *plan.Limit, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}
	lim := n.Limit
	if lim < 0 {
		lim = 0
	}
	if int(lim) > len(src.Rows) {
		lim = int64(len(src.Rows))
	}
	return ResultSet{Kind: KindScan, Columns: src.Columns, Rows: src.Rows[:lim]}, nil
}
