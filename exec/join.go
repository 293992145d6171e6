package exec

import (
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execNestedLoopJoin(n *plan.NestedLoopJoin, cat *catalog.Catalog) (ResultSet, error) {
	left, err := execNode(n.Left, cat)
	if err != nil {
		return ResultSet{}, err
	}
	right, err := execNode(n.Right, cat)
	if err != nil {
		return ResultSet{}, err
	}

	columns := append(append([]string{}, left.Columns...), right.Columns...)
	var rows []types.Row

	for _, lrow := range left.Rows {
		matched := false
		for _, rrow := range right.Rows {
			if n.Condition != nil {
				v, err := eval(n.Condition,
					scope{columns: left.Columns, row: lrow},
					scope{columns: right.Columns, row: rrow},
				)
				if err != nil {
					return ResultSet{}, err
				}
				switch {
				case v.IsNull():
					continue
				case v.Kind == types.KindBool && !v.Bool:
					continue
				case v.Kind != types.KindBool:
					return ResultSet{}, errs.Internal("join condition must evaluate to a boolean")
				}
			}
			matched = true
			row := make(types.Row, 0, len(lrow)+len(rrow))
			row = append(row, lrow...)
			row = append(row, rrow...)
			rows = append(rows, row)
		}
		if n.Outer && !matched {
			row := make(types.Row, 0, len(lrow)+len(right.Columns))
			row = append(row, lrow...)
			for range right.Columns {
				row = append(row, types.Null)
			}
			rows = append(rows, row)
		}
	}

	return ResultSet{Kind: KindScan, Columns: columns, Rows: rows}, nil
}

func execHashJoin(n *plan.HashJoin, cat *catalog.Catalog) (ResultSet, error) {
	left, err := execNode(n.Left, cat)
	if err != nil {
		return ResultSet{}, err
	}
	right, err := execNode(n.Right, cat)
	if err != nil {
		return ResultSet{}, err
	}

	lcol, rcol, ok := parseJoinCondition(n.Condition)
	if !ok {
		return ResultSet{}, errs.Internal("join condition must be of the form field = field")
	}

	leftPos := columnIndex(left.Columns, lcol)
	if leftPos < 0 {
		return ResultSet{}, errs.Internal("column %q does not exist", lcol)
	}
	rightPos := columnIndex(right.Columns, rcol)
	if rightPos < 0 {
		return ResultSet{}, errs.Internal("column %q does not exist", rcol)
	}

	buckets := make(map[uint64][]types.Row)
	for _, rrow := range right.Rows {
		h := rrow[rightPos].Hash()
		buckets[h] = append(buckets[h], rrow)
	}

	columns := append(append([]string{}, left.Columns...), right.Columns...)
	var rows []types.Row

	for _, lrow := range left.Rows {
		key := lrow[leftPos]
		matches := matchingRows(buckets[key.Hash()], rightPos, key)
		if len(matches) == 0 {
			if n.Outer {
				row := make(types.Row, 0, len(lrow)+len(right.Columns))
				row = append(row, lrow...)
				for range right.Columns {
					row = append(row, types.Null)
				}
				rows = append(rows, row)
			}
			continue
		}
		for _, rrow := range matches {
			row := make(types.Row, 0, len(lrow)+len(rrow))
			row = append(row, lrow...)
			row = append(row, rrow...)
			rows = append(rows, row)
		}
	}

	return ResultSet{Kind: KindScan, Columns: columns, Rows: rows}, nil
}

// matchingRows filters a hash bucket by exact equality, guarding against
// hash collisions between distinct values.
func matchingRows(bucket []types.Row, pos int, key types.Value) []types.Row {
	var out []types.Row
	for _, row := range bucket {
		if types.Equal(row[pos], key) {
			out = append(out, row)
		}
	}
	return out
}

// parseJoinCondition extracts (leftColumn, rightColumn) from an
// `Identifier = Identifier` condition tree.
func parseJoinCondition(cond ast.Expression) (string, string, bool) {
	infix, ok := cond.(*ast.InfixExpression)
	if !ok || infix.Operator != "=" {
		return "", "", false
	}
	left, ok := infix.Left.(*ast.Identifier)
	if !ok {
		return "", "", false
	}
	right, ok := infix.Right.(*ast.Identifier)
	if !ok {
		return "", "", false
	}
	return bareColumnName(left.Value), bareColumnName(right.Value), true
}
