package exec

import (
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execAggregate(n *plan.Aggregate, cat *catalog.Catalog) (ResultSet, error) {
	src, err := execNode(n.Source, cat)
	if err != nil {
		return ResultSet{}, err
	}

	var groupCol string
	var groupPos int = -1
	if n.GroupBy != nil {
		id, ok := n.GroupBy.(*ast.Identifier)
		if !ok {
			return ResultSet{}, errs.Internal("group by key must be a field reference")
		}
		groupCol = bareColumnName(id.Value)
		groupPos = columnIndex(src.Columns, groupCol)
		if groupPos < 0 {
			return ResultSet{}, errs.Internal("group by column %q does not exist", groupCol)
		}
	}

	var buckets []types.Row
	groups := map[uint64][]types.Row{}
	order := []uint64{}
	if groupPos >= 0 {
		for _, row := range src.Rows {
			key := row[groupPos].Hash()
			if _, ok := groups[key]; !ok {
				order = append(order, key)
				buckets = append(buckets, row)
			}
			groups[key] = append(groups[key], row)
		}
	} else {
		groups[0] = src.Rows
		order = []uint64{0}
		buckets = []types.Row{nil}
	}

	columns := make([]string, 0, len(n.Columns))
	rows := make([]types.Row, 0, len(order))

	for gi, key := range order {
		bucketRows := groups[key]
		groupValue := types.Value{}
		if groupPos >= 0 {
			groupValue = buckets[gi][groupPos]
		}

		row := make(types.Row, 0, len(n.Columns))
		for _, c := range n.Columns {
			switch e := c.Expr.(type) {
			case *ast.FunctionCall:
				var value types.Value
				if e.Star {
					if e.Function != "COUNT" {
						return ResultSet{}, errs.Internal("aggregate function %s does not accept *", e.Function)
					}
					value = types.NewInt(int64(len(bucketRows)))
				} else {
					if e.Argument == nil {
						return ResultSet{}, errs.Internal("aggregate function %s requires a column argument", e.Function)
					}
					col := bareColumnName(e.Argument.Value)
					var err error
					value, err = calculate(e.Function, col, src.Columns, bucketRows)
					if err != nil {
						return ResultSet{}, err
					}
				}
				if len(columns) < len(n.Columns) {
					name := c.Alias
					if name == "" {
						name = e.Function
					}
					columns = append(columns, name)
				}
				row = append(row, value)
			case *ast.Identifier:
				col := bareColumnName(e.Value)
				if groupPos < 0 || col != groupCol {
					return ResultSet{}, errs.Internal("column %q must appear in GROUP BY or an aggregate function", col)
				}
				if len(columns) < len(n.Columns) {
					name := c.Alias
					if name == "" {
						name = col
					}
					columns = append(columns, name)
				}
				row = append(row, groupValue)
			default:
				return ResultSet{}, errs.Internal("unexpected aggregate projection %s", c.Expr.String())
			}
		}
		rows = append(rows, row)
	}

	return ResultSet{Kind: KindScan, Columns: columns, Rows: rows}, nil
}

// calculate computes one aggregate function's value over bucketRows' col
// column, mirroring the reference Calculate trait's per-function rules.
func calculate(function, col string, columns []string, rows []types.Row) (types.Value, error) {
	pos := columnIndex(columns, col)
	if pos < 0 {
		return types.Value{}, errs.Internal("column %q does not exist", col)
	}

	switch function {
	case "COUNT":
		var n int64
		for _, row := range rows {
			if !row[pos].IsNull() {
				n++
			}
		}
		return types.NewInt(n), nil
	case "MIN":
		return minMax(rows, pos, true)
	case "MAX":
		return minMax(rows, pos, false)
	case "SUM":
		sum, any, err := sum(rows, pos, col)
		if err != nil {
			return types.Value{}, err
		}
		if !any {
			return types.Null, nil
		}
		return types.NewFloat(sum), nil
	case "AVG":
		s, any, err := sum(rows, pos, col)
		if err != nil {
			return types.Value{}, err
		}
		if !any {
			return types.Null, nil
		}
		var count int64
		for _, row := range rows {
			if !row[pos].IsNull() {
				count++
			}
		}
		return types.NewFloat(s / float64(count)), nil
	default:
		return types.Value{}, errs.Internal("unknown aggregate function %q", function)
	}
}

func minMax(rows []types.Row, pos int, wantMin bool) (types.Value, error) {
	best := types.Value{}
	found := false
	for _, row := range rows {
		v := row[pos]
		if v.IsNull() {
			continue
		}
		if !found {
			best = v
			found = true
			continue
		}
		cmp, ok := types.Compare(v, best)
		if !ok {
			continue
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	if !found {
		return types.Null, nil
	}
	return best, nil
}

func sum(rows []types.Row, pos int, col string) (float64, bool, error) {
	var total float64
	var any bool
	for _, row := range rows {
		v := row[pos]
		if v.IsNull() {
			continue
		}
		if !v.Numeric() {
			return 0, false, errs.Internal("cannot calculate sum of column %q", col)
		}
		total += v.Float()
		any = true
	}
	return total, any, nil
}
