package exec

import (
	"math"

	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execScan(n *plan.Scan, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}
	columns := columnNames(table)

	rows, err := cat.ScanRows(n.Table)
	if err != nil {
		return ResultSet{}, err
	}

	if n.Filter == nil {
		return ResultSet{Kind: KindScan, Columns: columns, Rows: rows}, nil
	}

	out := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := evalFilter(n.Filter, scope{columns: columns, row: row})
		if err != nil {
			return ResultSet{}, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return ResultSet{Kind: KindScan, Columns: columns, Rows: out}, nil
}

func execPkIndex(n *plan.PkIndex, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}
	columns := columnNames(table)

	pk, err := eval(n.Value)
	if err != nil {
		return ResultSet{}, err
	}
	pk = coerceWholeFloatToInt(pk)

	row, ok, err := cat.GetRow(n.Table, pk)
	if err != nil {
		return ResultSet{}, err
	}
	if !ok {
		return ResultSet{Kind: KindScan, Columns: columns, Rows: nil}, nil
	}
	return ResultSet{Kind: KindScan, Columns: columns, Rows: []types.Row{row}}, nil
}

func execScanIndex(n *plan.ScanIndex, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}
	columns := columnNames(table)

	value, err := eval(n.Value)
	if err != nil {
		return ResultSet{}, err
	}

	pks, err := cat.IndexLookup(n.Table, n.Column, value)
	if err != nil {
		return ResultSet{}, err
	}

	rows := make([]types.Row, 0, len(pks))
	for _, pk := range pks {
		row, ok, err := cat.GetRow(n.Table, pk)
		if err != nil {
			return ResultSet{}, err
		}
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return ResultSet{Kind: KindScan, Columns: columns, Rows: rows}, nil
}

// coerceWholeFloatToInt turns a Float with a zero fractional part into the
// equal Integer, so `WHERE pk = 3.0` finds the row written as `pk = 3`.
func coerceWholeFloatToInt(v types.Value) types.Value {
	if v.Kind != types.KindFloat {
		return v
	}
	if math.Trunc(v.Flt) != v.Flt {
		return v
	}
	return types.NewInt(int64(v.Flt))
}

func columnNames(table types.Table) []string {
	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	return names
}
