package plan

import (
	"strings"

	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/types"
)

var datatypeByName = map[string]types.Datatype{
	"INT":    types.Int,
	"FLOAT":  types.Float,
	"BOOL":   types.Bool,
	"STRING": types.Str,
}

// Build lowers one parsed statement to a plan tree, looking up table schemas
// in cat where access-path selection or default normalization needs them.
// BEGIN/COMMIT/ROLLBACK/EXPLAIN/FLUSH are not plan nodes; callers must
// intercept them before calling Build (the session layer does this).
func Build(stmt ast.Statement, cat *catalog.Catalog) (Node, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		return buildCreateTable(s)
	case *ast.DropTableStatement:
		return &DropTable{Table: s.Name}, nil
	case *ast.InsertStatement:
		return &Insert{Table: s.Table, Columns: s.Columns, Values: s.Values}, nil
	case *ast.SelectStatement:
		return buildSelect(s, cat)
	case *ast.UpdateStatement:
		return buildUpdate(s, cat)
	case *ast.DeleteStatement:
		return buildDelete(s, cat)
	case *ast.ShowTablesStatement:
		return &TableNames{}, nil
	case *ast.ShowTableStatement:
		return &TableSchema{Table: s.Name}, nil
	default:
		return nil, errs.Internal("plan: unexpected statement %T", stmt)
	}
}

func buildCreateTable(s *ast.CreateTableStatement) (Node, error) {
	cols := make([]types.Column, len(s.Columns))
	for i, cd := range s.Columns {
		dt, ok := datatypeByName[cd.Datatype]
		if !ok {
			return nil, errs.Internal("plan: unknown column datatype %q", cd.Datatype)
		}

		nullable := cd.Nullable
		if !cd.NullableSet {
			nullable = !cd.PrimaryKey
		}

		var def types.Value
		hasDefault := cd.HasDefault
		if hasDefault {
			v, err := literalToValue(cd.Default)
			if err != nil {
				return nil, err
			}
			def = v
		} else if nullable {
			def = types.Null
			hasDefault = true
		}

		cols[i] = types.Column{
			Name:       cd.Name,
			Datatype:   dt,
			Nullable:   nullable,
			Default:    def,
			HasDefault: hasDefault,
			PrimaryKey: cd.PrimaryKey,
			Index:      cd.Index && !cd.PrimaryKey,
		}
	}

	table := types.Table{Name: s.Name, Columns: cols}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &CreateTable{Schema: table}, nil
}

func buildSelect(s *ast.SelectStatement, cat *catalog.Catalog) (Node, error) {
	node, err := buildFrom(s.From, s.Where, cat)
	if err != nil {
		return nil, err
	}

	hasAgg := len(s.GroupBy) > 0
	for _, c := range s.Columns {
		if _, ok := c.Expression.(*ast.FunctionCall); ok {
			hasAgg = true
			break
		}
	}

	if hasAgg {
		var groupBy ast.Expression
		if len(s.GroupBy) > 0 {
			groupBy = s.GroupBy[0]
		}
		cols := make([]ProjectionColumn, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = ProjectionColumn{Expr: c.Expression, Alias: c.Alias}
		}
		node = &Aggregate{Source: node, Columns: cols, GroupBy: groupBy}
	}

	if s.Having != nil {
		node = &Having{Source: node, Condition: s.Having}
	}

	if len(s.OrderBy) > 0 {
		items := make([]OrderByItem, len(s.OrderBy))
		for i, o := range s.OrderBy {
			items[i] = OrderByItem{Expr: o.Expression, Descending: o.Descending}
		}
		node = &OrderBy{Source: node, Items: items}
	}

	if s.Offset != nil {
		n, err := literalToInt(s.Offset)
		if err != nil {
			return nil, err
		}
		node = &Offset{Source: node, Offset: n}
	}

	if s.Limit != nil {
		n, err := literalToInt(s.Limit)
		if err != nil {
			return nil, err
		}
		node = &Limit{Source: node, Limit: n}
	}

	allColumns := len(s.Columns) == 1 && s.Columns[0].AllColumns

	if len(s.Columns) > 0 && !hasAgg && !allColumns {
		cols := make([]ProjectionColumn, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = ProjectionColumn{Expr: c.Expression, Alias: c.Alias}
		}
		node = &Projection{Source: node, Columns: cols}
	}

	return node, nil
}

// buildFrom builds the scan/join tree for a SELECT's FROM clause. A plain
// table reference gets access-path selection applied to where (when where
// is a single equality on that table's primary key or an indexed column);
// a join tree leaves its leaves unfiltered and where is applied once, as a
// Filter, above the whole join.
func buildFrom(from ast.TableReference, where ast.Expression, cat *catalog.Catalog) (Node, error) {
	if from == nil {
		return nil, nil
	}

	if tn, ok := from.(*ast.TableName); ok {
		return buildTableScan(tn.Name, where, cat)
	}

	node, err := buildJoin(from)
	if err != nil {
		return nil, err
	}
	if where != nil {
		node = &Filter{Source: node, Condition: where}
	}
	return node, nil
}

func buildJoin(ref ast.TableReference) (Node, error) {
	switch r := ref.(type) {
	case *ast.TableName:
		return &Scan{Table: r.Name}, nil
	case *ast.JoinClause:
		left, right, joinType := r.Left, r.Right, r.Type
		if joinType == "RIGHT" {
			left, right, joinType = right, left, "LEFT"
		}

		leftNode, err := buildJoin(left)
		if err != nil {
			return nil, err
		}
		rightNode, err := buildJoin(right)
		if err != nil {
			return nil, err
		}

		if joinType == "CROSS" {
			return &NestedLoopJoin{Left: leftNode, Right: rightNode, Condition: r.Condition, Outer: false}, nil
		}
		return &HashJoin{Left: leftNode, Right: rightNode, Condition: r.Condition, Outer: joinType != "INNER"}, nil
	default:
		return nil, errs.Internal("plan: unexpected table reference %T", ref)
	}
}

// buildTableScan applies access-path selection for a single-table FROM
// clause: an equality on the primary key becomes PkIndex, an equality on an
// indexed column becomes ScanIndex, anything else stays a Scan carrying
// where (nil or not) as its filter.
func buildTableScan(table string, where ast.Expression, cat *catalog.Catalog) (Node, error) {
	infix, ok := where.(*ast.InfixExpression)
	if !ok || infix.Operator != "=" {
		return &Scan{Table: table, Filter: where}, nil
	}

	col, value, ok := splitEquality(infix)
	if !ok {
		return &Scan{Table: table, Filter: where}, nil
	}

	schema, err := cat.MustGetTable(table)
	if err != nil {
		return nil, err
	}
	idx := schema.ColumnIndex(col)
	if idx < 0 {
		return &Scan{Table: table, Filter: where}, nil
	}
	column := schema.Columns[idx]

	switch {
	case column.PrimaryKey:
		return &PkIndex{Table: table, Value: value}, nil
	case column.Index:
		return &ScanIndex{Table: table, Column: col, Value: value}, nil
	default:
		return &Scan{Table: table, Filter: where}, nil
	}
}

// splitEquality extracts (column, constant) from `col = const` or
// `const = col`; ok is false if infix is not exactly that shape.
func splitEquality(infix *ast.InfixExpression) (col string, value ast.Expression, ok bool) {
	if name, isField := fieldName(infix.Left); isField && isLiteral(infix.Right) {
		return name, infix.Right, true
	}
	if name, isField := fieldName(infix.Right); isField && isLiteral(infix.Left) {
		return name, infix.Left, true
	}
	return "", nil, false
}

// fieldName returns the column name an Identifier refers to, dropping any
// `table.` qualifier prefix.
func fieldName(e ast.Expression) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	name := id.Value
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name, true
}

func isLiteral(e ast.Expression) bool {
	switch e.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral, *ast.BoolLiteral, *ast.NullLiteral:
		return true
	default:
		return false
	}
}

func buildUpdate(s *ast.UpdateStatement, cat *catalog.Catalog) (Node, error) {
	scan, err := buildTableScan(s.Table, s.Where, cat)
	if err != nil {
		return nil, err
	}
	sets := make([]SetClause, len(s.SetClauses))
	for i, sc := range s.SetClauses {
		sets[i] = SetClause{Column: sc.Column, Value: sc.Value}
	}
	return &Update{Table: s.Table, Source: scan, SetClauses: sets}, nil
}

func buildDelete(s *ast.DeleteStatement, cat *catalog.Catalog) (Node, error) {
	scan, err := buildTableScan(s.Table, s.Where, cat)
	if err != nil {
		return nil, err
	}
	return &Delete{Table: s.Table, Source: scan}, nil
}

// literalToValue evaluates a constant expression (the only kind allowed in
// a column default, a primary-key lookup, or a LIMIT/OFFSET) to a Value.
func literalToValue(e ast.Expression) (types.Value, error) {
	switch lit := e.(type) {
	case *ast.IntegerLiteral:
		return types.NewInt(lit.Value), nil
	case *ast.FloatLiteral:
		return types.NewFloat(lit.Value), nil
	case *ast.StringLiteral:
		return types.NewStr(lit.Value), nil
	case *ast.BoolLiteral:
		return types.NewBool(lit.Value), nil
	case *ast.NullLiteral:
		return types.Null, nil
	default:
		return types.Value{}, errs.Internal("plan: expected a constant, found %s", e.String())
	}
}

func literalToInt(e ast.Expression) (int64, error) {
	v, err := literalToValue(e)
	if err != nil {
		return 0, err
	}
	if v.Kind != types.KindInt {
		return 0, errs.Internal("plan: expected an integer, found %s", e.String())
	}
	return v.Int, nil
}
