package exec

import (
	"strings"

	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/types"
)

// scope pairs one side of a row pair with the column names it is indexed
// by, the way the reference executor's (columns, row) tuples do.
type scope struct {
	columns []string
	row     types.Row
}

func (s scope) lookup(name string) (types.Value, bool) {
	bare := bareColumnName(name)
	for i, c := range s.columns {
		if c == bare {
			return s.row[i], true
		}
	}
	return types.Value{}, false
}

// bareColumnName drops a `table.` qualifier prefix; Scan's output columns
// carry no table qualifier of their own, so a qualified reference is
// resolved on name alone.
func bareColumnName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// eval evaluates expr against one or more scopes. A Field reference is
// resolved against the first scope that has a matching column: the left
// scope first, falling through to the right scope for a join condition's
// right-side reference.
func eval(expr ast.Expression, scopes ...scope) (types.Value, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return types.NewInt(e.Value), nil
	case *ast.FloatLiteral:
		return types.NewFloat(e.Value), nil
	case *ast.StringLiteral:
		return types.NewStr(e.Value), nil
	case *ast.BoolLiteral:
		return types.NewBool(e.Value), nil
	case *ast.NullLiteral:
		return types.Null, nil
	case *ast.Identifier:
		for _, s := range scopes {
			if v, ok := s.lookup(e.Value); ok {
				return v, nil
			}
		}
		return types.Value{}, errs.Internal("column %q does not exist", e.Value)
	case *ast.InfixExpression:
		return evalInfix(e, scopes...)
	default:
		return types.Value{}, errs.Internal("cannot evaluate expression %s", e.String())
	}
}

// evalInfix evaluates a comparison. Null on either side yields Null
// (excluded by a Bool(true)-only filter, never an error); Int/Float mix via
// Int->Float promotion; any other cross-kind pair is an error.
func evalInfix(e *ast.InfixExpression, scopes ...scope) (types.Value, error) {
	left, err := eval(e.Left, scopes...)
	if err != nil {
		return types.Value{}, err
	}
	right, err := eval(e.Right, scopes...)
	if err != nil {
		return types.Value{}, err
	}

	if left.IsNull() || right.IsNull() {
		return types.Null, nil
	}

	if !left.Numeric() || !right.Numeric() {
		if left.Kind != right.Kind {
			return types.Value{}, errs.Internal("cannot compare %s and %s", left.TypeName(), right.TypeName())
		}
	}

	cmp, ok := types.Compare(left, right)
	if !ok {
		return types.Value{}, errs.Internal("cannot compare %s and %s", left.TypeName(), right.TypeName())
	}
	return types.NewBool(compareOp(e.Operator, cmp)), nil
}

func compareOp(op string, cmp int) bool {
	switch op {
	case "=":
		return cmp == 0
	case "!=", "<>":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

// evalFilter evaluates cond against scopes and reports whether the row
// passes: Bool(true) passes, Null and Bool(false) do not, anything else is
// an error (the filter expression must be a comparison).
func evalFilter(cond ast.Expression, scopes ...scope) (bool, error) {
	v, err := eval(cond, scopes...)
	if err != nil {
		return false, err
	}
	switch {
	case v.IsNull():
		return false, nil
	case v.Kind == types.KindBool:
		return v.Bool, nil
	default:
		return false, errs.Internal("filter expression must evaluate to a boolean, got %s", v.TypeName())
	}
}
