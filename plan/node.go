// Package plan lowers a parsed statement to a tree of Nodes the exec
// package walks to produce a ResultSet, the way the reference planner's
// Node enum sits between its parser and its executor.
package plan

import (
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/types"
)

// Node is one operator in a plan tree.
type Node interface {
	planNode()
}

// ProjectionColumn is one `(expression, alias)` entry shared by Projection
// and Aggregate, mirroring the reference planner's reuse of the same
// select-list shape in both places.
type ProjectionColumn struct {
	Expr  ast.Expression
	Alias string
}

// Scan reads every row of Table, keeping only those for which Filter (when
// non-nil) evaluates to Bool(true).
type Scan struct {
	Table  string
	Filter ast.Expression
}

// PkIndex looks a single row up by primary key.
type PkIndex struct {
	Table string
	Value ast.Expression
}

// ScanIndex looks up every row whose Column equals Value via a secondary
// index.
type ScanIndex struct {
	Table  string
	Column string
	Value  ast.Expression
}

// Projection narrows and renames the columns of Source's output.
type Projection struct {
	Source  Node
	Columns []ProjectionColumn
}

// Filter keeps only the rows of Source for which Condition evaluates to
// Bool(true); used both for WHERE applied above a join and, in general, any
// post-scan filter.
type Filter struct {
	Source    Node
	Condition ast.Expression
}

// Having is a Filter applied after Aggregate.
type Having struct {
	Source    Node
	Condition ast.Expression
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr       ast.Expression
	Descending bool
}

// OrderBy stably sorts Source's rows.
type OrderBy struct {
	Source Node
	Items  []OrderByItem
}

// Offset skips the first N rows of Source.
type Offset struct {
	Source Node
	Offset int64
}

// Limit takes at most N rows of Source.
type Limit struct {
	Source Node
	Limit  int64
}

// NestedLoopJoin joins Left and Right by Cartesian product, evaluating
// Condition (if non-nil) per pair; Cartesian product when Condition is nil.
type NestedLoopJoin struct {
	Left, Right Node
	Condition   ast.Expression
	Outer       bool
}

// HashJoin joins Left and Right on an equality condition (`Field = Field`)
// by building a hash map over Right.
type HashJoin struct {
	Left, Right Node
	Condition   ast.Expression
	Outer       bool
}

// Aggregate buckets Source's rows by GroupBy's value (or a single implicit
// bucket if GroupBy is nil) and computes Columns — each either a
// Function(name, column) call or a bare grouping Field — per bucket.
type Aggregate struct {
	Source  Node
	Columns []ProjectionColumn
	GroupBy ast.Expression
}

// Insert appends rows to Table. Columns is empty for a positional insert.
type Insert struct {
	Table   string
	Columns []string
	Values  [][]ast.Expression
}

// SetClause is one `column = expr` assignment in an UPDATE.
type SetClause struct {
	Column string
	Value  ast.Expression
}

// Update applies SetClauses to every row Source yields.
type Update struct {
	Table      string
	Source     Node
	SetClauses []SetClause
}

// Delete removes every row Source yields.
type Delete struct {
	Table  string
	Source Node
}

// CreateTable persists Schema as a new catalog entry.
type CreateTable struct {
	Schema types.Table
}

// DropTable removes a catalog entry and all its rows.
type DropTable struct {
	Table string
}

// TableSchema renders one table's schema as text.
type TableSchema struct {
	Table string
}

// TableNames lists every table name in the catalog.
type TableNames struct{}

func (*Scan) planNode()            {}
func (*PkIndex) planNode()         {}
func (*ScanIndex) planNode()       {}
func (*Projection) planNode()      {}
func (*Filter) planNode()          {}
func (*Having) planNode()          {}
func (*OrderBy) planNode()         {}
func (*Offset) planNode()          {}
func (*Limit) planNode()           {}
func (*NestedLoopJoin) planNode()  {}
func (*HashJoin) planNode()        {}
func (*Aggregate) planNode()       {}
func (*Insert) planNode()          {}
func (*Update) planNode()          {}
func (*Delete) planNode()          {}
func (*CreateTable) planNode()     {}
func (*DropTable) planNode()       {}
func (*TableSchema) planNode()     {}
func (*TableNames) planNode()      {}
