// Package kvsql re-exports the lexer/parser/ast pipeline as a single
// parse entry point, the way a driver package typically wraps its own
// scanner/parser internals for external callers.
package kvsql

import (
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/lexer"
	"github.com/kvsql/kvsql/parser"
	"github.com/kvsql/kvsql/token"
)

// Parse parses SQL text and returns the program and any parse errors.
func Parse(input string) (*ast.Program, []string) {
	l := lexer.New(input)
	p := parser.New(l)
	program := p.ParseProgram()
	return program, p.Errors()
}

// Tokenize returns all tokens from the input, including a trailing EOF.
func Tokenize(input string) []token.Token {
	return lexer.Tokenize(input)
}

// Re-exported types for convenience, so callers need not import the
// ast/token packages directly for common cases.
type (
	Program    = ast.Program
	Statement  = ast.Statement
	Expression = ast.Expression
	Token      = token.Token
)

type (
	SelectStatement      = ast.SelectStatement
	InsertStatement      = ast.InsertStatement
	UpdateStatement      = ast.UpdateStatement
	DeleteStatement      = ast.DeleteStatement
	CreateTableStatement = ast.CreateTableStatement
	DropTableStatement   = ast.DropTableStatement
	ShowTablesStatement  = ast.ShowTablesStatement
	ShowTableStatement   = ast.ShowTableStatement
	BeginStatement       = ast.BeginStatement
	CommitStatement      = ast.CommitStatement
	RollbackStatement    = ast.RollbackStatement
	ExplainStatement     = ast.ExplainStatement
	FlushStatement       = ast.FlushStatement
)

type (
	Identifier      = ast.Identifier
	IntegerLiteral  = ast.IntegerLiteral
	FloatLiteral    = ast.FloatLiteral
	StringLiteral   = ast.StringLiteral
	BoolLiteral     = ast.BoolLiteral
	NullLiteral     = ast.NullLiteral
	InfixExpression = ast.InfixExpression
	FunctionCall    = ast.FunctionCall
)

type (
	ColumnDef      = ast.ColumnDef
	SelectColumn   = ast.SelectColumn
	TableName      = ast.TableName
	TableReference = ast.TableReference
	JoinClause     = ast.JoinClause
	OrderByItem    = ast.OrderByItem
	SetClause      = ast.SetClause
)

// Visitor is implemented by callers that want to inspect every node of a
// parsed program. Visit returns the Visitor to use for the node's
// children, or nil to stop descending into them.
type Visitor interface {
	Visit(node ast.Node) Visitor
}

// Walk traverses an AST in depth-first order, calling v.Visit at each
// node.
func Walk(v Visitor, node ast.Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			Walk(v, stmt)
		}
	case *ast.SelectStatement:
		for _, col := range n.Columns {
			Walk(v, col.Expression)
		}
		if n.From != nil {
			Walk(v, n.From)
		}
		if n.Where != nil {
			Walk(v, n.Where)
		}
		for _, g := range n.GroupBy {
			Walk(v, g)
		}
		if n.Having != nil {
			Walk(v, n.Having)
		}
		for _, ob := range n.OrderBy {
			Walk(v, ob.Expression)
		}
		if n.Limit != nil {
			Walk(v, n.Limit)
		}
		if n.Offset != nil {
			Walk(v, n.Offset)
		}
	case *ast.JoinClause:
		Walk(v, n.Left)
		Walk(v, n.Right)
		if n.Condition != nil {
			Walk(v, n.Condition)
		}
	case *ast.InsertStatement:
		for _, row := range n.Values {
			for _, val := range row {
				Walk(v, val)
			}
		}
	case *ast.UpdateStatement:
		for _, sc := range n.SetClauses {
			Walk(v, sc.Value)
		}
		if n.Where != nil {
			Walk(v, n.Where)
		}
	case *ast.DeleteStatement:
		if n.Where != nil {
			Walk(v, n.Where)
		}
	case *ast.ExplainStatement:
		Walk(v, n.Statement)
	case *ast.InfixExpression:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *ast.FunctionCall:
		if n.Argument != nil {
			Walk(v, n.Argument)
		}
	}
}

// Inspector collects every node of a parsed program for later lookup by
// type, without requiring callers to write their own Visitor.
type Inspector struct {
	nodes []ast.Node
}

type collector struct {
	insp *Inspector
}

func (c collector) Visit(node ast.Node) Visitor {
	c.insp.nodes = append(c.insp.nodes, node)
	return c
}

// NewInspector walks program and returns an Inspector over every node
// visited.
func NewInspector(program *ast.Program) *Inspector {
	insp := &Inspector{}
	Walk(collector{insp: insp}, program)
	return insp
}

// FindFunctionCalls returns every function call in the program, e.g. the
// COUNT(id) in a SELECT column list.
func (insp *Inspector) FindFunctionCalls() []*ast.FunctionCall {
	var calls []*ast.FunctionCall
	for _, node := range insp.nodes {
		if fc, ok := node.(*ast.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// FindSelectStatements returns every SELECT statement in the program,
// including ones nested under EXPLAIN.
func (insp *Inspector) FindSelectStatements() []*ast.SelectStatement {
	var stmts []*ast.SelectStatement
	for _, node := range insp.nodes {
		if ss, ok := node.(*ast.SelectStatement); ok {
			stmts = append(stmts, ss)
		}
	}
	return stmts
}
