// Package ast defines the Abstract Syntax Tree nodes for kvsql's SQL dialect.
package ast

import (
	"strings"

	"github.com/kvsql/kvsql/token"
)

// Node represents a node in the AST.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents a statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression node.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every parsed input; each statement ends in a
// semicolon.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString(";\n")
	}
	return out.String()
}

// -----------------------------------------------------------------------------
// Identifiers and literals
// -----------------------------------------------------------------------------

// Identifier represents a column or table reference.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral represents an integer constant.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

// FloatLiteral represents a floating-point constant.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// StringLiteral represents a quoted string constant.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return "'" + sl.Value + "'" }

// BoolLiteral represents TRUE or FALSE.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BoolLiteral) expressionNode()      {}
func (bl *BoolLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BoolLiteral) String() string {
	if bl.Value {
		return "TRUE"
	}
	return "FALSE"
}

// NullLiteral represents NULL.
type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "NULL" }

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

// InfixExpression represents a binary comparison (a = b, a >= b, ...).
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// FunctionCall represents a call such as COUNT(x) or UPPER(name). The
// grammar only admits a single identifier argument.
type FunctionCall struct {
	Token    token.Token
	Function string
	Argument *Identifier // nil for COUNT(*)
	Star     bool        // true for COUNT(*)
}

func (fc *FunctionCall) expressionNode()      {}
func (fc *FunctionCall) TokenLiteral() string { return fc.Token.Literal }
func (fc *FunctionCall) String() string {
	if fc.Star {
		return fc.Function + "(*)"
	}
	arg := ""
	if fc.Argument != nil {
		arg = fc.Argument.Value
	}
	return fc.Function + "(" + arg + ")"
}

// -----------------------------------------------------------------------------
// SELECT statement
// -----------------------------------------------------------------------------

// SelectColumn represents one entry in a SELECT projection list.
type SelectColumn struct {
	Expression Expression
	Alias      string // empty if no AS clause
	AllColumns bool   // SELECT *
}

func (sc SelectColumn) String() string {
	if sc.AllColumns {
		return "*"
	}
	s := sc.Expression.String()
	if sc.Alias != "" {
		s += " AS " + sc.Alias
	}
	return s
}

// TableReference is a FROM-clause operand: either a bare table name or a
// join of two table references.
type TableReference interface {
	Node
	tableRefNode()
}

// TableName is a simple table reference, optionally aliased.
type TableName struct {
	Token token.Token
	Name  string
	Alias string
}

func (tn *TableName) tableRefNode()        {}
func (tn *TableName) TokenLiteral() string { return tn.Token.Literal }
func (tn *TableName) String() string {
	if tn.Alias != "" {
		return tn.Name + " AS " + tn.Alias
	}
	return tn.Name
}

// JoinClause represents a two-way join; Type is one of CROSS, INNER, LEFT,
// RIGHT. Condition is nil only for CROSS.
type JoinClause struct {
	Token     token.Token
	Type      string
	Left      TableReference
	Right     TableReference
	Condition Expression
}

func (jc *JoinClause) tableRefNode()        {}
func (jc *JoinClause) TokenLiteral() string { return jc.Token.Literal }
func (jc *JoinClause) String() string {
	s := jc.Left.String() + " " + jc.Type + " JOIN " + jc.Right.String()
	if jc.Condition != nil {
		s += " ON " + jc.Condition.String()
	}
	return s
}

// OrderByItem is a single ORDER BY key.
type OrderByItem struct {
	Expression Expression
	Descending bool
}

func (ob *OrderByItem) String() string {
	if ob.Descending {
		return ob.Expression.String() + " DESC"
	}
	return ob.Expression.String() + " ASC"
}

// SelectStatement represents a SELECT query.
type SelectStatement struct {
	Token   token.Token
	Columns []SelectColumn
	From    TableReference // nil for FROM-less SELECT, e.g. SELECT 1
	Where   Expression
	GroupBy []Expression
	Having  Expression
	OrderBy []*OrderByItem
	Limit   Expression
	Offset  Expression
}

func (ss *SelectStatement) statementNode()       {}
func (ss *SelectStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SelectStatement) String() string {
	var out strings.Builder
	out.WriteString("SELECT ")

	cols := make([]string, len(ss.Columns))
	for i, c := range ss.Columns {
		cols[i] = c.String()
	}
	out.WriteString(strings.Join(cols, ", "))

	if ss.From != nil {
		out.WriteString(" FROM ")
		out.WriteString(ss.From.String())
	}
	if ss.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(ss.Where.String())
	}
	if len(ss.GroupBy) > 0 {
		var groups []string
		for _, g := range ss.GroupBy {
			groups = append(groups, g.String())
		}
		out.WriteString(" GROUP BY ")
		out.WriteString(strings.Join(groups, ", "))
	}
	if ss.Having != nil {
		out.WriteString(" HAVING ")
		out.WriteString(ss.Having.String())
	}
	if len(ss.OrderBy) > 0 {
		var orders []string
		for _, o := range ss.OrderBy {
			orders = append(orders, o.String())
		}
		out.WriteString(" ORDER BY ")
		out.WriteString(strings.Join(orders, ", "))
	}
	if ss.Limit != nil {
		out.WriteString(" LIMIT ")
		out.WriteString(ss.Limit.String())
	}
	if ss.Offset != nil {
		out.WriteString(" OFFSET ")
		out.WriteString(ss.Offset.String())
	}
	return out.String()
}

// -----------------------------------------------------------------------------
// DDL statements
// -----------------------------------------------------------------------------

// ColumnDef describes a single column in a CREATE TABLE statement.
type ColumnDef struct {
	Name        string
	Datatype    string // INT, FLOAT, BOOL, STRING (canonical, post-alias)
	PrimaryKey  bool
	Nullable    bool
	NullableSet bool // true once NULL or NOT NULL was seen explicitly
	Default     Expression
	HasDefault  bool
	Index       bool
}

func (cd *ColumnDef) String() string {
	var out strings.Builder
	out.WriteString(cd.Name)
	out.WriteString(" ")
	out.WriteString(cd.Datatype)
	if cd.PrimaryKey {
		out.WriteString(" PRIMARY KEY")
	}
	if cd.NullableSet {
		if cd.Nullable {
			out.WriteString(" NULL")
		} else {
			out.WriteString(" NOT NULL")
		}
	}
	if cd.HasDefault {
		out.WriteString(" DEFAULT ")
		out.WriteString(cd.Default.String())
	}
	if cd.Index {
		out.WriteString(" INDEX")
	}
	return out.String()
}

// CreateTableStatement represents CREATE TABLE name (col defs...).
type CreateTableStatement struct {
	Token   token.Token
	Name    string
	Columns []*ColumnDef
}

func (ct *CreateTableStatement) statementNode()       {}
func (ct *CreateTableStatement) TokenLiteral() string { return ct.Token.Literal }
func (ct *CreateTableStatement) String() string {
	var out strings.Builder
	out.WriteString("CREATE TABLE ")
	out.WriteString(ct.Name)
	out.WriteString(" (")
	cols := make([]string, len(ct.Columns))
	for i, c := range ct.Columns {
		cols[i] = c.String()
	}
	out.WriteString(strings.Join(cols, ", "))
	out.WriteString(")")
	return out.String()
}

// DropTableStatement represents DROP TABLE name.
type DropTableStatement struct {
	Token token.Token
	Name  string
}

func (dt *DropTableStatement) statementNode()       {}
func (dt *DropTableStatement) TokenLiteral() string { return dt.Token.Literal }
func (dt *DropTableStatement) String() string       { return "DROP TABLE " + dt.Name }

// -----------------------------------------------------------------------------
// DML statements
// -----------------------------------------------------------------------------

// InsertStatement represents INSERT INTO name (cols) VALUES (...), (...).
type InsertStatement struct {
	Token   token.Token
	Table   string
	Columns []string // empty means positional (no explicit column list)
	Values  [][]Expression
}

func (is *InsertStatement) statementNode()       {}
func (is *InsertStatement) TokenLiteral() string { return is.Token.Literal }
func (is *InsertStatement) String() string {
	var out strings.Builder
	out.WriteString("INSERT INTO ")
	out.WriteString(is.Table)
	if len(is.Columns) > 0 {
		out.WriteString(" (")
		out.WriteString(strings.Join(is.Columns, ", "))
		out.WriteString(")")
	}
	out.WriteString(" VALUES ")
	rows := make([]string, len(is.Values))
	for i, row := range is.Values {
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = v.String()
		}
		rows[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	out.WriteString(strings.Join(rows, ", "))
	return out.String()
}

// SetClause represents one `col = expr` assignment in an UPDATE statement.
type SetClause struct {
	Column string
	Value  Expression
}

// UpdateStatement represents UPDATE name SET col = expr, ... [WHERE ...].
type UpdateStatement struct {
	Token      token.Token
	Table      string
	SetClauses []*SetClause
	Where      Expression
}

func (us *UpdateStatement) statementNode()       {}
func (us *UpdateStatement) TokenLiteral() string { return us.Token.Literal }
func (us *UpdateStatement) String() string {
	var out strings.Builder
	out.WriteString("UPDATE ")
	out.WriteString(us.Table)
	out.WriteString(" SET ")
	sets := make([]string, len(us.SetClauses))
	for i, s := range us.SetClauses {
		sets[i] = s.Column + " = " + s.Value.String()
	}
	out.WriteString(strings.Join(sets, ", "))
	if us.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(us.Where.String())
	}
	return out.String()
}

// DeleteStatement represents DELETE FROM name [WHERE ...].
type DeleteStatement struct {
	Token token.Token
	Table string
	Where Expression
}

func (ds *DeleteStatement) statementNode()       {}
func (ds *DeleteStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DeleteStatement) String() string {
	s := "DELETE FROM " + ds.Table
	if ds.Where != nil {
		s += " WHERE " + ds.Where.String()
	}
	return s
}

// -----------------------------------------------------------------------------
// Catalog / session statements
// -----------------------------------------------------------------------------

// ShowTablesStatement represents SHOW TABLES.
type ShowTablesStatement struct {
	Token token.Token
}

func (st *ShowTablesStatement) statementNode()       {}
func (st *ShowTablesStatement) TokenLiteral() string { return st.Token.Literal }
func (st *ShowTablesStatement) String() string       { return "SHOW TABLES" }

// ShowTableStatement represents SHOW TABLE name or DESCRIBE name.
type ShowTableStatement struct {
	Token token.Token
	Name  string
}

func (st *ShowTableStatement) statementNode()       {}
func (st *ShowTableStatement) TokenLiteral() string { return st.Token.Literal }
func (st *ShowTableStatement) String() string { return "SHOW TABLE " + st.Name }

// BeginStatement represents BEGIN.
type BeginStatement struct {
	Token token.Token
}

func (bs *BeginStatement) statementNode()       {}
func (bs *BeginStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BeginStatement) String() string       { return "BEGIN" }

// CommitStatement represents COMMIT.
type CommitStatement struct {
	Token token.Token
}

func (cs *CommitStatement) statementNode()       {}
func (cs *CommitStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *CommitStatement) String() string       { return "COMMIT" }

// RollbackStatement represents ROLLBACK.
type RollbackStatement struct {
	Token token.Token
}

func (rs *RollbackStatement) statementNode()       {}
func (rs *RollbackStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *RollbackStatement) String() string       { return "ROLLBACK" }

// ExplainStatement represents EXPLAIN stmt. The wrapped statement may not
// itself be EXPLAIN.
type ExplainStatement struct {
	Token     token.Token
	Statement Statement
}

func (es *ExplainStatement) statementNode()       {}
func (es *ExplainStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExplainStatement) String() string       { return "EXPLAIN " + es.Statement.String() }

// FlushStatement represents FLUSH.
type FlushStatement struct {
	Token token.Token
}

func (fs *FlushStatement) statementNode()       {}
func (fs *FlushStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FlushStatement) String() string       { return "FLUSH" }
