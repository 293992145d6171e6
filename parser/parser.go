// Package parser implements a recursive-descent parser for kvsql's SQL
// dialect, with one token of lookahead and Pratt-style precedence climbing
// for the comparison-operator expression grammar.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/lexer"
	"github.com/kvsql/kvsql/token"
)

// Operator precedence levels.
const (
	_ int = iota
	LOWEST
	COMPARE // = != < <= > >=
	CALL    // function application, grouping
)

var precedences = map[token.Type]int{
	token.EQ:     COMPARE,
	token.NEQ:    COMPARE,
	token.LT:     COMPARE,
	token.LTE:    COMPARE,
	token.GT:     COMPARE,
	token.GTE:    COMPARE,
	token.LPAREN: CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser holds the state of one parse of a single input string.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser reading tokens from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifierOrCall)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens so curToken and peekToken are both populated.
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// Errors returns the accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: expected %s, got %s",
		p.peekToken.Line, p.peekToken.Column, t, p.peekToken.Type))
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseProgram parses a full ';'-separated sequence of statements. Every
// statement must be terminated by a semicolon.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if !p.expectPeek(token.SEMICOLON) {
			for !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.EOF) {
				p.nextToken()
			}
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.CREATE:
		return p.parseCreateTableStatement()
	case token.DROP:
		return p.parseDropTableStatement()
	case token.INSERT:
		return p.parseInsertStatement()
	case token.SELECT:
		return p.parseSelectStatement()
	case token.UPDATE:
		return p.parseUpdateStatement()
	case token.DELETE:
		return p.parseDeleteStatement()
	case token.SHOW:
		return p.parseShowStatement()
	case token.DESCRIBE:
		return p.parseDescribeStatement()
	case token.BEGIN:
		stmt := &ast.BeginStatement{Token: p.curToken}
		return stmt
	case token.COMMIT:
		stmt := &ast.CommitStatement{Token: p.curToken}
		return stmt
	case token.ROLLBACK:
		stmt := &ast.RollbackStatement{Token: p.curToken}
		return stmt
	case token.EXPLAIN:
		return p.parseExplainStatement()
	case token.FLUSH:
		stmt := &ast.FlushStatement{Token: p.curToken}
		return stmt
	default:
		p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: unexpected token %s",
			p.curToken.Line, p.curToken.Column, p.curToken.Type))
		return nil
	}
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: no prefix parse function for %s found",
		p.curToken.Line, p.curToken.Column, t))
}

// parseIdentifierOrCall parses a bare identifier or a qualified column
// reference (table.col). A following '(' turns the identifier into a
// function call (e.g. COUNT(amount)) via parseCallExpression, the infix
// parser registered for LPAREN.
func (p *Parser) parseIdentifierOrCall() ast.Expression {
	tok := p.curToken
	name := p.curToken.Literal

	if p.peekTokenIs(token.DOT) {
		p.nextToken() // consume '.'
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		name = name + "." + p.curToken.Literal
		return &ast.Identifier{Token: tok, Value: name}
	}

	return &ast.Identifier{Token: tok, Value: name}
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errors = append(p.errors, "function name must be a plain identifier")
		return nil
	}
	tok := p.curToken // LPAREN
	call := &ast.FunctionCall{Token: tok, Function: strings.ToUpper(ident.Value)}

	if p.peekTokenIs(token.ASTERISK) {
		p.nextToken()
		call.Star = true
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return call
	}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	call.Argument = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as integer", p.curToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as float", p.curToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.curToken, Value: p.curToken.Type == token.TRUE}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

// -----------------------------------------------------------------------------
// CREATE TABLE / DROP TABLE
// -----------------------------------------------------------------------------

func (p *Parser) parseCreateTableStatement() ast.Statement {
	stmt := &ast.CreateTableStatement{Token: p.curToken}
	if !p.expectPeek(token.TABLE) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()

	for {
		col := p.parseColumnDef()
		if col == nil {
			return nil
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return stmt
}

// canonicalDatatype maps a data type token to its canonical spelling,
// collapsing aliases such as INTEGER/DOUBLE/BOOLEAN/TEXT/VARCHAR.
var canonicalDatatype = map[token.Type]string{
	token.INT_TYPE:    "INT",
	token.FLOAT_TYPE:  "FLOAT",
	token.BOOL_TYPE:   "BOOL",
	token.STRING_TYPE: "STRING",
}

func (p *Parser) parseColumnDef() *ast.ColumnDef {
	if !p.curTokenIs(token.IDENT) {
		p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: expected column name, got %s",
			p.curToken.Line, p.curToken.Column, p.curToken.Type))
		return nil
	}
	col := &ast.ColumnDef{Name: p.curToken.Literal}

	p.nextToken()
	canonical, ok := canonicalDatatype[p.curToken.Type]
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: expected a data type, got %s",
			p.curToken.Line, p.curToken.Column, p.curToken.Type))
		return nil
	}
	col.Datatype = canonical

	for {
		switch {
		case p.peekTokenIs(token.PRIMARY):
			p.nextToken()
			if !p.expectPeek(token.KEY) {
				return nil
			}
			col.PrimaryKey = true
		case p.peekTokenIs(token.NOT):
			p.nextToken()
			if !p.expectPeek(token.NULL) {
				return nil
			}
			col.NullableSet = true
			col.Nullable = false
		case p.peekTokenIs(token.NULL):
			p.nextToken()
			col.NullableSet = true
			col.Nullable = true
		case p.peekTokenIs(token.DEFAULT):
			p.nextToken()
			p.nextToken()
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return nil
			}
			col.Default = expr
			col.HasDefault = true
		case p.peekTokenIs(token.INDEX):
			p.nextToken()
			col.Index = true
		default:
			return col
		}
	}
}

func (p *Parser) parseDropTableStatement() ast.Statement {
	stmt := &ast.DropTableStatement{Token: p.curToken}
	if !p.expectPeek(token.TABLE) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal
	return stmt
}

// -----------------------------------------------------------------------------
// INSERT
// -----------------------------------------------------------------------------

func (p *Parser) parseInsertStatement() ast.Statement {
	stmt := &ast.InsertStatement{Token: p.curToken}
	if !p.expectPeek(token.INTO) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Table = p.curToken.Literal

	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		for {
			if !p.curTokenIs(token.IDENT) {
				p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: expected column name, got %s",
					p.curToken.Line, p.curToken.Column, p.curToken.Type))
				return nil
			}
			stmt.Columns = append(stmt.Columns, p.curToken.Literal)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}

	if !p.expectPeek(token.VALUES) {
		return nil
	}

	for {
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		var row []ast.Expression
		for {
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return nil
			}
			row = append(row, expr)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		stmt.Values = append(stmt.Values, row)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	return stmt
}

// -----------------------------------------------------------------------------
// SELECT
// -----------------------------------------------------------------------------

func (p *Parser) parseSelectStatement() *ast.SelectStatement {
	stmt := &ast.SelectStatement{Token: p.curToken}

	p.nextToken()
	for {
		col := p.parseSelectColumn()
		stmt.Columns = append(stmt.Columns, col)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	if p.peekTokenIs(token.FROM) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.From = p.parseTableReference()
	}

	if p.peekTokenIs(token.WHERE) {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	if p.peekTokenIs(token.GROUP) {
		p.nextToken()
		if !p.expectPeek(token.BY) {
			return nil
		}
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.GroupBy = append(stmt.GroupBy, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if p.peekTokenIs(token.HAVING) {
		p.nextToken()
		p.nextToken()
		stmt.Having = p.parseExpression(LOWEST)
	}

	if p.peekTokenIs(token.ORDER) {
		p.nextToken()
		if !p.expectPeek(token.BY) {
			return nil
		}
		p.nextToken()
		for {
			item := &ast.OrderByItem{}
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return nil
			}
			item.Expression = expr
			if p.peekTokenIs(token.ASC) {
				p.nextToken()
			} else if p.peekTokenIs(token.DESC) {
				p.nextToken()
				item.Descending = true
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
	}

	if p.peekTokenIs(token.LIMIT) {
		p.nextToken()
		p.nextToken()
		stmt.Limit = p.parseExpression(LOWEST)
	}

	if p.peekTokenIs(token.OFFSET) {
		p.nextToken()
		p.nextToken()
		stmt.Offset = p.parseExpression(LOWEST)
	}

	return stmt
}

func (p *Parser) parseSelectColumn() ast.SelectColumn {
	if p.curTokenIs(token.ASTERISK) {
		return ast.SelectColumn{AllColumns: true}
	}
	expr := p.parseExpression(LOWEST)
	col := ast.SelectColumn{Expression: expr}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return col
		}
		col.Alias = p.curToken.Literal
	}
	return col
}

// parseTableReference parses a table name, followed by zero or more joins,
// left-associatively. curToken is the table identifier on entry.
func (p *Parser) parseTableReference() ast.TableReference {
	var ref ast.TableReference = p.parseTableName()

	for {
		joinType := ""
		switch {
		case p.peekTokenIs(token.CROSS):
			p.nextToken()
			if !p.expectPeek(token.JOIN) {
				return nil
			}
			joinType = "CROSS"
		case p.peekTokenIs(token.INNER):
			p.nextToken()
			if !p.expectPeek(token.JOIN) {
				return nil
			}
			joinType = "INNER"
		case p.peekTokenIs(token.LEFT):
			p.nextToken()
			if !p.expectPeek(token.JOIN) {
				return nil
			}
			joinType = "LEFT"
		case p.peekTokenIs(token.RIGHT):
			p.nextToken()
			if !p.expectPeek(token.JOIN) {
				return nil
			}
			joinType = "RIGHT"
		case p.peekTokenIs(token.JOIN):
			p.nextToken()
			joinType = "INNER"
		default:
			return ref
		}

		joinTok := p.curToken
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		right := p.parseTableName()

		jc := &ast.JoinClause{Token: joinTok, Type: joinType, Left: ref, Right: right}
		if joinType != "CROSS" {
			if !p.expectPeek(token.ON) {
				return nil
			}
			p.nextToken()
			jc.Condition = p.parseExpression(LOWEST)
		}
		ref = jc
	}
}

func (p *Parser) parseTableName() *ast.TableName {
	tn := &ast.TableName{Token: p.curToken, Name: p.curToken.Literal}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		tn.Alias = p.curToken.Literal
	} else if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		tn.Alias = p.curToken.Literal
	}
	return tn
}

// -----------------------------------------------------------------------------
// UPDATE / DELETE
// -----------------------------------------------------------------------------

func (p *Parser) parseUpdateStatement() ast.Statement {
	stmt := &ast.UpdateStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Table = p.curToken.Literal

	if !p.expectPeek(token.SET) {
		return nil
	}
	p.nextToken()

	for {
		if !p.curTokenIs(token.IDENT) {
			p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: expected column name, got %s",
				p.curToken.Line, p.curToken.Column, p.curToken.Type))
			return nil
		}
		set := &ast.SetClause{Column: p.curToken.Literal}
		if !p.expectPeek(token.EQ) {
			return nil
		}
		p.nextToken()
		set.Value = p.parseExpression(LOWEST)
		stmt.SetClauses = append(stmt.SetClauses, set)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}

	if p.peekTokenIs(token.WHERE) {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	return stmt
}

func (p *Parser) parseDeleteStatement() ast.Statement {
	stmt := &ast.DeleteStatement{Token: p.curToken}
	if !p.expectPeek(token.FROM) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Table = p.curToken.Literal

	if p.peekTokenIs(token.WHERE) {
		p.nextToken()
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
	}

	return stmt
}

// -----------------------------------------------------------------------------
// SHOW / DESCRIBE / EXPLAIN
// -----------------------------------------------------------------------------

func (p *Parser) parseShowStatement() ast.Statement {
	tok := p.curToken
	if p.peekTokenIs(token.TABLES) {
		p.nextToken()
		return &ast.ShowTablesStatement{Token: tok}
	}
	if !p.expectPeek(token.TABLE) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return &ast.ShowTableStatement{Token: tok, Name: p.curToken.Literal}
}

func (p *Parser) parseDescribeStatement() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return &ast.ShowTableStatement{Token: tok, Name: p.curToken.Literal}
}

func (p *Parser) parseExplainStatement() ast.Statement {
	tok := p.curToken
	p.nextToken()
	if p.curTokenIs(token.EXPLAIN) {
		p.errors = append(p.errors, "EXPLAIN cannot wrap another EXPLAIN")
		return nil
	}
	inner := p.parseStatement()
	if inner == nil {
		return nil
	}
	return &ast.ExplainStatement{Token: tok, Statement: inner}
}
