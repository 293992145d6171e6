// Package session binds a parsed statement to a transaction, the way the
// reference engine's Session type wraps a single Engine::Transaction.
// Session itself carries no network concerns; server owns one Session per
// connection.
package session

import (
	"go.uber.org/zap"

	"github.com/kvsql/kvsql"
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/exec"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/plan"
)

// Session binds one client's statements to the engine. txn is non-nil only
// between an explicit BEGIN and its matching COMMIT/ROLLBACK; otherwise every
// statement runs in its own implicit transaction.
type Session struct {
	engine *mvcc.MVCC
	txn    *mvcc.Transaction
}

// New binds a fresh session to engine, with no open explicit transaction.
func New(engine *mvcc.MVCC) *Session {
	return &Session{engine: engine}
}

// InTransaction reports whether an explicit transaction is currently open.
func (s *Session) InTransaction() bool {
	return s.txn != nil
}

// Close rolls back any transaction still open, the way a dropped connection
// must be treated as an implicit ROLLBACK. Safe to call with no open
// transaction.
func (s *Session) Close() error {
	if s.txn == nil {
		return nil
	}
	txn := s.txn
	s.txn = nil
	return txn.Rollback()
}

// Execute parses and runs exactly one SQL statement. BEGIN/COMMIT/ROLLBACK
// are intercepted here rather than reaching plan.Build; every other
// statement runs against either the session's open explicit transaction or
// a fresh implicit one that commits on success and rolls back on error.
func (s *Session) Execute(sql string) (exec.ResultSet, error) {
	program, perrs := kvsql.Parse(sql)
	if len(perrs) > 0 {
		return exec.ResultSet{}, errs.Parse("%s", perrs[0])
	}
	if len(program.Statements) != 1 {
		return exec.ResultSet{}, errs.Parse("expected exactly one statement, got %d", len(program.Statements))
	}
	stmt := program.Statements[0]

	switch st := stmt.(type) {
	case *ast.BeginStatement:
		if s.txn != nil {
			return exec.ResultSet{}, errs.Internal("already in a transaction")
		}
		txn, err := s.engine.Begin()
		if err != nil {
			return exec.ResultSet{}, err
		}
		s.txn = txn
		zap.S().Debugw("transaction begin", "version", txn.Version())
		return exec.ResultSet{Kind: exec.KindBegin, Version: int64(txn.Version())}, nil

	case *ast.CommitStatement:
		if s.txn == nil {
			return exec.ResultSet{}, errs.Internal("not in a transaction")
		}
		txn := s.txn
		s.txn = nil
		if err := txn.Commit(); err != nil {
			return exec.ResultSet{}, err
		}
		zap.S().Debugw("transaction commit", "version", txn.Version())
		return exec.ResultSet{Kind: exec.KindCommit, Version: int64(txn.Version())}, nil

	case *ast.RollbackStatement:
		if s.txn == nil {
			return exec.ResultSet{}, errs.Internal("not in a transaction")
		}
		txn := s.txn
		s.txn = nil
		if err := txn.Rollback(); err != nil {
			return exec.ResultSet{}, err
		}
		zap.S().Debugw("transaction rollback", "version", txn.Version())
		return exec.ResultSet{Kind: exec.KindRollback, Version: int64(txn.Version())}, nil

	case *ast.ExplainStatement:
		return s.explain(st)

	case *ast.FlushStatement:
		return exec.ResultSet{Kind: exec.KindFlush}, nil
	}

	if s.txn != nil {
		return s.run(stmt, s.txn)
	}
	return s.runImplicit(stmt)
}

// runImplicit begins a fresh transaction for stmt, committing it on success
// and rolling it back on any planning or execution error.
func (s *Session) runImplicit(stmt ast.Statement) (exec.ResultSet, error) {
	txn, err := s.engine.Begin()
	if err != nil {
		return exec.ResultSet{}, err
	}
	rs, err := s.run(stmt, txn)
	if err != nil {
		if rerr := txn.Rollback(); rerr != nil {
			zap.S().Errorw("rollback after failed statement also failed", "error", rerr)
		}
		return exec.ResultSet{}, err
	}
	if err := txn.Commit(); err != nil {
		return exec.ResultSet{}, err
	}
	return rs, nil
}

func (s *Session) run(stmt ast.Statement, txn *mvcc.Transaction) (exec.ResultSet, error) {
	cat := catalog.New(txn)
	node, err := plan.Build(stmt, cat)
	if err != nil {
		return exec.ResultSet{}, err
	}
	return exec.Execute(node, cat)
}

// explain builds the plan for the wrapped statement without executing it
// and renders its tree, reading table schemas through whatever transaction
// is currently in scope (explicit if open, else a throwaway implicit one).
func (s *Session) explain(stmt *ast.ExplainStatement) (exec.ResultSet, error) {
	txn := s.txn
	if txn == nil {
		t, err := s.engine.Begin()
		if err != nil {
			return exec.ResultSet{}, err
		}
		defer func() { _ = t.Rollback() }()
		txn = t
	}
	cat := catalog.New(txn)
	node, err := plan.Build(stmt.Statement, cat)
	if err != nil {
		return exec.ResultSet{}, err
	}
	return exec.ResultSet{Kind: exec.KindExplain, PlanText: plan.Explain(node)}, nil
}
