package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsql/kvsql/exec"
	"github.com/kvsql/kvsql/kv"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/session"
)

func newEngine(t *testing.T) *mvcc.MVCC {
	t.Helper()
	return mvcc.New(kv.NewMemory())
}

func TestImplicitTransactionCommitsOnSuccess(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)

	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY);")
	require.NoError(t, err)

	rs, err := s.Execute("INSERT INTO t VALUES(1);")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Count)

	rs, err = s.Execute("SELECT id FROM t;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
}

func TestImplicitTransactionRollsBackOnError(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)

	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY);")
	require.NoError(t, err)
	_, err = s.Execute("INSERT INTO t VALUES(1);")
	require.NoError(t, err)

	_, err = s.Execute("INSERT INTO t VALUES(1);")
	require.Error(t, err)

	rs, err := s.Execute("SELECT id FROM t;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
}

func TestExplicitTransactionStaysOpenOnError(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)

	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY);")
	require.NoError(t, err)

	rs, err := s.Execute("BEGIN;")
	require.NoError(t, err)
	assert.Equal(t, exec.KindBegin, rs.Kind)
	assert.True(t, s.InTransaction())

	_, err = s.Execute("INSERT INTO t VALUES(1);")
	require.NoError(t, err)

	_, err = s.Execute("SELECT nosuchcolumn FROM t;")
	require.Error(t, err)
	assert.True(t, s.InTransaction(), "an error inside an explicit transaction must not auto-rollback it")

	_, err = s.Execute("ROLLBACK;")
	require.NoError(t, err)
	assert.False(t, s.InTransaction())

	rs, err = s.Execute("SELECT id FROM t;")
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 0, "the explicit rollback should undo the insert")
}

func TestBeginCommitVisibility(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)

	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY);")
	require.NoError(t, err)

	_, err = s.Execute("BEGIN;")
	require.NoError(t, err)
	_, err = s.Execute("INSERT INTO t VALUES(1);")
	require.NoError(t, err)
	rs, err := s.Execute("COMMIT;")
	require.NoError(t, err)
	assert.Equal(t, exec.KindCommit, rs.Kind)

	other := session.New(engine)
	rs, err = other.Execute("SELECT id FROM t;")
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)
}

func TestDoubleBeginErrors(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)
	_, err := s.Execute("BEGIN;")
	require.NoError(t, err)
	_, err = s.Execute("BEGIN;")
	assert.Error(t, err)
}

func TestCommitWithoutTransactionErrors(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)
	_, err := s.Execute("COMMIT;")
	assert.Error(t, err)
}

func TestExplainDoesNotMutateState(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)
	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY);")
	require.NoError(t, err)

	rs, err := s.Execute("EXPLAIN SELECT id FROM t WHERE id = 1;")
	require.NoError(t, err)
	assert.Equal(t, exec.KindExplain, rs.Kind)
	assert.Contains(t, rs.PlanText, "PkIndex")
	assert.False(t, s.InTransaction())
}

func TestFlushIsANoOp(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)
	rs, err := s.Execute("FLUSH;")
	require.NoError(t, err)
	assert.Equal(t, exec.KindFlush, rs.Kind)
}

func TestSelectStarThroughSession(t *testing.T) {
	engine := newEngine(t)
	s := session.New(engine)

	_, err := s.Execute("CREATE TABLE t (id INT PRIMARY KEY, name STRING);")
	require.NoError(t, err)
	_, err = s.Execute("INSERT INTO t VALUES(1, 'a');")
	require.NoError(t, err)

	rs, err := s.Execute("SELECT * FROM t;")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 1)
}
