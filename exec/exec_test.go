package exec_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsql/kvsql"
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/exec"
	"github.com/kvsql/kvsql/kv"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	m := mvcc.New(kv.NewMemory())
	txn, err := m.Begin()
	require.NoError(t, err)
	return catalog.New(txn)
}

func parseOne(t *testing.T, sql string) ast.Statement {
	t.Helper()
	program, errs := kvsql.Parse(sql)
	require.Empty(t, errs)
	require.Len(t, program.Statements, 1)
	return program.Statements[0]
}

func run(t *testing.T, cat *catalog.Catalog, sql string) exec.ResultSet {
	t.Helper()
	node, err := plan.Build(parseOne(t, sql), cat)
	require.NoError(t, err)
	rs, err := exec.Execute(node, cat)
	require.NoError(t, err)
	return rs
}

// runErr builds and executes sql, returning whichever step errors first (a
// dropped or nonexistent table can fail access-path selection at plan-build
// time, before execution ever runs).
func runErr(t *testing.T, cat *catalog.Catalog, sql string) error {
	t.Helper()
	node, err := plan.Build(parseOne(t, sql), cat)
	if err != nil {
		return err
	}
	_, err = exec.Execute(node, cat)
	return err
}

func TestCreateInsertScan(t *testing.T) {
	cat := newTestCatalog(t)

	ct := run(t, cat, "CREATE TABLE t (a INT PRIMARY KEY, b STRING DEFAULT 'vv', c INT DEFAULT 100);")
	assert.Equal(t, exec.KindCreateTable, ct.Kind)
	assert.Equal(t, "t", ct.Name)

	assert.Equal(t, 1, run(t, cat, "INSERT INTO t(a) VALUES(1);").Count)
	assert.Equal(t, 1, run(t, cat, "INSERT INTO t VALUES(2,'a',2);").Count)
	assert.Equal(t, 1, run(t, cat, "INSERT INTO t(b,a) VALUES('b',3);").Count)

	rs := run(t, cat, "SELECT a, b, c FROM t;")
	require.Len(t, rs.Rows, 3)
}

func TestInsertSelectColumnsAndDuplicatePk(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (a INT PRIMARY KEY, b STRING DEFAULT 'vv', c INT DEFAULT 100);")
	run(t, cat, "INSERT INTO t(a) VALUES(1);")
	run(t, cat, "INSERT INTO t VALUES(2,'a',2);")
	run(t, cat, "INSERT INTO t(b,a) VALUES('b',3);")

	rs := run(t, cat, "SELECT a, b, c FROM t;")
	assert.Equal(t, []string{"a", "b", "c"}, rs.Columns)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, types.Row{types.NewInt(1), types.NewStr("vv"), types.NewInt(100)}, rs.Rows[0])
	assert.Equal(t, types.Row{types.NewInt(2), types.NewStr("a"), types.NewInt(2)}, rs.Rows[1])
	assert.Equal(t, types.Row{types.NewInt(3), types.NewStr("b"), types.NewInt(100)}, rs.Rows[2])

	err := runErr(t, cat, "INSERT INTO t(a) VALUES(1);")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicted")
}

func TestPkIndexCoercesWholeFloat(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY, v STRING);")
	run(t, cat, "INSERT INTO t VALUES(3, 'x');")

	rs := run(t, cat, "SELECT v FROM t WHERE id = 3.0;")
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.NewStr("x"), rs.Rows[0][0])
}

func TestScanIndexAndSecondaryIndexMaintenance(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY, email STRING INDEX);")
	run(t, cat, "INSERT INTO t VALUES(1, 'a@b.com');")
	run(t, cat, "INSERT INTO t VALUES(2, 'a@b.com');")
	run(t, cat, "INSERT INTO t VALUES(3, 'c@d.com');")

	rs := run(t, cat, "SELECT id FROM t WHERE email = 'a@b.com';")
	require.Len(t, rs.Rows, 2)
	assert.ElementsMatch(t, []types.Value{types.NewInt(1), types.NewInt(2)},
		[]types.Value{rs.Rows[0][0], rs.Rows[1][0]})

	run(t, cat, "UPDATE t SET email = 'c@d.com' WHERE id = 1;")
	rs = run(t, cat, "SELECT id FROM t WHERE email = 'a@b.com';")
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.NewInt(2), rs.Rows[0][0])

	rs = run(t, cat, "SELECT id FROM t WHERE email = 'c@d.com';")
	require.Len(t, rs.Rows, 2)

	run(t, cat, "DELETE FROM t WHERE id = 2;")
	rs = run(t, cat, "SELECT id FROM t WHERE email = 'a@b.com';")
	assert.Len(t, rs.Rows, 0)
}

func TestUpdatePrimaryKeyChangeMovesRow(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY, v STRING);")
	run(t, cat, "INSERT INTO t VALUES(1, 'x');")

	run(t, cat, "UPDATE t SET id = 5 WHERE id = 1;")

	rs := run(t, cat, "SELECT v FROM t WHERE id = 5;")
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.NewStr("x"), rs.Rows[0][0])

	rs = run(t, cat, "SELECT v FROM t WHERE id = 1;")
	assert.Len(t, rs.Rows, 0)
}

func TestOrderByLimitOffset(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY);")
	for _, v := range []int{3, 1, 4, 2, 5} {
		run(t, cat, "INSERT INTO t VALUES("+strconv.Itoa(v)+");")
	}

	rs := run(t, cat, "SELECT id FROM t ORDER BY id DESC LIMIT 2 OFFSET 1;")
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, types.NewInt(4), rs.Rows[0][0])
	assert.Equal(t, types.NewInt(3), rs.Rows[1][0])
}

func TestAggregateGroupByOrderByAlias(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (a INT PRIMARY KEY, b STRING, c FLOAT);")
	run(t, cat, "INSERT INTO t VALUES(1,'aa',3.1);")
	run(t, cat, "INSERT INTO t VALUES(2,'bb',5.3);")
	run(t, cat, "INSERT INTO t(a) VALUES(3);")
	run(t, cat, "INSERT INTO t(a,c) VALUES(4,4.6);")
	run(t, cat, "INSERT INTO t VALUES(5,'bb',5.8);")
	run(t, cat, "INSERT INTO t VALUES(6,'dd',1.4);")

	rs := run(t, cat, "SELECT b, MIN(c) AS mn, MAX(a) AS mx, AVG(c) AS avg FROM t GROUP BY b ORDER BY avg;")
	assert.Equal(t, []string{"b", "mn", "mx", "avg"}, rs.Columns)
	require.Len(t, rs.Rows, 4)

	assert.Equal(t, types.NewStr("dd"), rs.Rows[0][0])
	assert.Equal(t, types.NewFloat(1.4), rs.Rows[0][1])
	assert.Equal(t, types.NewInt(6), rs.Rows[0][2])

	assert.Equal(t, types.NewStr("aa"), rs.Rows[1][0])

	assert.True(t, rs.Rows[2][0].IsNull())
	assert.Equal(t, types.NewFloat(4.6), rs.Rows[2][1])

	assert.Equal(t, types.NewStr("bb"), rs.Rows[3][0])
}

func TestLeftJoinNullPadding(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t1 (a INT PRIMARY KEY);")
	run(t, cat, "CREATE TABLE t2 (b INT PRIMARY KEY);")
	run(t, cat, "CREATE TABLE t3 (c INT PRIMARY KEY);")
	for _, v := range []int{1, 2, 3} {
		run(t, cat, "INSERT INTO t1 VALUES("+strconv.Itoa(v)+");")
	}
	for _, v := range []int{2, 3, 4} {
		run(t, cat, "INSERT INTO t2 VALUES("+strconv.Itoa(v)+");")
	}
	for _, v := range []int{3, 8, 9} {
		run(t, cat, "INSERT INTO t3 VALUES("+strconv.Itoa(v)+");")
	}

	rs := run(t, cat, "SELECT a, b, c FROM t1 LEFT JOIN t2 ON a = b JOIN t3 ON a = c;")
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.Row{types.NewInt(3), types.NewInt(3), types.NewInt(3)}, rs.Rows[0])
}

func TestDropTableRemovesRows(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY);")
	run(t, cat, "INSERT INTO t VALUES(1);")

	dt := run(t, cat, "DROP TABLE t;")
	assert.Equal(t, exec.KindDropTable, dt.Kind)

	err := runErr(t, cat, "SELECT id FROM t;")
	require.Error(t, err)
}

func TestTableSchemaAndTableNames(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (id INT PRIMARY KEY, v STRING);")
	run(t, cat, "CREATE TABLE u (id INT PRIMARY KEY);")

	rs := run(t, cat, "SHOW TABLES;")
	assert.Equal(t, []string{"t", "u"}, rs.Tables)

	rs = run(t, cat, "DESCRIBE t;")
	assert.Contains(t, rs.Schema, "TABLE NAME: t (")
	assert.Contains(t, rs.Schema, "id INT PRIMARY KEY NOT NULL")
	assert.Contains(t, rs.Schema, "v STRING")
}

func TestSelectStarReturnsAllColumns(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (a INT PRIMARY KEY, b STRING, c FLOAT);")
	run(t, cat, "INSERT INTO t VALUES(1,'aa',3.1);")

	rs := run(t, cat, "SELECT * FROM t;")
	assert.Equal(t, []string{"a", "b", "c"}, rs.Columns)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.Row{types.NewInt(1), types.NewStr("aa"), types.NewFloat(3.1)}, rs.Rows[0])
}

func TestSelectStarOverThreeWayJoin(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t1 (a INT PRIMARY KEY);")
	run(t, cat, "CREATE TABLE t2 (b INT PRIMARY KEY);")
	run(t, cat, "CREATE TABLE t3 (c INT PRIMARY KEY);")
	for _, v := range []int{1, 2, 3} {
		run(t, cat, "INSERT INTO t1 VALUES("+strconv.Itoa(v)+");")
	}
	for _, v := range []int{2, 3, 4} {
		run(t, cat, "INSERT INTO t2 VALUES("+strconv.Itoa(v)+");")
	}
	for _, v := range []int{3, 8, 9} {
		run(t, cat, "INSERT INTO t3 VALUES("+strconv.Itoa(v)+");")
	}

	rs := run(t, cat, "SELECT * FROM t1 LEFT JOIN t2 ON a=b JOIN t3 ON a=c;")
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.Row{types.NewInt(3), types.NewInt(3), types.NewInt(3)}, rs.Rows[0])
}

func TestCountStarCountsAllRows(t *testing.T) {
	cat := newTestCatalog(t)
	run(t, cat, "CREATE TABLE t (a INT PRIMARY KEY, b STRING);")
	run(t, cat, "INSERT INTO t VALUES(1,'x');")
	run(t, cat, "INSERT INTO t VALUES(2,NULL);")
	run(t, cat, "INSERT INTO t VALUES(3,'y');")

	rs := run(t, cat, "SELECT COUNT(*) AS n FROM t;")
	assert.Equal(t, []string{"n"}, rs.Columns)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.NewInt(3), rs.Rows[0][0])
}

