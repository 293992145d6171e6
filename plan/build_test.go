package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsql/kvsql"
	"github.com/kvsql/kvsql/ast"
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/kv"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func parseOne(t *testing.T, sql string) ast.Statement {
	t.Helper()
	program, errs := kvsql.Parse(sql)
	require.Empty(t, errs)
	require.Len(t, program.Statements, 1)
	return program.Statements[0]
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	m := mvcc.New(kv.NewMemory())
	txn, err := m.Begin()
	require.NoError(t, err)
	return catalog.New(txn)
}

func TestBuildCreateTableNormalizesNullableAndDefault(t *testing.T) {
	cat := newTestCatalog(t)
	stmt := parseOne(t, "CREATE TABLE t (id INT PRIMARY KEY, name STRING, n INT DEFAULT 5);")

	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)
	ct, ok := node.(*plan.CreateTable)
	require.True(t, ok)

	require.Len(t, ct.Schema.Columns, 3)
	id, name, n := ct.Schema.Columns[0], ct.Schema.Columns[1], ct.Schema.Columns[2]

	assert.False(t, id.Nullable) // primary key
	assert.False(t, id.HasDefault)

	assert.True(t, name.Nullable) // not primary key, NULL not stated -> nullable
	assert.True(t, name.HasDefault)
	assert.True(t, name.Default.IsNull())

	assert.True(t, n.HasDefault)
	assert.Equal(t, types.NewInt(5), n.Default)
}

func TestBuildCreateTableClearsIndexOnPrimaryKey(t *testing.T) {
	cat := newTestCatalog(t)
	stmt := parseOne(t, "CREATE TABLE t (id INT PRIMARY KEY INDEX);")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)
	ct := node.(*plan.CreateTable)
	assert.False(t, ct.Schema.Columns[0].Index)
}

func TestBuildInsertPassesThrough(t *testing.T) {
	cat := newTestCatalog(t)
	stmt := parseOne(t, "INSERT INTO t (id, name) VALUES (1, 'a');")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)
	ins := node.(*plan.Insert)
	assert.Equal(t, "t", ins.Table)
	assert.Equal(t, []string{"id", "name"}, ins.Columns)
	assert.Len(t, ins.Values, 1)
}

func requireTableWithPkAndIndex(t *testing.T, cat *catalog.Catalog) {
	t.Helper()
	require.NoError(t, cat.CreateTable(types.Table{
		Name: "t",
		Columns: []types.Column{
			{Name: "id", Datatype: types.Int, PrimaryKey: true},
			{Name: "email", Datatype: types.Str, Nullable: true, Index: true},
			{Name: "age", Datatype: types.Int, Nullable: true},
		},
	}))
}

func TestBuildSelectPkEqualityUsesPkIndex(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT id FROM t WHERE id = 5;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj, ok := node.(*plan.Projection)
	require.True(t, ok)
	pk, ok := proj.Source.(*plan.PkIndex)
	require.True(t, ok)
	assert.Equal(t, "t", pk.Table)
}

func TestBuildSelectIndexedEqualityUsesScanIndex(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT id FROM t WHERE email = 'a@b.com';")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	si, ok := proj.Source.(*plan.ScanIndex)
	require.True(t, ok)
	assert.Equal(t, "email", si.Column)
}

func TestBuildSelectNonIndexedEqualityUsesScanWithFilter(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT id FROM t WHERE age = 30;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	scan, ok := proj.Source.(*plan.Scan)
	require.True(t, ok)
	assert.NotNil(t, scan.Filter)
}

func TestBuildSelectNonEqualityStaysScanWithFilter(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT id FROM t WHERE id > 5;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	scan, ok := proj.Source.(*plan.Scan)
	require.True(t, ok)
	assert.NotNil(t, scan.Filter)
}

func TestBuildSelectCrossJoinUsesNestedLoopJoin(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateTable(types.Table{Name: "a", Columns: []types.Column{{Name: "id", Datatype: types.Int, PrimaryKey: true}}}))
	require.NoError(t, cat.CreateTable(types.Table{Name: "b", Columns: []types.Column{{Name: "id", Datatype: types.Int, PrimaryKey: true}}}))

	stmt := parseOne(t, "SELECT a.id FROM a CROSS JOIN b;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	nlj, ok := proj.Source.(*plan.NestedLoopJoin)
	require.True(t, ok)
	assert.False(t, nlj.Outer)
}

func TestBuildSelectInnerJoinUsesHashJoin(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateTable(types.Table{Name: "a", Columns: []types.Column{{Name: "id", Datatype: types.Int, PrimaryKey: true}}}))
	require.NoError(t, cat.CreateTable(types.Table{Name: "b", Columns: []types.Column{{Name: "aid", Datatype: types.Int, PrimaryKey: true}}}))

	stmt := parseOne(t, "SELECT a.id FROM a INNER JOIN b ON a.id = b.aid;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	hj, ok := proj.Source.(*plan.HashJoin)
	require.True(t, ok)
	assert.False(t, hj.Outer)
}

func TestBuildSelectRightJoinRewritesToSwappedLeftJoin(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.CreateTable(types.Table{Name: "a", Columns: []types.Column{{Name: "id", Datatype: types.Int, PrimaryKey: true}}}))
	require.NoError(t, cat.CreateTable(types.Table{Name: "b", Columns: []types.Column{{Name: "aid", Datatype: types.Int, PrimaryKey: true}}}))

	stmt := parseOne(t, "SELECT a.id FROM a RIGHT JOIN b ON a.id = b.aid;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj := node.(*plan.Projection)
	hj, ok := proj.Source.(*plan.HashJoin)
	require.True(t, ok)
	assert.True(t, hj.Outer)
	leftScan, ok := hj.Left.(*plan.Scan)
	require.True(t, ok)
	assert.Equal(t, "b", leftScan.Table) // swapped: b is now the left (outer preserved) side
}

func TestBuildSelectWithGroupByInjectsAggregate(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT age, COUNT(id) AS n FROM t GROUP BY age;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	agg, ok := node.(*plan.Aggregate)
	require.True(t, ok)
	require.NotNil(t, agg.GroupBy)
	require.Len(t, agg.Columns, 2)
	assert.Equal(t, "n", agg.Columns[1].Alias)
}

func TestBuildSelectOrderByLimitOffsetStackBottomUp(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "SELECT id FROM t ORDER BY id DESC LIMIT 10 OFFSET 5;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	proj, ok := node.(*plan.Projection)
	require.True(t, ok)
	limit, ok := proj.Source.(*plan.Limit)
	require.True(t, ok)
	assert.Equal(t, int64(10), limit.Limit)
	offset, ok := limit.Source.(*plan.Offset)
	require.True(t, ok)
	assert.Equal(t, int64(5), offset.Offset)
	ob, ok := offset.Source.(*plan.OrderBy)
	require.True(t, ok)
	assert.True(t, ob.Items[0].Descending)
}

func TestBuildUpdateUsesAccessPathAndSetClauses(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "UPDATE t SET age = 40 WHERE id = 1;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	upd, ok := node.(*plan.Update)
	require.True(t, ok)
	_, ok = upd.Source.(*plan.PkIndex)
	require.True(t, ok)
	require.Len(t, upd.SetClauses, 1)
	assert.Equal(t, "age", upd.SetClauses[0].Column)
}

func TestBuildDeleteWithoutWhereScansWholeTable(t *testing.T) {
	cat := newTestCatalog(t)
	requireTableWithPkAndIndex(t, cat)

	stmt := parseOne(t, "DELETE FROM t;")
	node, err := plan.Build(stmt, cat)
	require.NoError(t, err)

	del, ok := node.(*plan.Delete)
	require.True(t, ok)
	scan, ok := del.Source.(*plan.Scan)
	require.True(t, ok)
	assert.Nil(t, scan.Filter)
}

func TestBuildShowTablesAndDescribe(t *testing.T) {
	cat := newTestCatalog(t)

	node, err := plan.Build(parseOne(t, "SHOW TABLES;"), cat)
	require.NoError(t, err)
	_, ok := node.(*plan.TableNames)
	assert.True(t, ok)

	node, err = plan.Build(parseOne(t, "DESCRIBE t;"), cat)
	require.NoError(t, err)
	ts, ok := node.(*plan.TableSchema)
	require.True(t, ok)
	assert.Equal(t, "t", ts.Table)
}
