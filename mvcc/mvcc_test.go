package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/kv"
)

func newTestMVCC(t *testing.T) *MVCC {
	t.Helper()
	return New(kv.NewMemory())
}

func TestSetGetWithinOneTransaction(t *testing.T) {
	m := newTestMVCC(t)
	txn, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, txn.Set([]byte("a"), []byte("1")))
	v, ok, err := txn.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, txn.Commit())
}

func TestCommittedWriteVisibleToLaterTransaction(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn1.Commit())

	txn2, err := m.Begin()
	require.NoError(t, err)
	v, ok, err := txn2.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestSnapshotIsolationHidesConcurrentUncommittedWrite(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	txn2, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, txn1.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn1.Commit())

	_, ok, err := txn2.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok, "txn2 began before txn1 committed, so txn1's write must stay invisible to it")
}

func TestWriteConflictBetweenConcurrentTransactions(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	txn2, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, txn1.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn1.Commit())

	err = txn2.Set([]byte("a"), []byte("2"))
	require.Error(t, err)
	assert.True(t, errs.IsWriteConflict(err))
}

func TestRollbackUndoesWrites(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn1.Rollback())

	txn2, err := m.Begin()
	require.NoError(t, err)
	_, ok, err := txn2.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIsTombstoneVisibleAsAbsent(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn1.Commit())

	txn2, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.Delete([]byte("a")))
	require.NoError(t, txn2.Commit())

	txn3, err := m.Begin()
	require.NoError(t, err)
	_, ok, err := txn3.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrefixScanReturnsNewestVisibleAndDropsTombstones(t *testing.T) {
	m := newTestMVCC(t)

	txn1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("row/1"), []byte("a")))
	require.NoError(t, txn1.Set([]byte("row/2"), []byte("b")))
	require.NoError(t, txn1.Set([]byte("row/3"), []byte("c")))
	require.NoError(t, txn1.Commit())

	txn2, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.Delete([]byte("row/2")))
	require.NoError(t, txn2.Set([]byte("row/3"), []byte("c2")))
	require.NoError(t, txn2.Commit())

	txn3, err := m.Begin()
	require.NoError(t, err)
	pairs, err := txn3.PrefixScan([]byte("row/"))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, []byte("row/1"), pairs[0].Key)
	assert.Equal(t, []byte("a"), pairs[0].Value)
	assert.Equal(t, []byte("row/3"), pairs[1].Key)
	assert.Equal(t, []byte("c2"), pairs[1].Value)
}

func TestRepeatedWriteWithinSameTransactionDoesNotConflictWithItself(t *testing.T) {
	m := newTestMVCC(t)
	txn, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, txn.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn.Set([]byte("a"), []byte("2")))

	v, ok, err := txn.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	require.NoError(t, txn.Commit())
}
