// Package mvcc layers multi-version concurrency control over a kv.Engine.
// Every transaction sees a consistent snapshot taken at Begin, writes
// conflict against anything not yet visible to that snapshot, and the whole
// engine is serialized by one mutex: concurrent transactions interleave at
// the granularity of individual operations, not of whole transactions.
package mvcc

import (
	"math"
	"sync"

	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/kv"
)

// MVCC owns the underlying engine and the single lock every operation,
// from any transaction, acquires for its duration.
type MVCC struct {
	mu     sync.Mutex
	engine kv.Engine
}

// New wraps engine with MVCC bookkeeping.
func New(engine kv.Engine) *MVCC {
	return &MVCC{engine: engine}
}

// Close releases the underlying engine.
func (m *MVCC) Close() error {
	return m.engine.Close()
}

func (m *MVCC) readNextVersion() (uint64, error) {
	raw, ok, err := m.engine.Get(nextVersionKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return decodeUint64(raw), nil
}

// Begin starts a new transaction: it is assigned the next version counter
// and a snapshot of every transaction currently in progress.
func (m *MVCC) Begin() (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.readNextVersion()
	if err != nil {
		return nil, err
	}
	if err := m.engine.Set(nextVersionKey(), encodeUint64(v+1)); err != nil {
		return nil, err
	}

	active := map[uint64]bool{}
	it, err := m.engine.PrefixScan(activeTxnPrefix())
	if err != nil {
		return nil, err
	}
	for {
		p, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		av, err := decodeActiveTxnKey(p.Key)
		if err != nil {
			return nil, err
		}
		active[av] = true
	}

	if err := m.engine.Set(activeTxnKey(v), nil); err != nil {
		return nil, err
	}

	return &Transaction{mvcc: m, version: v, activeSet: active}, nil
}

// Transaction is a single in-progress snapshot-isolated transaction.
type Transaction struct {
	mvcc      *MVCC
	version   uint64
	activeSet map[uint64]bool
}

// Version returns the transaction's assigned version.
func (t *Transaction) Version() uint64 { return t.version }

// isVisible reports whether a version written by v is visible to this
// transaction's snapshot: v must not have been in progress when this
// transaction began, and must not be from the future.
func (t *Transaction) isVisible(v uint64) bool {
	if t.activeSet[v] {
		return false
	}
	return v <= t.version
}

// conflictWindowLow is the oldest version that could possibly still be
// invisible to some transaction in progress: min(active_set, self.version+1).
// Versions below it are guaranteed already committed and visible to
// everyone, so they can never conflict.
func (t *Transaction) conflictWindowLow() uint64 {
	low := t.version + 1
	for v := range t.activeSet {
		if v < low {
			low = v
		}
	}
	return low
}

// update implements the shared body of Set and Delete: check for a
// conflicting concurrent write, then record both the write manifest entry
// and the new version.
func (t *Transaction) update(key []byte, value []byte, present bool) error {
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	low := t.conflictWindowLow()
	it, err := t.mvcc.engine.Scan(kv.Range{
		Start: versionKey(key, low),
		End:   versionKeyRangeEnd(key, math.MaxUint64),
	})
	if err != nil {
		return err
	}
	var latest uint64
	var found bool
	for {
		p, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		_, v, err := decodeVersionKey(p.Key)
		if err != nil {
			return err
		}
		latest, found = v, true
	}
	if found && !t.isVisible(latest) {
		return errs.WriteConflict("write conflict on key at version %d", latest)
	}

	if err := t.mvcc.engine.Set(writeKey(t.version, key), nil); err != nil {
		return err
	}
	return t.mvcc.engine.Set(versionKey(key, t.version), encodeVersionValue(value, present))
}

// Set writes value at key, visible only from this transaction's snapshot
// onward.
func (t *Transaction) Set(key, value []byte) error {
	return t.update(key, value, true)
}

// Delete writes a tombstone for key: equivalent to Set with an absent value.
func (t *Transaction) Delete(key []byte) error {
	return t.update(key, nil, false)
}

// Get scans versions of key descending and returns the first visible one's
// payload, or ok=false if it is absent or tombstoned.
func (t *Transaction) Get(key []byte) (value []byte, ok bool, err error) {
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	it, err := t.mvcc.engine.Scan(kv.Range{
		Start: versionKey(key, 0),
		End:   versionKeyRangeEnd(key, math.MaxUint64),
	})
	if err != nil {
		return nil, false, err
	}
	for {
		p, ok, err := it.Prev()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		_, v, err := decodeVersionKey(p.Key)
		if err != nil {
			return nil, false, err
		}
		if v > t.version || !t.isVisible(v) {
			continue
		}
		val, present := decodeVersionValue(p.Value)
		if !present {
			return nil, false, nil
		}
		return val, true, nil
	}
}

// PrefixScan collects, for every user key starting with prefix, the newest
// version visible to this transaction, drops tombstoned keys, and returns
// the result ordered by user key ascending. The whole scan runs under one
// lock acquisition so the snapshot it returns is internally consistent.
func (t *Transaction) PrefixScan(prefix []byte) ([]kv.Pair, error) {
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	scanPrefix := versionScanPrefix(prefix)
	it, err := t.mvcc.engine.Scan(kv.Range{
		Start: scanPrefix,
		End:   kv.NextAfter(scanPrefix),
	})
	if err != nil {
		return nil, err
	}

	type slot struct {
		value   []byte
		present bool
		version uint64
	}
	var keyOrder [][]byte
	byKey := map[string]*slot{}

	for {
		p, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		userKey, v, err := decodeVersionKey(p.Key)
		if err != nil {
			return nil, err
		}
		if !t.isVisible(v) {
			continue
		}
		s, seen := byKey[string(userKey)]
		if !seen {
			s = &slot{}
			byKey[string(userKey)] = s
			keyOrder = append(keyOrder, userKey)
		}
		if seen && v <= s.version {
			continue
		}
		val, present := decodeVersionValue(p.Value)
		s.value, s.present, s.version = val, present, v
	}

	var out []kv.Pair
	for _, k := range keyOrder {
		s := byKey[string(k)]
		if !s.present {
			continue
		}
		out = append(out, kv.Pair{Key: k, Value: s.value})
	}
	return out, nil
}

// Commit drops the write manifest and the active-txn marker. Committed
// Version(k, self.version) entries remain.
func (t *Transaction) Commit() error {
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	it, err := t.mvcc.engine.PrefixScan(writePrefix(t.version))
	if err != nil {
		return err
	}
	var writeKeys [][]byte
	for {
		p, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		writeKeys = append(writeKeys, append([]byte(nil), p.Key...))
	}
	for _, k := range writeKeys {
		if err := t.mvcc.engine.Delete(k); err != nil {
			return err
		}
	}
	return t.mvcc.engine.Delete(activeTxnKey(t.version))
}

// Rollback undoes every Version entry this transaction wrote, then drops
// its write manifest and active-txn marker.
func (t *Transaction) Rollback() error {
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	it, err := t.mvcc.engine.PrefixScan(writePrefix(t.version))
	if err != nil {
		return err
	}
	var writeKeys [][]byte
	var userKeys [][]byte
	for {
		p, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		writeKeys = append(writeKeys, append([]byte(nil), p.Key...))
		uk, err := decodeWriteKey(p.Key)
		if err != nil {
			return err
		}
		userKeys = append(userKeys, uk)
	}
	for _, uk := range userKeys {
		if err := t.mvcc.engine.Delete(versionKey(uk, t.version)); err != nil {
			return err
		}
	}
	for _, wk := range writeKeys {
		if err := t.mvcc.engine.Delete(wk); err != nil {
			return err
		}
	}
	return t.mvcc.engine.Delete(activeTxnKey(t.version))
}
