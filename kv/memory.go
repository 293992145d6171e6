package kv

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// entry is the btree item: ordered by Key.
type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Memory is an in-memory ordered Engine backed by a B-tree, used for tests
// and for running without a durable log on disk.
type Memory struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// NewMemory returns an empty in-memory engine.
func NewMemory() *Memory {
	return &Memory{tree: btree.NewG(32, entryLess)}
}

func (m *Memory) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	m.tree.ReplaceOrInsert(entry{key: k, value: v})
	return nil
}

func (m *Memory) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(entry{key: key})
	return nil
}

func (m *Memory) Scan(r Range) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []lazyPair
	visit := func(e entry) bool {
		v := e.value
		items = append(items, lazyPair{
			key: e.key,
			get: func() ([]byte, error) { return v, nil },
		})
		return true
	}
	switch {
	case r.Start == nil && r.End == nil:
		m.tree.Ascend(visit)
	case r.Start == nil:
		m.tree.AscendRange(entry{key: nil}, entry{key: r.End}, visit)
	case r.End == nil:
		m.tree.AscendGreaterOrEqual(entry{key: r.Start}, visit)
	default:
		m.tree.AscendRange(entry{key: r.Start}, entry{key: r.End}, visit)
	}
	return newSliceIterator(items), nil
}

func (m *Memory) PrefixScan(prefix []byte) (Iterator, error) {
	return m.Scan(PrefixRange(prefix))
}

func (m *Memory) Close() error { return nil }
