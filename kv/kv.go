// Package kv defines the ordered key/value engine contract shared by the
// memory and disk (Bitcask-style) backends.
package kv

// Pair is a single key/value result from Scan/PrefixScan.
type Pair struct {
	Key   []byte
	Value []byte
}

// Range is a half-open byte-range [Start, End). A nil Start means
// unbounded below; a nil End means unbounded above.
type Range struct {
	Start []byte
	End   []byte
}

// Iterator yields Pairs in ascending key order from Next and descending
// order from Prev; the two share one cursor position the way a
// double-ended iterator does; calling either narrows the remaining range
// from that end. Iterators are snapshots taken at Scan/PrefixScan time —
// they stay valid across later Set/Delete calls, but never reflect them
// (see kv.Engine doc). A Disk iterator reads each value lazily from its
// recorded log offset, so it is not valid across a Disk.Compact.
type Iterator interface {
	// Next returns the next pair in ascending order, or ok=false when the
	// range (from either end) is exhausted.
	Next() (pair Pair, ok bool, err error)
	// Prev returns the next pair in descending order, or ok=false when the
	// range (from either end) is exhausted.
	Prev() (pair Pair, ok bool, err error)
}

// Engine is the contract both backends implement. Every iterator returned
// by Scan/PrefixScan is a point-in-time snapshot; single-writer discipline
// is enforced one level up, by mvcc's engine-wide mutex, not by this
// interface.
type Engine interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) error
	Scan(r Range) (Iterator, error)
	PrefixScan(prefix []byte) (Iterator, error)
	Close() error
}

// NextAfter computes the exclusive end of a prefix scan over prefix:
// increment the last non-0xFF byte and truncate after it; nil (unbounded)
// if every byte is 0xFF or prefix is empty.
func NextAfter(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// PrefixRange builds the Range a PrefixScan(prefix) performs.
func PrefixRange(prefix []byte) Range {
	return Range{Start: prefix, End: NextAfter(prefix)}
}

// sliceIterator is a double-ended cursor over an already-materialized,
// ascending-ordered slice of pairs. Both backends build their Scan result
// on top of it; the disk backend's slice defers the actual value read to
// the moment each pair is yielded (see disk.go).
type sliceIterator struct {
	items []lazyPair
	lo    int
	hi    int // exclusive
}

// lazyPair defers reading a Value until Get is called, so a disk scan does
// not read every value up front.
type lazyPair struct {
	key []byte
	get func() ([]byte, error)
	err error
}

func newSliceIterator(items []lazyPair) *sliceIterator {
	return &sliceIterator{items: items, lo: 0, hi: len(items)}
}

func (it *sliceIterator) Next() (Pair, bool, error) {
	if it.lo >= it.hi {
		return Pair{}, false, nil
	}
	p := it.items[it.lo]
	it.lo++
	v, err := p.get()
	if err != nil {
		return Pair{}, false, err
	}
	return Pair{Key: p.key, Value: v}, true, nil
}

func (it *sliceIterator) Prev() (Pair, bool, error) {
	if it.lo >= it.hi {
		return Pair{}, false, nil
	}
	it.hi--
	p := it.items[it.hi]
	v, err := p.get()
	if err != nil {
		return Pair{}, false, err
	}
	return Pair{Key: p.key, Value: v}, true, nil
}
