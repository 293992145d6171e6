package kv

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/btree"

	"github.com/kvsql/kvsql/errs"
)

// logHeaderSize is sizeof(u32 key_len) + sizeof(i32 value_len).
const logHeaderSize = 8

// dirEntry is the in-memory key directory's value: where the record's
// value bytes live in the log file.
type dirEntry struct {
	key    []byte
	offset int64
	length uint32
}

func dirEntryLess(a, b dirEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Disk is a Bitcask-style append-only log engine: every write is appended
// to a single log file, with an in-memory B-tree keyspace directory
// pointing at each key's latest offset.
type Disk struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	lock   *flock.Flock
	keyDir *btree.BTreeG[dirEntry]
}

// OpenDisk opens (creating if absent) the log file at path, acquires an
// exclusive lock on the sibling file path + ".lock", and replays the log to
// build the in-memory key
// directory. A second process trying to open the same path fails fast.
func OpenDisk(path string) (*Disk, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errs.Internal("kv: acquiring lock on %s: %v", path, err)
	}
	if !locked {
		return nil, errs.Internal("kv: log file %s is held by another process", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, errs.Internal("kv: opening log file %s: %v", path, err)
	}

	d := &Disk{path: path, file: f, lock: lock, keyDir: btree.NewG(32, dirEntryLess)}
	if err := d.replay(); err != nil {
		_ = f.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return d, nil
}

// replay scans the log from offset 0, rebuilding the key directory. A
// trailing record whose header or body would extend past EOF is a torn
// write from a crash mid-append; replay stops there rather than failing.
func (d *Disk) replay() error {
	size, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		return errs.Internal("kv: seeking log: %v", err)
	}

	var offset int64
	header := make([]byte, logHeaderSize)
	for offset < size {
		if offset+logHeaderSize > size {
			break // torn header
		}
		if _, err := d.file.ReadAt(header, offset); err != nil {
			return errs.Internal("kv: reading log header: %v", err)
		}
		keyLen := binary.BigEndian.Uint32(header[0:4])
		valueLen := int32(binary.BigEndian.Uint32(header[4:8]))

		keyStart := offset + logHeaderSize
		keyEnd := keyStart + int64(keyLen)
		if keyEnd > size {
			break // torn key
		}
		key := make([]byte, keyLen)
		if _, err := d.file.ReadAt(key, keyStart); err != nil {
			return errs.Internal("kv: reading log key: %v", err)
		}

		if valueLen < 0 {
			d.keyDir.Delete(dirEntry{key: key})
			offset = keyEnd
			continue
		}
		valueEnd := keyEnd + int64(valueLen)
		if valueEnd > size {
			break // torn value
		}
		d.keyDir.ReplaceOrInsert(dirEntry{key: key, offset: keyEnd, length: uint32(valueLen)})
		offset = valueEnd
	}
	return nil
}

// writeRecord appends one record at the current end of file and returns
// the offset its value bytes start at (for a tombstone, whose value is
// absent, that is the offset just past its key).
func (d *Disk) writeRecord(key, value []byte, tombstone bool) (valueOffset int64, err error) {
	end, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errs.Internal("kv: seeking log end: %v", err)
	}

	header := make([]byte, logHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(key)))
	if tombstone {
		binary.BigEndian.PutUint32(header[4:8], uint32(int32(-1)))
	} else {
		binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))
	}

	buf := make([]byte, 0, logHeaderSize+len(key)+len(value))
	buf = append(buf, header...)
	buf = append(buf, key...)
	if !tombstone {
		buf = append(buf, value...)
	}
	if _, err := d.file.WriteAt(buf, end); err != nil {
		return 0, errs.Internal("kv: appending log record: %v", err)
	}
	return end + logHeaderSize + int64(len(key)), nil
}

func (d *Disk) Set(key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	valueOffset, err := d.writeRecord(key, value, false)
	if err != nil {
		return err
	}
	k := append([]byte(nil), key...)
	d.keyDir.ReplaceOrInsert(dirEntry{key: k, offset: valueOffset, length: uint32(len(value))})
	return nil
}

func (d *Disk) Delete(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.writeRecord(key, nil, true); err != nil {
		return err
	}
	d.keyDir.Delete(dirEntry{key: key})
	return nil
}

func (d *Disk) Get(key []byte) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.keyDir.Get(dirEntry{key: key})
	if !ok {
		return nil, false, nil
	}
	v, err := d.readValue(e.offset, e.length)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (d *Disk) readValue(offset int64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if length > 0 {
		if _, err := d.file.ReadAt(buf, offset); err != nil {
			return nil, errs.Internal("kv: reading log value: %v", err)
		}
	}
	return buf, nil
}

func (d *Disk) Scan(r Range) (Iterator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var items []lazyPair
	visit := func(e dirEntry) bool {
		offset, length := e.offset, e.length
		items = append(items, lazyPair{
			key: e.key,
			get: func() ([]byte, error) { return d.readValueLocked(offset, length) },
		})
		return true
	}
	switch {
	case r.Start == nil && r.End == nil:
		d.keyDir.Ascend(visit)
	case r.Start == nil:
		d.keyDir.AscendRange(dirEntry{key: nil}, dirEntry{key: r.End}, visit)
	case r.End == nil:
		d.keyDir.AscendGreaterOrEqual(dirEntry{key: r.Start}, visit)
	default:
		d.keyDir.AscendRange(dirEntry{key: r.Start}, dirEntry{key: r.End}, visit)
	}
	return newSliceIterator(items), nil
}

// readValueLocked is called from within a lazyPair.get closure invoked by
// the iterator while the caller (mvcc) still holds its own serializing
// lock around the whole scan; it re-takes d.mu since the Scan call above
// already released it once the snapshot slice was built.
func (d *Disk) readValueLocked(offset int64, length uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readValue(offset, length)
}

func (d *Disk) PrefixScan(prefix []byte) (Iterator, error) {
	return d.Scan(PrefixRange(prefix))
}

// Compact rewrites the log to a sibling ".compact" file containing only
// live records in key order, then atomically renames it over the main log
// file and swaps the key directory. No other operation may run
// concurrently: callers serialize this under the same lock mvcc uses for
// every other engine operation.
func (d *Disk) Compact() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	compactPath := d.path + ".compact"
	compactFile, err := os.OpenFile(compactPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Internal("kv: creating compaction file: %v", err)
	}

	newDir := btree.NewG(32, dirEntryLess)
	var writeErr error
	var offset int64
	d.keyDir.Ascend(func(e dirEntry) bool {
		value, err := d.readValue(e.offset, e.length)
		if err != nil {
			writeErr = err
			return false
		}
		header := make([]byte, logHeaderSize)
		binary.BigEndian.PutUint32(header[0:4], uint32(len(e.key)))
		binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))
		rec := append(append(append([]byte(nil), header...), e.key...), value...)
		if _, err := compactFile.WriteAt(rec, offset); err != nil {
			writeErr = err
			return false
		}
		valueOffset := offset + logHeaderSize + int64(len(e.key))
		newDir.ReplaceOrInsert(dirEntry{key: e.key, offset: valueOffset, length: uint32(len(value))})
		offset += int64(len(rec))
		return true
	})
	if writeErr != nil {
		_ = compactFile.Close()
		_ = os.Remove(compactPath)
		return errs.Internal("kv: compacting: %v", writeErr)
	}
	if err := compactFile.Close(); err != nil {
		return errs.Internal("kv: closing compaction file: %v", err)
	}
	if err := d.file.Close(); err != nil {
		return errs.Internal("kv: closing log file: %v", err)
	}
	if err := os.Rename(compactPath, d.path); err != nil {
		return errs.Internal("kv: renaming compaction file into place: %v", err)
	}
	f, err := os.OpenFile(d.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return errs.Internal("kv: reopening log file after compaction: %v", err)
	}
	d.file = f
	d.keyDir = newDir
	return nil
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.file.Close()
	_ = d.lock.Unlock()
	if err != nil {
		return errs.Internal("kv: closing log file: %v", err)
	}
	return nil
}
