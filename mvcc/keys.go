package mvcc

import (
	"encoding/binary"
	"math"

	"github.com/kvsql/kvsql/codec"
)

// Key tags for the logical keyspace mvcc lays over a kv.Engine: a single
// NextVersion counter, one ActiveTxn(v) marker per in-progress transaction,
// one Write(v,k) manifest entry per key a transaction has touched, and the
// versioned Version(k,v) entries themselves.
const (
	tagNextVersion byte = iota
	tagActiveTxn
	tagWrite
	tagVersion
)

func nextVersionKey() []byte {
	return codec.NewEncoder().Tag(tagNextVersion).Bytes()
}

func activeTxnKey(v uint64) []byte {
	return codec.NewEncoder().Tag(tagActiveTxn).Uint64(v).Bytes()
}

func activeTxnPrefix() []byte {
	return []byte{tagActiveTxn}
}

// decodeActiveTxnKey recovers the version an ActiveTxn(v) entry names.
func decodeActiveTxnKey(raw []byte) (uint64, error) {
	d := codec.NewDecoder(raw)
	if _, err := d.Tag(); err != nil {
		return 0, err
	}
	return d.Uint64()
}

func writeKey(v uint64, userKey []byte) []byte {
	return codec.NewEncoder().Tag(tagWrite).Uint64(v).BytesValue(userKey).Bytes()
}

func writePrefix(v uint64) []byte {
	return codec.NewEncoder().Tag(tagWrite).Uint64(v).Bytes()
}

// decodeWriteKey recovers the user key a Write(v,*) entry names.
func decodeWriteKey(raw []byte) (userKey []byte, err error) {
	d := codec.NewDecoder(raw)
	if _, err := d.Tag(); err != nil {
		return nil, err
	}
	if _, err := d.Uint64(); err != nil {
		return nil, err
	}
	return d.BytesValue()
}

// versionKeyPrefix returns the raw-byte prefix every Version(userKey, *)
// entry starts with, for any version.
func versionKeyPrefix(userKey []byte) []byte {
	return codec.NewEncoder().Tag(tagVersion).BytesValue(userKey).Bytes()
}

func versionKey(userKey []byte, v uint64) []byte {
	return codec.NewEncoder().Tag(tagVersion).BytesValue(userKey).Uint64(v).Bytes()
}

// versionKeyRangeEnd returns the exclusive end of the byte range covering
// every Version(userKey, v) entry for v in [0, bound] (bound inclusive).
func versionKeyRangeEnd(userKey []byte, bound uint64) []byte {
	if bound == math.MaxUint64 {
		return codec.PrefixRangeEnd(versionKeyPrefix(userKey))
	}
	return versionKey(userKey, bound+1)
}

// versionScanPrefix builds the Version(rawKeyPrefix) raw-byte prefix used
// by PrefixScan: the escape-terminated encoding of rawKeyPrefix with its
// trailing terminator stripped, so it matches Version(k, v) for any user
// key k starting with rawKeyPrefix and any version v.
func versionScanPrefix(rawKeyPrefix []byte) []byte {
	enc := codec.NewEncoder().Tag(tagVersion).BytesValue(rawKeyPrefix).Bytes()
	return codec.StripStringTerminator(enc)
}

// decodeVersionKey recovers the user key and version a Version(k,v) entry
// names.
func decodeVersionKey(raw []byte) (userKey []byte, version uint64, err error) {
	d := codec.NewDecoder(raw)
	if _, err := d.Tag(); err != nil {
		return nil, 0, err
	}
	userKey, err = d.BytesValue()
	if err != nil {
		return nil, 0, err
	}
	version, err = d.Uint64()
	return userKey, version, err
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// versionValue is the payload stored at a Version(k,v) entry: either a
// present user value, or a tombstone recording that the key was deleted
// at this version.
const (
	versionValueTombstone byte = 0
	versionValuePresent   byte = 1
)

func encodeVersionValue(value []byte, present bool) []byte {
	if !present {
		return []byte{versionValueTombstone}
	}
	out := make([]byte, 0, 1+len(value))
	out = append(out, versionValuePresent)
	out = append(out, value...)
	return out
}

// decodeVersionValue returns (value, present). present is false for a
// tombstone, in which case value is nil.
func decodeVersionValue(raw []byte) (value []byte, present bool) {
	if len(raw) == 0 || raw[0] == versionValueTombstone {
		return nil, false
	}
	return raw[1:], true
}
