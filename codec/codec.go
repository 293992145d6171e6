// Package codec implements an order-preserving key encoding:
// encode(a) < encode(b) iff a < b in the natural component-wise order on the
// decoded values. Negative-number caveat: Int64 and Float64 write plain
// big-endian bit patterns with no sign handling, so the order holds only for
// non-negative integers and non-negative floats.
package codec

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/kvsql/kvsql/errs"
)

// Encoder builds an order-preserving key by appending components in order.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the encoded key built so far.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Tag appends a single variant tag byte. Variants of a tagged type must be
// declared in the order their encoded form should sort.
func (e *Encoder) Tag(tag byte) *Encoder {
	e.buf.WriteByte(tag)
	return e
}

// Uint64 appends u as 8 bytes big-endian.
func (e *Encoder) Uint64(u uint64) *Encoder {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	e.buf.Write(b[:])
	return e
}

// Int64 appends i as 8 bytes big-endian (see package doc on the
// negative-number caveat: this codec only ever keys non-negative counters
// and user-intent integers, so plain big-endian is sufficient here).
func (e *Encoder) Int64(i int64) *Encoder {
	return e.Uint64(uint64(i))
}

// Float64 appends f as its raw big-endian bit pattern (same caveat as
// Int64: this core never keys negative floats).
func (e *Encoder) Float64(f float64) *Encoder {
	return e.Uint64(math.Float64bits(f))
}

// Bool appends a single byte, 0 or 1.
func (e *Encoder) Bool(b bool) *Encoder {
	if b {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
	return e
}

// BytesValue writes an escape-terminated byte string: every 0x00 byte becomes
// 0x00 0xFF, and the whole value is terminated by 0x00 0x00. This makes the
// encoding self-delimiting and guarantees a shorter prefix sorts before any
// longer extension.
func (e *Encoder) BytesValue(v []byte) *Encoder {
	for _, b := range v {
		if b == 0x00 {
			e.buf.WriteByte(0x00)
			e.buf.WriteByte(0xFF)
		} else {
			e.buf.WriteByte(b)
		}
	}
	e.buf.WriteByte(0x00)
	e.buf.WriteByte(0x00)
	return e
}

// Str writes s using the same escape scheme as BytesValue.
func (e *Encoder) Str(s string) *Encoder {
	return e.BytesValue([]byte(s))
}

// Raw appends already-encoded bytes verbatim (used to splice one key's
// encoding as a prefix of another, e.g. mvcc's Version(rawKey, version)).
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf.Write(b)
	return e
}

// Decoder reads components back off an encoded key in the order they were
// written.
type Decoder struct {
	b   []byte
	pos int
}

// NewDecoder returns a Decoder positioned at the start of b.
func NewDecoder(b []byte) *Decoder { return &Decoder{b: b} }

// Remaining returns the bytes not yet consumed.
func (d *Decoder) Remaining() []byte { return d.b[d.pos:] }

// Done reports whether the whole input has been consumed.
func (d *Decoder) Done() bool { return d.pos >= len(d.b) }

// Tag reads a single variant tag byte.
func (d *Decoder) Tag() (byte, error) {
	if d.pos >= len(d.b) {
		return 0, errs.Internal("codec: unexpected end of key reading tag")
	}
	t := d.b[d.pos]
	d.pos++
	return t, nil
}

// Uint64 reads 8 big-endian bytes.
func (d *Decoder) Uint64() (uint64, error) {
	if d.pos+8 > len(d.b) {
		return 0, errs.Internal("codec: unexpected end of key reading uint64")
	}
	u := binary.BigEndian.Uint64(d.b[d.pos : d.pos+8])
	d.pos += 8
	return u, nil
}

// Int64 reads 8 big-endian bytes as an int64.
func (d *Decoder) Int64() (int64, error) {
	u, err := d.Uint64()
	return int64(u), err
}

// Float64 reads 8 big-endian bytes as a float64 bit pattern.
func (d *Decoder) Float64() (float64, error) {
	u, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// Bool reads a single byte, 0 or 1.
func (d *Decoder) Bool() (bool, error) {
	if d.pos >= len(d.b) {
		return false, errs.Internal("codec: unexpected end of key reading bool")
	}
	v := d.b[d.pos] != 0
	d.pos++
	return v, nil
}

// BytesValue reads an escape-terminated byte string.
func (d *Decoder) BytesValue() ([]byte, error) {
	var out []byte
	for {
		if d.pos >= len(d.b) {
			return nil, errs.Internal("codec: unterminated byte string in key")
		}
		c := d.b[d.pos]
		if c == 0x00 {
			if d.pos+1 >= len(d.b) {
				return nil, errs.Internal("codec: truncated escape in key")
			}
			switch d.b[d.pos+1] {
			case 0x00:
				d.pos += 2
				return out, nil
			case 0xFF:
				out = append(out, 0x00)
				d.pos += 2
				continue
			default:
				return nil, errs.Internal("codec: invalid escape in key")
			}
		}
		out = append(out, c)
		d.pos++
	}
}

// Str reads an escape-terminated string.
func (d *Decoder) Str() (string, error) {
	b, err := d.BytesValue()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StripStringTerminator returns the encoded bytes of enc with its trailing two-byte
// string terminator (0x00 0x00) stripped, suitable as a raw-byte prefix
// that matches the encoding with any suffix appended (used by mvcc's
// prefix scan, which encodes Version(prefix) and then strips the
// terminator so it matches Version(k, v) for any k starting with prefix
// and any v).
func StripStringTerminator(enc []byte) []byte {
	if len(enc) >= 2 && enc[len(enc)-2] == 0x00 && enc[len(enc)-1] == 0x00 {
		return enc[:len(enc)-2]
	}
	return enc
}

// PrefixRangeEnd computes the exclusive end of a prefix scan over prefix:
// increment the last non-0xFF byte and truncate after it; if every byte is
// 0xFF (or prefix is empty), the range is unbounded above (nil end).
func PrefixRangeEnd(prefix []byte) []byte {
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
