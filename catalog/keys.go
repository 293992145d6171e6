package catalog

import (
	"github.com/kvsql/kvsql/codec"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/types"
)

// Key tags for the logical keyspace catalog lays over an mvcc.Transaction:
// one Table(name) entry per schema, one Row(table,pk) entry per data row,
// and one Index(table,col,value) posting-list entry per distinct indexed
// value.
const (
	tagTable byte = iota
	tagRow
	tagIndex
)

func tableKey(name string) []byte {
	return codec.NewEncoder().Tag(tagTable).Str(name).Bytes()
}

func tablePrefix() []byte {
	return []byte{tagTable}
}

// decodeTableKey recovers the table name a Table(name) entry names.
func decodeTableKey(raw []byte) (string, error) {
	d := codec.NewDecoder(raw)
	if _, err := d.Tag(); err != nil {
		return "", err
	}
	return d.Str()
}

// valueKind tags for the encoded form of a types.Value appearing inside a
// key (a primary key or an indexed column's value) or a stored value
// (default, row cell, posting-list entry).
const (
	valBool byte = iota
	valInt
	valFloat
	valStr
)

func encodeValueInto(enc *codec.Encoder, v types.Value) error {
	switch v.Kind {
	case types.KindBool:
		enc.Tag(valBool).Bool(v.Bool)
	case types.KindInt:
		enc.Tag(valInt).Int64(v.Int)
	case types.KindFloat:
		enc.Tag(valFloat).Float64(v.Flt)
	case types.KindStr:
		enc.Tag(valStr).Str(v.Str)
	default:
		return errs.Internal("catalog: cannot encode NULL as a key or stored value")
	}
	return nil
}

func decodeValueFrom(d *codec.Decoder) (types.Value, error) {
	tag, err := d.Tag()
	if err != nil {
		return types.Value{}, err
	}
	switch tag {
	case valBool:
		b, err := d.Bool()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBool(b), nil
	case valInt:
		i, err := d.Int64()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewInt(i), nil
	case valFloat:
		f, err := d.Float64()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(f), nil
	case valStr:
		s, err := d.Str()
		if err != nil {
			return types.Value{}, err
		}
		return types.NewStr(s), nil
	default:
		return types.Value{}, errs.Internal("catalog: unknown value tag %d in encoded key", tag)
	}
}

func rowKey(table string, pk types.Value) ([]byte, error) {
	enc := codec.NewEncoder().Tag(tagRow).Str(table)
	if err := encodeValueInto(enc, pk); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// rowPrefix matches every Row(table, *) entry: it is the complete,
// terminated encoding of table's name, so no other table's rows can share
// it as a prefix.
func rowPrefix(table string) []byte {
	return codec.NewEncoder().Tag(tagRow).Str(table).Bytes()
}

func indexKey(table, col string, value types.Value) ([]byte, error) {
	enc := codec.NewEncoder().Tag(tagIndex).Str(table).Str(col)
	if err := encodeValueInto(enc, value); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func indexPrefix(table, col string) []byte {
	return codec.NewEncoder().Tag(tagIndex).Str(table).Str(col).Bytes()
}

// indexTablePrefix matches every Index(table, *, *) entry, used to drop a
// table's secondary indices wholesale.
func indexTablePrefix(table string) []byte {
	return codec.NewEncoder().Tag(tagIndex).Str(table).Bytes()
}
