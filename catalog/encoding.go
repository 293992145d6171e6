package catalog

import (
	"github.com/kvsql/kvsql/codec"
	"github.com/kvsql/kvsql/types"
)

// encodeOptionalValue writes a presence flag followed by the value's
// encoding when present; NULLs and "no default" both skip the value.
func encodeOptionalValue(enc *codec.Encoder, v types.Value) error {
	if v.IsNull() {
		enc.Bool(false)
		return nil
	}
	enc.Bool(true)
	return encodeValueInto(enc, v)
}

func decodeOptionalValue(d *codec.Decoder) (types.Value, error) {
	present, err := d.Bool()
	if err != nil {
		return types.Value{}, err
	}
	if !present {
		return types.Null, nil
	}
	return decodeValueFrom(d)
}

func encodeTable(t types.Table) []byte {
	enc := codec.NewEncoder().Str(t.Name).Uint64(uint64(len(t.Columns)))
	for _, c := range t.Columns {
		enc.Str(c.Name).
			Uint64(uint64(c.Datatype)).
			Bool(c.Nullable).
			Bool(c.HasDefault).
			Bool(c.PrimaryKey).
			Bool(c.Index)
		_ = encodeOptionalValue(enc, c.Default)
	}
	return enc.Bytes()
}

func decodeTable(raw []byte) (types.Table, error) {
	d := codec.NewDecoder(raw)
	name, err := d.Str()
	if err != nil {
		return types.Table{}, err
	}
	n, err := d.Uint64()
	if err != nil {
		return types.Table{}, err
	}
	cols := make([]types.Column, n)
	for i := range cols {
		colName, err := d.Str()
		if err != nil {
			return types.Table{}, err
		}
		dt, err := d.Uint64()
		if err != nil {
			return types.Table{}, err
		}
		nullable, err := d.Bool()
		if err != nil {
			return types.Table{}, err
		}
		hasDefault, err := d.Bool()
		if err != nil {
			return types.Table{}, err
		}
		pk, err := d.Bool()
		if err != nil {
			return types.Table{}, err
		}
		idx, err := d.Bool()
		if err != nil {
			return types.Table{}, err
		}
		def, err := decodeOptionalValue(d)
		if err != nil {
			return types.Table{}, err
		}
		cols[i] = types.Column{
			Name:       colName,
			Datatype:   types.Datatype(dt),
			Nullable:   nullable,
			HasDefault: hasDefault,
			PrimaryKey: pk,
			Index:      idx,
			Default:    def,
		}
	}
	return types.Table{Name: name, Columns: cols}, nil
}

func encodeRow(row types.Row) ([]byte, error) {
	enc := codec.NewEncoder().Uint64(uint64(len(row)))
	for _, v := range row {
		if err := encodeOptionalValue(enc, v); err != nil {
			return nil, err
		}
	}
	return enc.Bytes(), nil
}

func decodeRow(raw []byte) (types.Row, error) {
	d := codec.NewDecoder(raw)
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	row := make(types.Row, n)
	for i := range row {
		v, err := decodeOptionalValue(d)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// encodePostingList/decodePostingList serialize a secondary index's set of
// matching primary keys, in the order IndexAdd last wrote them (IndexAdd
// keeps the list sorted ascending, so decoding yields sorted output).
func encodePostingList(pks []types.Value) ([]byte, error) {
	enc := codec.NewEncoder().Uint64(uint64(len(pks)))
	for _, v := range pks {
		if err := encodeValueInto(enc, v); err != nil {
			return nil, err
		}
	}
	return enc.Bytes(), nil
}

func decodePostingList(raw []byte) ([]types.Value, error) {
	d := codec.NewDecoder(raw)
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, n)
	for i := range out {
		v, err := decodeValueFrom(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
