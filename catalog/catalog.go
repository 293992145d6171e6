// Package catalog layers the typed schema/row/index keyspace over an
// mvcc.Transaction: it owns the encoding of table schemas, row payloads, and
// secondary-index posting lists, the way kv.kv.rs's Key/PrefixKey enums and
// KVTransaction did in the reference engine, generalized to also carry
// secondary indices.
package catalog

import (
	"sort"

	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/types"
)

// Catalog binds one in-progress transaction's worth of schema, row, and
// index operations. It carries no state of its own beyond the transaction;
// a new Catalog is cheap to wrap around any *mvcc.Transaction.
type Catalog struct {
	txn *mvcc.Transaction
}

// New wraps txn with catalog-level operations.
func New(txn *mvcc.Transaction) *Catalog {
	return &Catalog{txn: txn}
}

// GetTable looks up a table's schema by name.
func (c *Catalog) GetTable(name string) (types.Table, bool, error) {
	raw, ok, err := c.txn.Get(tableKey(name))
	if err != nil || !ok {
		return types.Table{}, false, err
	}
	t, err := decodeTable(raw)
	if err != nil {
		return types.Table{}, false, err
	}
	return t, true, nil
}

// MustGetTable looks up a table's schema, failing with errs.Internal if it
// does not exist.
func (c *Catalog) MustGetTable(name string) (types.Table, error) {
	t, ok, err := c.GetTable(name)
	if err != nil {
		return types.Table{}, err
	}
	if !ok {
		return types.Table{}, errs.Internal("table %q does not exist", name)
	}
	return t, nil
}

// CreateTable stores t's schema, failing if a table by that name already
// exists or t fails its own structural validation.
func (c *Catalog) CreateTable(t types.Table) error {
	if _, ok, err := c.GetTable(t.Name); err != nil {
		return err
	} else if ok {
		return errs.Internal("table %q already exists", t.Name)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return c.txn.Set(tableKey(t.Name), encodeTable(t))
}

// DropTable removes a table's schema together with every row and
// secondary-index entry it owns.
func (c *Catalog) DropTable(name string) error {
	if _, ok, err := c.GetTable(name); err != nil {
		return err
	} else if !ok {
		return errs.Internal("table %q does not exist", name)
	}

	rowPairs, err := c.txn.PrefixScan(rowPrefix(name))
	if err != nil {
		return err
	}
	for _, p := range rowPairs {
		if err := c.txn.Delete(p.Key); err != nil {
			return err
		}
	}

	idxPairs, err := c.txn.PrefixScan(indexTablePrefix(name))
	if err != nil {
		return err
	}
	for _, p := range idxPairs {
		if err := c.txn.Delete(p.Key); err != nil {
			return err
		}
	}

	return c.txn.Delete(tableKey(name))
}

// ListTables returns every table name, ascending.
func (c *Catalog) ListTables() ([]string, error) {
	pairs, err := c.txn.PrefixScan(tablePrefix())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		name, err := decodeTableKey(p.Key)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// GetRow looks up a table's row by primary key.
func (c *Catalog) GetRow(table string, pk types.Value) (types.Row, bool, error) {
	key, err := rowKey(table, pk)
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := c.txn.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	row, err := decodeRow(raw)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// PutRow writes (inserting or overwriting) a table's row at the given
// primary key.
func (c *Catalog) PutRow(table string, pk types.Value, row types.Row) error {
	key, err := rowKey(table, pk)
	if err != nil {
		return err
	}
	raw, err := encodeRow(row)
	if err != nil {
		return err
	}
	return c.txn.Set(key, raw)
}

// DeleteRow removes a table's row at the given primary key.
func (c *Catalog) DeleteRow(table string, pk types.Value) error {
	key, err := rowKey(table, pk)
	if err != nil {
		return err
	}
	return c.txn.Delete(key)
}

// ScanRows returns every row of table, ordered by ascending primary key.
func (c *Catalog) ScanRows(table string) ([]types.Row, error) {
	pairs, err := c.txn.PrefixScan(rowPrefix(table))
	if err != nil {
		return nil, err
	}
	rows := make([]types.Row, 0, len(pairs))
	for _, p := range pairs {
		row, err := decodeRow(p.Value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IndexAdd records that pk is one of the rows matching table.col = value.
func (c *Catalog) IndexAdd(table, col string, value, pk types.Value) error {
	key, err := indexKey(table, col, value)
	if err != nil {
		return err
	}
	pks, err := c.loadPostingList(key)
	if err != nil {
		return err
	}
	for _, existing := range pks {
		if types.Equal(existing, pk) {
			return nil
		}
	}
	pks = append(pks, pk)
	sortValues(pks)
	return c.savePostingList(key, pks)
}

// IndexRemove undoes a prior IndexAdd for the same (table, col, value, pk).
func (c *Catalog) IndexRemove(table, col string, value, pk types.Value) error {
	key, err := indexKey(table, col, value)
	if err != nil {
		return err
	}
	pks, err := c.loadPostingList(key)
	if err != nil {
		return err
	}
	out := pks[:0]
	for _, existing := range pks {
		if !types.Equal(existing, pk) {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		return c.txn.Delete(key)
	}
	return c.savePostingList(key, out)
}

// IndexLookup returns the primary keys of every row matching table.col =
// value, sorted ascending.
func (c *Catalog) IndexLookup(table, col string, value types.Value) ([]types.Value, error) {
	key, err := indexKey(table, col, value)
	if err != nil {
		return nil, err
	}
	return c.loadPostingList(key)
}

func (c *Catalog) loadPostingList(key []byte) ([]types.Value, error) {
	raw, ok, err := c.txn.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodePostingList(raw)
}

func (c *Catalog) savePostingList(key []byte, pks []types.Value) error {
	raw, err := encodePostingList(pks)
	if err != nil {
		return err
	}
	return c.txn.Set(key, raw)
}

func sortValues(vs []types.Value) {
	sort.SliceStable(vs, func(i, j int) bool {
		cmp, ok := types.Compare(vs[i], vs[j])
		return ok && cmp < 0
	})
}
