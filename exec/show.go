package exec

import (
	"fmt"
	"strings"

	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/plan"
	"github.com/kvsql/kvsql/types"
)

func execTableSchema(n *plan.TableSchema, cat *catalog.Catalog) (ResultSet, error) {
	table, err := cat.MustGetTable(n.Table)
	if err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Kind: KindTableSchema, Schema: renderTableSchema(table)}, nil
}

func execTableNames(cat *catalog.Catalog) (ResultSet, error) {
	names, err := cat.ListTables()
	if err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Kind: KindTableNames, Tables: names}, nil
}

// renderTableSchema renders table the way DESCRIBE/SHOW TABLE print it on
// the wire.
func renderTableSchema(table types.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TABLE NAME: %s (\n", table.Name)
	for _, c := range table.Columns {
		b.WriteString("  ")
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(c.Datatype.String())
		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.HasDefault {
			fmt.Fprintf(&b, " DEFAULT %s", c.Default.String())
		}
		b.WriteString(",\n")
	}
	b.WriteString(")")
	return b.String()
}
