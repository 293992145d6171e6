package exec

import (
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/plan"
)

func execCreateTable(n *plan.CreateTable, cat *catalog.Catalog) (ResultSet, error) {
	if err := cat.CreateTable(n.Schema); err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Kind: KindCreateTable, Name: n.Schema.Name}, nil
}

func execDropTable(n *plan.DropTable, cat *catalog.Catalog) (ResultSet, error) {
	if err := cat.DropTable(n.Table); err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Kind: KindDropTable, Name: n.Table}, nil
}
