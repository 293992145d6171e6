package exec

import (
	"github.com/kvsql/kvsql/catalog"
	"github.com/kvsql/kvsql/errs"
	"github.com/kvsql/kvsql/plan"
)

// Execute walks node against cat, producing the ResultSet the statement it
// was lowered from would report to a client.
func Execute(node plan.Node, cat *catalog.Catalog) (ResultSet, error) {
	return execNode(node, cat)
}

func execNode(node plan.Node, cat *catalog.Catalog) (ResultSet, error) {
	switch n := node.(type) {
	case *plan.Scan:
		return execScan(n, cat)
	case *plan.PkIndex:
		return execPkIndex(n, cat)
	case *plan.ScanIndex:
		return execScanIndex(n, cat)
	case *plan.Projection:
		return execProjection(n, cat)
	case *plan.Filter:
		return execFilter(n, cat)
	case *plan.Having:
		return execHaving(n, cat)
	case *plan.OrderBy:
		return execOrderBy(n, cat)
	case *plan.Offset:
		return execOffset(n, cat)
	case *plan.Limit:
		return execLimit(n, cat)
	case *plan.NestedLoopJoin:
		return execNestedLoopJoin(n, cat)
	case *plan.HashJoin:
		return execHashJoin(n, cat)
	case *plan.Aggregate:
		return execAggregate(n, cat)
	case *plan.Insert:
		return execInsert(n, cat)
	case *plan.Update:
		return execUpdate(n, cat)
	case *plan.Delete:
		return execDelete(n, cat)
	case *plan.CreateTable:
		return execCreateTable(n, cat)
	case *plan.DropTable:
		return execDropTable(n, cat)
	case *plan.TableSchema:
		return execTableSchema(n, cat)
	case *plan.TableNames:
		return execTableNames(cat)
	default:
		return ResultSet{}, errs.Internal("exec: unexpected plan node %T", node)
	}
}
