package plan

import (
	"fmt"
	"strings"
)

// Explain renders node as an indented operator tree, one line per Node,
// children indented two spaces under their parent.
func Explain(node Node) string {
	var b strings.Builder
	explainNode(&b, node, 0)
	return strings.TrimRight(b.String(), "\n")
}

func explainNode(b *strings.Builder, node Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case *Scan:
		fmt.Fprintf(b, "%sScan %s\n", indent, n.Table)
	case *PkIndex:
		fmt.Fprintf(b, "%sPkIndex %s\n", indent, n.Table)
	case *ScanIndex:
		fmt.Fprintf(b, "%sScanIndex %s.%s\n", indent, n.Table, n.Column)
	case *Projection:
		fmt.Fprintf(b, "%sProjection\n", indent)
		explainNode(b, n.Source, depth+1)
	case *Filter:
		fmt.Fprintf(b, "%sFilter\n", indent)
		explainNode(b, n.Source, depth+1)
	case *Having:
		fmt.Fprintf(b, "%sHaving\n", indent)
		explainNode(b, n.Source, depth+1)
	case *OrderBy:
		fmt.Fprintf(b, "%sOrderBy\n", indent)
		explainNode(b, n.Source, depth+1)
	case *Offset:
		fmt.Fprintf(b, "%sOffset %d\n", indent, n.Offset)
		explainNode(b, n.Source, depth+1)
	case *Limit:
		fmt.Fprintf(b, "%sLimit %d\n", indent, n.Limit)
		explainNode(b, n.Source, depth+1)
	case *NestedLoopJoin:
		fmt.Fprintf(b, "%sNestedLoopJoin outer=%v\n", indent, n.Outer)
		explainNode(b, n.Left, depth+1)
		explainNode(b, n.Right, depth+1)
	case *HashJoin:
		fmt.Fprintf(b, "%sHashJoin outer=%v\n", indent, n.Outer)
		explainNode(b, n.Left, depth+1)
		explainNode(b, n.Right, depth+1)
	case *Aggregate:
		fmt.Fprintf(b, "%sAggregate\n", indent)
		explainNode(b, n.Source, depth+1)
	case *Insert:
		fmt.Fprintf(b, "%sInsert %s\n", indent, n.Table)
	case *Update:
		fmt.Fprintf(b, "%sUpdate %s\n", indent, n.Table)
		explainNode(b, n.Source, depth+1)
	case *Delete:
		fmt.Fprintf(b, "%sDelete %s\n", indent, n.Table)
		explainNode(b, n.Source, depth+1)
	case *CreateTable:
		fmt.Fprintf(b, "%sCreateTable %s\n", indent, n.Schema.Name)
	case *DropTable:
		fmt.Fprintf(b, "%sDropTable %s\n", indent, n.Table)
	case *TableSchema:
		fmt.Fprintf(b, "%sTableSchema %s\n", indent, n.Table)
	case *TableNames:
		fmt.Fprintf(b, "%sTableNames\n", indent)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, node)
	}
}
