// Package exec walks a plan.Node tree against a catalog.Catalog and
// produces a ResultSet, the way the reference executor's per-node
// Executor::execute implementations do.
package exec

import "github.com/kvsql/kvsql/types"

// Kind tags a ResultSet's variant.
type Kind int

const (
	KindCreateTable Kind = iota
	KindDropTable
	KindInsert
	KindUpdate
	KindDelete
	KindScan
	KindTableSchema
	KindTableNames
	KindBegin
	KindCommit
	KindRollback
	KindExplain
	KindFlush
)

// ResultSet is the tagged result of executing one statement. Only the
// fields matching Kind are meaningful.
type ResultSet struct {
	Kind Kind

	Name  string // CreateTable, DropTable
	Count int    // Insert, Update, Delete

	Columns []string   // Scan
	Rows    []types.Row // Scan

	Schema string   // TableSchema
	Tables []string // TableNames

	Version int64 // Begin, Commit, Rollback

	PlanText string // Explain
}
