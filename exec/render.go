package exec

import (
	"fmt"
	"strings"
)

// Render formats rs the way the wire protocol's response lines describe it,
// mirroring the reference executor's ResultSet::to_string rules.
func Render(rs ResultSet) string {
	switch rs.Kind {
	case KindCreateTable:
		return "CREATE TABLE " + rs.Name
	case KindDropTable:
		return "DROP TABLE " + rs.Name
	case KindInsert:
		return fmt.Sprintf("INSERT %d rows", rs.Count)
	case KindUpdate:
		return fmt.Sprintf("UPDATE %d rows", rs.Count)
	case KindDelete:
		return fmt.Sprintf("DELETE %d rows", rs.Count)
	case KindScan:
		return renderScan(rs)
	case KindTableSchema:
		return rs.Schema
	case KindTableNames:
		if len(rs.Tables) == 0 {
			return "No tables found."
		}
		return strings.Join(rs.Tables, "\n")
	case KindBegin:
		return fmt.Sprintf("TRANSACTION %d BEGIN", rs.Version)
	case KindCommit:
		return fmt.Sprintf("TRANSACTION %d COMMIT", rs.Version)
	case KindRollback:
		return fmt.Sprintf("TRANSACTION %d ROLLBACK", rs.Version)
	case KindExplain:
		return rs.PlanText
	case KindFlush:
		return "FLUSH ok"
	default:
		return ""
	}
}

// renderScan renders columns and rows as a width-aligned table: a header of
// '|'-separated column names, a '-'/'+' separator sized to the widest value
// in each column, then '|'-separated data rows and a trailing row count.
func renderScan(rs ResultSet) string {
	widths := make([]int, len(rs.Columns))
	for i, c := range rs.Columns {
		widths[i] = len(c)
	}
	cellStrings := make([][]string, len(rs.Rows))
	for r, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			s := v.String()
			cells[i] = s
			if i < len(widths) && len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
		cellStrings[r] = cells
	}

	var b strings.Builder
	for i, c := range rs.Columns {
		if i > 0 {
			b.WriteString("|")
		}
		fmt.Fprintf(&b, "%-*s", widths[i], c)
	}
	b.WriteString("\n")
	for i, w := range widths {
		if i > 0 {
			b.WriteString("+")
		}
		b.WriteString(strings.Repeat("-", w+1))
	}
	for _, cells := range cellStrings {
		b.WriteString("\n")
		for i, s := range cells {
			if i > 0 {
				b.WriteString("|")
			}
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			fmt.Fprintf(&b, "%-*s", width, s)
		}
	}
	fmt.Fprintf(&b, "\n(%d rows)", len(rs.Rows))
	return b.String()
}
