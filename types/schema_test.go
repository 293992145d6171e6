package types

import "testing"

func validTable() Table {
	return Table{
		Name: "users",
		Columns: []Column{
			{Name: "id", Datatype: Int, PrimaryKey: true},
			{Name: "name", Datatype: Str, Nullable: true},
		},
	}
}

func TestValidateAcceptsWellFormedTable(t *testing.T) {
	if err := validTable().Validate(); err != nil {
		t.Fatalf("expected valid table, got %v", err)
	}
}

func TestValidateRejectsMissingPrimaryKey(t *testing.T) {
	tbl := validTable()
	tbl.Columns[0].PrimaryKey = false
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for missing primary key")
	}
}

func TestValidateRejectsMultiplePrimaryKeys(t *testing.T) {
	tbl := validTable()
	tbl.Columns[1].PrimaryKey = true
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for multiple primary keys")
	}
}

func TestValidateRejectsNullablePrimaryKey(t *testing.T) {
	tbl := validTable()
	tbl.Columns[0].Nullable = true
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for nullable primary key")
	}
}

func TestValidateRejectsIndexOnPrimaryKey(t *testing.T) {
	tbl := validTable()
	tbl.Columns[0].Index = true
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for index on primary key column")
	}
}

func TestValidateRejectsTypeMismatchedDefault(t *testing.T) {
	tbl := validTable()
	tbl.Columns[1].HasDefault = true
	tbl.Columns[1].Default = NewInt(5)
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for type-mismatched default")
	}
}

func TestValidateAcceptsNullDefaultOnNullableColumn(t *testing.T) {
	tbl := validTable()
	tbl.Columns[1].HasDefault = true
	tbl.Columns[1].Default = Null
	if err := tbl.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateRejectsNullDefaultOnNonNullableColumn(t *testing.T) {
	tbl := validTable()
	tbl.Columns[1].Nullable = false
	tbl.Columns[1].HasDefault = true
	tbl.Columns[1].Default = Null
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for NULL default on non-nullable column")
	}
}

func TestValidateRejectsDuplicateColumnNames(t *testing.T) {
	tbl := validTable()
	tbl.Columns = append(tbl.Columns, Column{Name: "id", Datatype: Str})
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for duplicate column name")
	}
}

func TestPrimaryKeyColumnAndColumnIndex(t *testing.T) {
	tbl := validTable()
	col, idx, ok := tbl.PrimaryKeyColumn()
	if !ok || idx != 0 || col.Name != "id" {
		t.Fatalf("got %v %v %v", col, idx, ok)
	}
	if tbl.ColumnIndex("name") != 1 {
		t.Fatalf("expected name at index 1")
	}
	if tbl.ColumnIndex("missing") != -1 {
		t.Fatalf("expected -1 for missing column")
	}
}
