package database

import (
	"context"
	"errors"
	"testing"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

func createFixtureTables(t *testing.T, d Driver) {
	t.Helper()

	statements := []string{
		`CREATE TABLE gender (id INTEGER PRIMARY KEY, name VARCHAR(50) NOT NULL)`,
		`CREATE TABLE team (code TEXT PRIMARY KEY, label TEXT)`,
		`CREATE TABLE person (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			bio TEXT,
			born DATE,
			updated_at DATETIME,
			mood TEXT CHECK (mood IN ('happy', 'sad', 'it''s ok')),
			gender_id INTEGER REFERENCES gender(id)
		)`,
		`CREATE TABLE member_team (
			team_id TEXT NOT NULL REFERENCES team,
			member_id INTEGER NOT NULL REFERENCES person(id),
			PRIMARY KEY (member_id, team_id)
		)`,
	}

	ctx := context.Background()
	for _, stmt := range statements {
		if _, err := d.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}
}

func TestListTables(t *testing.T) {
	driver := openTestDriver(t)
	createFixtureTables(t, driver)

	tables, err := driver.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}

	want := []string{"gender", "member_team", "person", "team"}
	if len(tables) != len(want) {
		t.Fatalf("ListTables() got %d tables, want %d", len(tables), len(want))
	}
	for i, table := range tables {
		if table != want[i] {
			t.Errorf("ListTables()[%d] = %s, want %s", i, table, want[i])
		}
	}

	exists, err := driver.TableExists(context.Background(), "person")
	if err != nil || !exists {
		t.Errorf("TableExists(person) = %v, %v", exists, err)
	}
	exists, err = driver.TableExists(context.Background(), "nobody")
	if err != nil || exists {
		t.Errorf("TableExists(nobody) = %v, %v", exists, err)
	}
}

func TestGetTableInfo_Columns(t *testing.T) {
	driver := openTestDriver(t)
	createFixtureTables(t, driver)

	info, err := driver.GetTableInfo(context.Background(), "person")
	if err != nil {
		t.Fatalf("GetTableInfo() error = %v", err)
	}

	table := info.Schema()

	if table.PrimaryKey() != "id" {
		t.Errorf("Expected primary key id, got %q", table.PrimaryKey())
	}

	tests := []struct {
		column string
		flags  registry.TypeFlag
	}{
		{column: "id", flags: registry.FlagInt | registry.FlagNotNull},
		{column: "name", flags: registry.FlagString | registry.FlagNotNull},
		{column: "bio", flags: registry.FlagString | registry.FlagText},
		{column: "born", flags: registry.FlagDate},
		{column: "updated_at", flags: registry.FlagDate | registry.FlagTime},
		{column: "gender_id", flags: registry.FlagInt},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col, ok := table.Column(tt.column)
			if !ok {
				t.Fatalf("column %s not found", tt.column)
			}
			if col.Flags != tt.flags {
				t.Errorf("flags = %s, want %s", col.Flags, tt.flags)
			}
		})
	}

	id, _ := table.Column("id")
	if !id.AutoIncrement {
		t.Error("Expected INTEGER PRIMARY KEY to be auto increment")
	}

	mood, _ := table.Column("mood")
	wantMood := []string{"happy", "sad", "it's ok"}
	if len(mood.EnumValues) != len(wantMood) {
		t.Fatalf("Expected %d enum values, got %v", len(wantMood), mood.EnumValues)
	}
	for i := range wantMood {
		if mood.EnumValues[i] != wantMood[i] {
			t.Errorf("EnumValues[%d] = %q, want %q", i, mood.EnumValues[i], wantMood[i])
		}
	}
}

func TestGetTableInfo_ForeignKeys(t *testing.T) {
	driver := openTestDriver(t)
	createFixtureTables(t, driver)

	info, err := driver.GetTableInfo(context.Background(), "member_team")
	if err != nil {
		t.Fatalf("GetTableInfo() error = %v", err)
	}

	table := info.Schema()

	want := []registry.Link{
		{Column: "team_id", Table: "team", TargetColumn: "code"},
		{Column: "member_id", Table: "person", TargetColumn: "id"},
	}
	if len(table.Links) != len(want) {
		t.Fatalf("Expected %d links, got %v", len(want), table.Links)
	}
	for i := range want {
		if table.Links[i] != want[i] {
			t.Errorf("Links[%d] = %+v, want %+v", i, table.Links[i], want[i])
		}
	}

	if len(table.PrimaryKeys) != 2 {
		t.Errorf("Expected composite primary key, got %v", table.PrimaryKeys)
	}
	for _, col := range table.Columns {
		if col.AutoIncrement {
			t.Errorf("Column %s of a composite key must not be auto increment", col.Name)
		}
	}
}

func TestGetTableInfo_Errors(t *testing.T) {
	driver := openTestDriver(t)
	ctx := context.Background()

	for _, name := range []string{"", "users; DROP TABLE users;--", "1startwithnum"} {
		if _, err := driver.GetTableInfo(ctx, name); err == nil {
			t.Errorf("Expected error for invalid table name %q", name)
		}
	}

	if _, err := driver.GetTableInfo(ctx, "missing"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound for missing table, got %v", err)
	}
}

func TestInferTypeFlags(t *testing.T) {
	tests := []struct {
		dbType   string
		nullable bool
		want     registry.TypeFlag
	}{
		{dbType: "INTEGER", nullable: false, want: registry.FlagInt | registry.FlagNotNull},
		{dbType: "bigserial", nullable: true, want: registry.FlagInt},
		{dbType: "boolean", nullable: true, want: registry.FlagBool},
		{dbType: "timestamp without time zone", nullable: true, want: registry.FlagDate | registry.FlagTime},
		{dbType: "DATETIME", nullable: true, want: registry.FlagDate | registry.FlagTime},
		{dbType: "date", nullable: true, want: registry.FlagDate},
		{dbType: "time", nullable: true, want: registry.FlagTime},
		{dbType: "TEXT", nullable: true, want: registry.FlagString | registry.FlagText},
		{dbType: "jsonb", nullable: true, want: registry.FlagString | registry.FlagText},
		{dbType: "bytea", nullable: true, want: registry.FlagString | registry.FlagText | registry.FlagBlob},
		{dbType: "varchar", nullable: false, want: registry.FlagString | registry.FlagNotNull},
		{dbType: "decimal(10,2)", nullable: true, want: registry.FlagString},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			if got := InferTypeFlags(tt.dbType, tt.nullable); got != tt.want {
				t.Errorf("InferTypeFlags(%q) = %s, want %s", tt.dbType, got, tt.want)
			}
		})
	}
}

func TestParseEnumType(t *testing.T) {
	tests := []struct {
		name       string
		columnType string
		want       []string
	}{
		{name: "simple", columnType: "enum('a','b')", want: []string{"a", "b"}},
		{name: "upper case", columnType: "ENUM('x')", want: []string{"x"}},
		{name: "escaped quote", columnType: "enum('don''t','do')", want: []string{"don't", "do"}},
		{name: "comma inside", columnType: "enum('a,b','c')", want: []string{"a,b", "c"}},
		{name: "not enum", columnType: "varchar(20)", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEnumType(tt.columnType)
			if len(got) != len(tt.want) {
				t.Fatalf("parseEnumType() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseEnumType()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "users", want: true},
		{input: "_users", want: true},
		{input: "user_group2", want: true},
		{input: "", want: false},
		{input: "1users", want: false},
		{input: "user-data", want: false},
		{input: "users;", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidIdentifier(tt.input); got != tt.want {
				t.Errorf("IsValidIdentifier(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
