package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/relcsv/internal/schema"
)

func sampleTables() []Table {
	users := &schema.Schema{
		Name:       "table1",
		Columns:    []string{"id", "name"},
		PrimaryKey: "id",
	}
	posts := &schema.Schema{
		Name:       "table2",
		Columns:    []string{"id", "title", "author_id"},
		PrimaryKey: "id",
		ParentLink: true,
		Sequenced:  true,
		Origin:     "posts",
	}
	posts.ForeignKeys = []schema.ForeignKey{{Column: "author_id", Ref: users}}
	posts.AddParent(users)
	users.ForeignKeys = []schema.ForeignKey{{Column: "posts", Ref: posts}}

	tags := &schema.Schema{
		Name:       "tags",
		ParentLink: true,
		IsJunction: true,
		Origin:     "tags",
	}
	tags.AddParent(users)

	return []Table{
		{Schema: users, Header: []string{"id", "id", "name"}, Rows: 1},
		{Schema: posts, Header: []string{"id", "id", "title", "author_id", "seq", "parent_id"}, Rows: 2},
		{Schema: tags, Header: []string{"parent_id", "index", "value"}, Rows: 3},
	}
}

func TestColumns(t *testing.T) {
	tables := sampleTables()

	tests := []struct {
		name  string
		table Table
		want  []Role
	}{
		{name: "root", table: tables[0], want: []Role{RoleSurrogate, RoleData, RoleData}},
		{name: "child", table: tables[1], want: []Role{RoleSurrogate, RoleData, RoleData, RoleData, RoleSequence, RoleParent}},
		{name: "junction", table: tables[2], want: []Role{RoleParent, RoleIndex, RoleValue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tt.table.Columns()
			if len(cols) != len(tt.want) {
				t.Fatalf("Expected %d columns, got %d", len(tt.want), len(cols))
			}
			for i, col := range cols {
				if col.Role != tt.want[i] {
					t.Errorf("Column %s: expected role %v, got %v", col.Name, tt.want[i], col.Role)
				}
			}
		})
	}

	cols := tables[1].Columns()
	if !cols[1].PrimaryKey {
		t.Error("Expected id to be the primary key")
	}
	if cols[3].Ref != tables[0].Schema {
		t.Errorf("Expected author_id to reference table1, got %v", cols[3].Ref)
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	tables := sampleTables()

	if err := NewTextFormatter(&buf).FormatTable(tables[1]); err != nil {
		t.Fatalf("FormatTable failed: %v", err)
	}

	want := `TABLE table2 (PK: id)
  from "posts", 2 rows
  id (row id)
  id PK
  title
  author_id → table1.id
  seq (array position)
  parent_id (parent row id)

  RELATIONS:
    nested in table1
`
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := NewTextFormatter(&buf).Format(tables); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"TABLE table1 (PK: id)", "document root, 1 rows", "posts → table2.id (nested)", "JUNCTION tags"} {
		if !strings.Contains(out, s) {
			t.Errorf("Expected output to contain %q, got:\n%s", s, out)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer

	if err := NewMarkdownFormatter(&buf).Format(sampleTables()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	out := buf.String()
	expected := []string{
		"# Inferred Tables",
		"## table2",
		"Objects found under `posts`, 2 rows.",
		"- **author_id:** FK → table1.id",
		"- **title**\n",
		"- **seq:** array position",
		"Scalar elements of `tags` arrays, 3 rows.",
		"- nested in table1",
	}
	for _, s := range expected {
		if !strings.Contains(out, s) {
			t.Errorf("Expected output to contain %q, got:\n%s", s, out)
		}
	}
}

func TestIncomingRefs(t *testing.T) {
	tables := sampleTables()

	incoming := IncomingRefs(tables[0].Schema, tables)
	want := []Incoming{
		{Table: "table2", Column: "author_id"},
		{Table: "table2", Column: "parent_id", Parent: true},
		{Table: "tags", Column: "parent_id", Parent: true},
	}

	if len(incoming) != len(want) {
		t.Fatalf("Expected %d incoming refs, got %v", len(want), incoming)
	}
	for i := range want {
		if incoming[i] != want[i] {
			t.Errorf("Ref %d: expected %+v, got %+v", i, want[i], incoming[i])
		}
	}
}

func TestMultiFileFormatter(t *testing.T) {
	for _, format := range []string{formatMarkdown, formatText} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "schema")

			if err := NewMultiFileFormatter(dir, format).Format(sampleTables()); err != nil {
				t.Fatalf("Format failed: %v", err)
			}

			ext := ".txt"
			if format == formatMarkdown {
				ext = ".md"
			}

			for _, name := range []string{"_overview", "table1", "table2", "tags"} {
				if _, err := os.Stat(filepath.Join(dir, name+ext)); err != nil {
					t.Errorf("Expected file %s%s: %v", name, ext, err)
				}
			}

			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+ext))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(overview), "references: table1") {
				t.Errorf("Expected overview to list references, got:\n%s", overview)
			}

			users, err := os.ReadFile(filepath.Join(dir, "table1"+ext))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(users), "table2.author_id (foreign key)") {
				t.Errorf("Expected incoming foreign key, got:\n%s", users)
			}
			if !strings.Contains(string(users), "tags.parent_id (parent link)") {
				t.Errorf("Expected incoming parent link, got:\n%s", users)
			}
		})
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("markdown") {
		t.Error("Expected text and markdown to be valid")
	}
	if ValidFormat("html") {
		t.Error("Expected html to be invalid")
	}
}
