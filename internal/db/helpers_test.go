package db

import (
	"context"
	"strings"
	"testing"

	"github.com/tordrt/relcsv/internal/decompose"
	"github.com/tordrt/relcsv/internal/sink"
	"github.com/tordrt/relcsv/internal/value"
)

const sampleDocument = `{
	"id": 1,
	"name": "Ann",
	"nickname": null,
	"posts": [
		{"id": 10, "title": "Hi", "author_id": 1},
		{"id": 11, "title": "Smith, Jr.", "author_id": 1}
	],
	"tags": ["a", "b"]
}`

var sampleTables = map[string][]string{
	"table1": {"_id", "id", "name", "nickname"},
	"table2": {"_id", "id", "title", "author_id", "seq", "parent_id"},
	"tags":   {"parent_id", "index", "value"},
}

// loadSample decomposes sampleDocument into provider
func loadSample(t *testing.T, provider sink.Provider) *decompose.Result {
	t.Helper()

	root, err := value.ParseJSON(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Failed to parse sample: %v", err)
	}

	res, err := decompose.NewEngine(provider).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Failed to decompose sample: %v", err)
	}
	return res
}

// verifyTablesExist checks that all expected tables are present
func verifyTablesExist(t *testing.T, got []string, expectedTables []string) {
	t.Helper()

	tableMap := make(map[string]bool)
	for _, name := range got {
		tableMap[name] = true
	}

	for _, tableName := range expectedTables {
		if !tableMap[tableName] {
			t.Errorf("Expected table %s not found in %v", tableName, got)
		}
	}
}

// verifyColumns checks that a table has exactly the expected columns, in order
func verifyColumns(t *testing.T, tableName string, got []string, expectedColumns []string) {
	t.Helper()

	if strings.Join(got, ",") != strings.Join(expectedColumns, ",") {
		t.Errorf("Expected columns %v in %s table, got %v", expectedColumns, tableName, got)
	}
}
