package schema

import (
	"github.com/tordrt/relcsv/internal/value"
)

// PrimaryKeyColumn is the column name promoted to primary key
const PrimaryKeyColumn = "id"

// ForeignKeySuffix marks a scalar column as a reference to another table
const ForeignKeySuffix = "_id"

// Schema describes one inferred table
type Schema struct {
	Name        string
	Columns     []string
	PrimaryKey  string // empty when the shape has no id column
	ForeignKeys []ForeignKey

	// ParentLink is set when rows of this table are reached through nesting
	// and therefore carry the parent row identifier.
	ParentLink bool
	// Sequenced is set when rows of this table are reached as array elements
	// and therefore carry their position within the array.
	Sequenced bool

	IsJunction bool
	// Parents lists the tables whose rows this table's rows were nested in
	Parents []*Schema

	// Origin is the key under which the shape was first seen, empty for the root
	Origin string
	// Prototype is the first object that produced this schema
	Prototype value.Value
}

// ForeignKey is a column referencing another inferred table
type ForeignKey struct {
	Column string
	Ref    *Schema
}

// HasColumn reports whether name is one of the schema's columns
func (s *Schema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// SyntheticColumn returns base, prefixed with underscores until it no longer
// collides with a column of the schema.
func (s *Schema) SyntheticColumn(base string) string {
	name := base
	for s.HasColumn(name) {
		name = "_" + name
	}
	return name
}

func (s *Schema) addForeignKey(column string, ref *Schema) {
	for _, fk := range s.ForeignKeys {
		if fk.Column == column && fk.Ref == ref {
			return
		}
	}
	s.ForeignKeys = append(s.ForeignKeys, ForeignKey{Column: column, Ref: ref})
}

// AddParent records p as a table this schema's rows are nested in
func (s *Schema) AddParent(p *Schema) {
	for _, existing := range s.Parents {
		if existing == p {
			return
		}
	}
	s.Parents = append(s.Parents, p)
}
