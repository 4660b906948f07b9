package formatter

import (
	"github.com/tordrt/relcsv/internal/schema"
)

// Table is one output table: the inferred schema and the header written for it
type Table struct {
	Schema *schema.Schema
	Header []string
	Rows   int
}

// Role tells what a header column holds
type Role int

const (
	RoleData Role = iota
	RoleSurrogate
	RoleSequence
	RoleParent
	RoleIndex
	RoleValue
)

func (r Role) String() string {
	switch r {
	case RoleSurrogate:
		return "row id"
	case RoleSequence:
		return "array position"
	case RoleParent:
		return "parent row id"
	case RoleIndex:
		return "element index"
	case RoleValue:
		return "element value"
	}
	return "value"
}

// Column is one header column with its role and, for foreign keys, the
// referenced table
type Column struct {
	Name       string
	Role       Role
	PrimaryKey bool
	Ref        *schema.Schema
}

// Columns classifies the header columns of t
func (t Table) Columns() []Column {
	s := t.Schema
	cols := make([]Column, 0, len(t.Header))

	if s.IsJunction {
		roles := []Role{RoleParent, RoleIndex, RoleValue}
		for i, name := range t.Header {
			role := RoleData
			if i < len(roles) {
				role = roles[i]
			}
			cols = append(cols, Column{Name: name, Role: role})
		}
		return cols
	}

	for i, name := range t.Header {
		col := Column{Name: name}
		switch data := i - 1; {
		case i == 0:
			col.Role = RoleSurrogate
		case data < len(s.Columns):
			col.PrimaryKey = name == s.PrimaryKey
			col.Ref = foreignKeyRef(s, name)
		case s.Sequenced && data == len(s.Columns):
			col.Role = RoleSequence
		default:
			col.Role = RoleParent
		}
		cols = append(cols, col)
	}
	return cols
}

// NestedRefs returns the foreign keys that point into nested objects rather
// than from a scalar column
func (t Table) NestedRefs() []schema.ForeignKey {
	var refs []schema.ForeignKey
	for _, fk := range t.Schema.ForeignKeys {
		if !t.Schema.HasColumn(fk.Column) {
			refs = append(refs, fk)
		}
	}
	return refs
}

// Incoming describes a reference from another table to this one
type Incoming struct {
	Table  string
	Column string
	Parent bool
}

// IncomingRefs lists the references pointing at target, both scalar foreign
// keys and parent links, in table order
func IncomingRefs(target *schema.Schema, tables []Table) []Incoming {
	var incoming []Incoming
	for _, t := range tables {
		for _, col := range t.Columns() {
			switch {
			case col.Ref == target:
				incoming = append(incoming, Incoming{Table: t.Schema.Name, Column: col.Name})
			case col.Role == RoleParent && hasParent(t.Schema, target):
				incoming = append(incoming, Incoming{Table: t.Schema.Name, Column: col.Name, Parent: true})
			}
		}
	}
	return incoming
}

func foreignKeyRef(s *schema.Schema, column string) *schema.Schema {
	for _, fk := range s.ForeignKeys {
		if fk.Column == column {
			return fk.Ref
		}
	}
	return nil
}

func hasParent(s, parent *schema.Schema) bool {
	for _, p := range s.Parents {
		if p == parent {
			return true
		}
	}
	return false
}

func parentNames(s *schema.Schema) []string {
	names := make([]string, 0, len(s.Parents))
	for _, p := range s.Parents {
		names = append(names, p.Name)
	}
	return names
}

func refTarget(ref *schema.Schema) string {
	if ref.PrimaryKey == "" {
		return ref.Name
	}
	return ref.Name + "." + ref.PrimaryKey
}
