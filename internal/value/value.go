// Package value holds the parsed document tree consumed by the decomposer.
package value

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// IsScalar reports whether the kind is a leaf (string, number, boolean or null)
func (k Kind) IsScalar() bool {
	return k != KindObject && k != KindArray
}

// Pair is one key/value entry of an object
type Pair struct {
	Key   string
	Value Value
}

// Value is a node of the document tree. The zero Value is null.
//
// Values are immutable once built: accessors return the underlying slices,
// callers must not modify them.
type Value struct {
	kind    Kind
	pairs   []Pair
	elems   []Value
	str     string
	num     float64
	numText string
	boolean bool
}

// Object builds an object value; pair order is preserved
func Object(pairs ...Pair) Value {
	return Value{kind: KindObject, pairs: pairs}
}

// Array builds an array value
func Array(elems ...Value) Value {
	return Value{kind: KindArray, elems: elems}
}

// String builds a string value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number builds a number value without a source literal
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// NumberText builds a number value that remembers the literal it was parsed from
func NumberText(text string, f float64) Value {
	return Value{kind: KindNumber, num: f, numText: text}
}

// Bool builds a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

// Null returns the null value
func Null() Value {
	return Value{}
}

// P is shorthand for building a Pair
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

func (v Value) Kind() Kind { return v.kind }

// Pairs returns the pairs of an object in document order, nil for other kinds
func (v Value) Pairs() []Pair {
	if v.kind != KindObject {
		return nil
	}
	return v.pairs
}

// Elements returns the elements of an array in document order, nil for other kinds
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.elems
}

// Len returns the number of pairs or elements
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.pairs)
	case KindArray:
		return len(v.elems)
	}
	return 0
}

func (v Value) Str() string { return v.str }
func (v Value) Num() float64 { return v.num }
func (v Value) BoolValue() bool { return v.boolean }
func (v Value) NumText() string { return v.numText }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }

// Lookup finds the first pair with the given key
func (v Value) Lookup(key string) (Value, bool) {
	for _, p := range v.Pairs() {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the object contains the key
func (v Value) Has(key string) bool {
	_, ok := v.Lookup(key)
	return ok
}
