package value

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"
)

// Input formats understood by Parse
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrEmptyDocument is returned when the input holds no value at all
var ErrEmptyDocument = errors.New("empty document")

// ParseFile reads and parses the document at path.
// The format is picked from the extension (.json, .yaml, .yml); a trailing
// .xz means the file is xz-compressed. Unknown extensions are read as JSON.
func ParseFile(path string) (Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return Value{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".xz") {
		xzr, err := xz.NewReader(r)
		if err != nil {
			return Value{}, fmt.Errorf("failed to open xz stream: %w", err)
		}
		r = xzr
		name = strings.TrimSuffix(name, ".xz")
	}

	return Parse(r, DetectFormat(name))
}

// DetectFormat maps a file name to an input format
func DetectFormat(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse reads one document in the given format
func Parse(r io.Reader, format string) (Value, error) {
	switch format {
	case FormatJSON, "":
		return ParseJSON(r)
	case FormatYAML:
		return ParseYAML(r)
	default:
		return Value{}, fmt.Errorf("unsupported input format: %s", format)
	}
}

// ParseJSON decodes a single JSON document, keeping object key order and
// the literal text of numbers.
func ParseJSON(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return Value{}, ErrEmptyDocument
	}
	if err != nil {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	v, err := decodeJSON(dec, tok)
	if err != nil {
		return Value{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return Value{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return Value{}, fmt.Errorf("failed to parse JSON: unexpected data after top-level value")
	}

	return v, nil
}

func decodeJSON(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var pairs []Pair
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, not a string", keyTok)
				}
				next, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				v, err := decodeJSON(dec, next)
				if err != nil {
					return Value{}, err
				}
				pairs = append(pairs, Pair{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(pairs...), nil
		case '[':
			var elems []Value
			for dec.More() {
				next, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				v, err := decodeJSON(dec, next)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(elems...), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return String(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NumberText(t.String(), f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// ParseYAML decodes a single YAML document. Mapping order is preserved and
// aliases are expanded in place. A stream holding further documents is
// rejected.
func ParseYAML(r io.Reader) (Value, error) {
	dec := yaml.NewDecoder(r)

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return Value{}, ErrEmptyDocument
		}
		return Value{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err != nil {
			return Value{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return Value{}, fmt.Errorf("failed to parse YAML: unexpected data after the first document")
	}

	node := &doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return Value{}, ErrEmptyDocument
		}
		node = node.Content[0]
	}

	v, err := fromYAML(node)
	if err != nil {
		return Value{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return v, nil
}

func fromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.MappingNode:
		pairs := make([]Pair, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if keyNode.Kind == yaml.AliasNode {
				keyNode = keyNode.Alias
			}
			if keyNode.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}
			v, err := fromYAML(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: keyNode.Value, Value: v})
		}
		return Object(pairs...), nil
	case yaml.SequenceNode:
		elems := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := fromYAML(child)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return Array(elems...), nil
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.ScalarNode:
		return yamlScalar(node)
	}
	return Value{}, fmt.Errorf("line %d: unsupported YAML node", node.Line)
}

func yamlScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var x any
		if err := node.Decode(&x); err != nil {
			return Value{}, err
		}
		switch n := x.(type) {
		case int:
			return NumberText(strconv.Itoa(n), float64(n)), nil
		case int64:
			return NumberText(strconv.FormatInt(n, 10), float64(n)), nil
		case uint64:
			return NumberText(strconv.FormatUint(n, 10), float64(n)), nil
		case float64:
			if _, err := strconv.ParseFloat(node.Value, 64); err == nil {
				return NumberText(node.Value, n), nil
			}
			return Number(n), nil
		}
		return String(node.Value), nil
	default:
		return String(node.Value), nil
	}
}
