package value

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes an indented, human-readable view of the tree
func Dump(w io.Writer, v Value) error {
	return dump(w, v, 0, "")
}

func dump(w io.Writer, v Value, depth int, label string) error {
	indent := strings.Repeat("  ", depth)
	if label != "" {
		label += ": "
	}

	switch v.Kind() {
	case KindObject:
		if _, err := fmt.Fprintf(w, "%s%sObject (%d pairs)\n", indent, label, v.Len()); err != nil {
			return err
		}
		for _, p := range v.Pairs() {
			if err := dump(w, p.Value, depth+1, strconv.Quote(p.Key)); err != nil {
				return err
			}
		}
	case KindArray:
		if _, err := fmt.Fprintf(w, "%s%sArray (%d elements)\n", indent, label, v.Len()); err != nil {
			return err
		}
		for i, e := range v.Elements() {
			if err := dump(w, e, depth+1, fmt.Sprintf("[%d]", i)); err != nil {
				return err
			}
		}
	case KindString:
		_, err := fmt.Fprintf(w, "%s%sString %s\n", indent, label, strconv.Quote(v.Str()))
		return err
	case KindNumber:
		text := v.NumText()
		if text == "" {
			text = strconv.FormatFloat(v.Num(), 'g', -1, 64)
		}
		_, err := fmt.Fprintf(w, "%s%sNumber %s\n", indent, label, text)
		return err
	case KindBoolean:
		_, err := fmt.Fprintf(w, "%s%sBoolean %t\n", indent, label, v.BoolValue())
		return err
	default:
		_, err := fmt.Fprintf(w, "%s%sNull\n", indent, label)
		return err
	}
	return nil
}
