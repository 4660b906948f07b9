package decompose

import (
	"math"
	"strconv"

	"github.com/tordrt/relcsv/internal/sink"
	"github.com/tordrt/relcsv/internal/value"
)

// RenderScalar converts a scalar into a table field. Null, objects and
// arrays render as null fields.
func RenderScalar(v value.Value) sink.Field {
	switch v.Kind() {
	case value.KindString:
		return sink.Text(v.Str())
	case value.KindNumber:
		return sink.Text(FormatNumber(v))
	case value.KindBoolean:
		if v.BoolValue() {
			return sink.Text("true")
		}
		return sink.Text("false")
	default:
		return sink.Null()
	}
}

// FormatNumber returns the literal a number was parsed from, or the shortest
// decimal form that round-trips. Integral values below 1e21 never use an
// exponent.
func FormatNumber(v value.Value) string {
	if text := v.NumText(); text != "" {
		return text
	}

	f := v.Num()
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
