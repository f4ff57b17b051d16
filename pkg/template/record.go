// record.go - Turn record values into the text drawn into a box.
package template

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Text returns the string for key in rec. A missing key yields "".
func (rec Record) Text(key string) string {
	if rec == nil {
		return ""
	}
	v, ok := rec[key]
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Stringify converts a decoded JSON value to display text. Numbers print in
// their shortest form without a trailing ".0"; null prints as "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatNumber(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return formatNumber(f)
		}
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// formatNumber prints f the way JavaScript's Number toString does: plain
// decimals for 1e-6 <= |f| < 1e21, exponent form ("1e-7", "1.5e+21")
// outside that range.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
