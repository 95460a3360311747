package pipeline

import (
	"math"
	"strconv"
	"strings"
)

// ConvertAttributes turns a string-keyed attribute map into the typed map
// sent outbound. In pass-through mode values stay strings; in coercion
// mode each value gets a best-effort scalar conversion. Nil in, nil out.
func ConvertAttributes(attributes map[string]string, coerce bool) map[string]any {
	if attributes == nil {
		return nil
	}
	converted := make(map[string]any, len(attributes))
	for key, value := range attributes {
		if coerce {
			converted[key] = CoerceValue(value)
		} else {
			converted[key] = value
		}
	}
	return converted
}

// CoerceValue converts one string to a bool, int, or float64 when it
// parses cleanly as one, and returns the original string otherwise. It
// never fails: unparseable input is simply kept as-is.
//
// A numeric value only becomes an int when the string itself is an
// integer literal; "42.0" parses as a whole float but stays a string,
// matching the upstream behavior.
func CoerceValue(value string) any {
	if value == "" {
		return value
	}
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	if f == math.Trunc(f) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return value
		}
		return n
	}
	return f
}
