package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultGridUnit is the canvas distance of one grid cell.
const DefaultGridUnit = 30.0

// degreeMarker ends a field holding an angle, e.g. "90d".
const degreeMarker = "d"

// ErrFieldCount is returned when a transform is submitted with other than 9 fields.
var ErrFieldCount = errors.New("transform needs exactly 9 fields")

// ParseElement converts one raw field to a matrix element.
//
// In the rotation block (E11, E12, E21, E22) a value ending in "d" is an angle
// in degrees and becomes cos, -sin, sin or cos of that angle. Everywhere else
// the marker is dropped and the number is used as-is.
//
// Only the leading number of a field is read, so "3px" is 3 and "45deg" is 45.
// A field with no leading number, or one that overflows, becomes 0. That
// includes an angle field such as "xd", which is 0 rather than cos(0).
func ParseElement(raw string, index int) float64 {
	value := strings.ToLower(strings.TrimSpace(raw))

	if numeric, ok := strings.CutSuffix(value, degreeMarker); ok {
		degrees, ok := parseNumber(numeric)
		if !ok {
			return 0
		}
		radians := degreesToRadians(degrees)
		switch index {
		case E11, E22:
			return math.Cos(radians)
		case E12:
			return -math.Sin(radians)
		case E21:
			return math.Sin(radians)
		default:
			return degrees
		}
	}

	f, _ := parseNumber(value)
	return f
}

// parseNumber reads the decimal number at the start of s, ignoring whatever
// follows it. ok is false when there is none or it is out of range.
func parseNumber(s string) (f float64, ok bool) {
	s = strings.TrimSpace(s)
	end := numberPrefix(s)
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// numberPrefix returns the length of the longest prefix of s of the form
// [+-] digits [. digits] [e [+-] digits], with digits required on at least
// one side of the point.
func numberPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := countDigits(s[i:])
	i += digits
	if i < len(s) && s[i] == '.' {
		if frac := countDigits(s[i+1:]); digits+frac > 0 {
			i += 1 + frac
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if exp := countDigits(s[j:]); exp > 0 {
			i = j + exp
		}
	}
	return i
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// ParseTransform converts 9 row-major fields to a step matrix.
// Translation fields are given in grid cells and scaled by gridUnit.
func ParseTransform(fields []string, gridUnit float64) (Matrix3, error) {
	if len(fields) != 9 {
		return Identity(), fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}

	var m Matrix3
	for i, raw := range fields {
		m[i] = ParseElement(raw, i)
	}
	m[E13] *= gridUnit
	m[E23] *= gridUnit
	return m, nil
}

// DisplayMatrix converts translation back to grid cells for showing a total to the user.
func DisplayMatrix(m Matrix3, gridUnit float64) Matrix3 {
	if gridUnit == 0 {
		return m
	}
	m[E13] /= gridUnit
	m[E23] /= gridUnit
	return m
}

// IdentityFields returns the field values an input form resets to after Apply.
func IdentityFields() []string {
	return []string{
		"1", "0", "0",
		"0", "1", "0",
		"0", "0", "1",
	}
}
