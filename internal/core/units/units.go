// Package units parses quantities written with a unit suffix ("55um", "90deg")
// into the internal system: millimetres for lengths, radians for angles.
// A bare number is taken to be in internal units already
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var factors = map[string]float64{
	"nm":   1e-6,
	"um":   1e-3,
	"mm":   1,
	"cm":   10,
	"m":    1e3,
	"rad":  1,
	"mrad": 1e-3,
	"deg":  math.Pi / 180,
}

// Known reports whether unit is a recognised suffix
func Known(unit string) bool {
	_, ok := factors[strings.ToLower(unit)]
	return ok
}

// Convert returns v expressed in internal units
func Convert(v float64, unit string) (float64, error) {
	if unit == "" {
		return v, nil
	}
	f, ok := factors[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	return v * f, nil
}

// Parse reads a single quantity such as "55um", "55 um", "-1.5mm" or "0.3"
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	i := numberEnd(s)
	if i == 0 {
		return 0, fmt.Errorf("quantity %q does not start with a number", s)
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", s, err)
	}
	return Convert(v, strings.TrimSpace(s[i:]))
}

// ParseList reads a list of quantities separated by commas or whitespace,
// e.g. "1.5mm 2mm" or "55um, 55um". Each element carries its own unit
func ParseList(s string) ([]float64, error) {
	var fields []string
	if strings.Contains(s, ",") {
		fields = strings.Split(s, ",")
	} else {
		fields = strings.Fields(s)
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			continue
		}
		v, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty quantity list")
	}
	return out, nil
}

// numberEnd returns the length of the numeric prefix of s
func numberEnd(s string) int {
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c == '.':
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (c == 'e' || c == 'E') && i > 0 && i+1 < len(s) && strings.IndexByte("0123456789+-", s[i+1]) >= 0:
		default:
			return i
		}
		i++
	}
	return i
}
