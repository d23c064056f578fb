// Package formatting holds small parsers and formatters shared by the API
// and the verification pipeline: byte sizes for upload limits and JSON
// extraction for model output.
package formatting

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Size is a byte count that prints and parses in base-1024 units.
type Size int64

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// String renders s with one decimal place, dropping a trailing ".0".
func (s Size) String() string {
	num, unit, _ := strings.Cut(FormatBytes(int64(s), 1), " ")
	return strings.TrimSuffix(num, ".0") + " " + unit
}

// UnmarshalText lets a Size be read straight from TOML or env values.
func (s *Size) UnmarshalText(text []byte) error {
	n, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*s = Size(n)
	return nil
}

// FormatBytes renders n with precision decimal places in the largest unit
// that keeps the value at or above one. Negative precision is treated as 0.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	if n == 0 {
		return "0 B"
	}

	exp := min(int(math.Log(math.Abs(float64(n)))/math.Log(1024)), len(sizeUnits)-1)
	value := float64(n) / math.Pow(1024, float64(exp))
	return strconv.FormatFloat(value, 'f', precision, 64) + " " + sizeUnits[exp]
}

// ParseBytes reads sizes such as "512", "20MB", "1.5 gb". A number with no
// unit is bytes. Units are case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if number == "" {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	if unit == "" {
		return int64(value), nil
	}

	exp := slices.Index(sizeUnits, strings.ToUpper(unit))
	if exp < 0 {
		return 0, fmt.Errorf("unknown byte size unit %q", unit)
	}
	return int64(value * math.Pow(1024, float64(exp))), nil
}
