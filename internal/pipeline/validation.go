package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// dateLayouts are the statement date formats banks commonly export. Month-first
// layouts are tried before day-first ones. Single-digit layouts also accept
// zero-padded input.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// numericPrefix matches the longest leading decimal literal of a string,
// capturing the mantissa and the exponent digits separately.
var numericPrefix = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d+)?|\.\d+))(?:[eE]([+-]?\d+))?`)

// maxAmountExponent bounds the exponent of an amount to the float64 range.
// Larger magnitudes coerce to zero instead of expanding into huge numbers.
const maxAmountExponent = 308

var descriptionReplacer = strings.NewReplacer("<", "", ">", "")

// ParseDate parses a statement date in any supported layout.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("ParseDate: unrecognised date %q", s)
}

// IsValidDate reports whether s is a parseable calendar date.
func IsValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ParseAmount reads the numeric prefix of s, so "12.5 GBP" yields 12.5.
// Text without a numeric prefix yields zero; this is never an error.
func ParseAmount(s string) decimal.Decimal {
	m := numericPrefix.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero
	}
	if m[2] == "" {
		return d
	}
	exp, err := strconv.Atoi(m[2])
	if err != nil || exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero
	}
	return d.Shift(int32(exp))
}

// IsValidAmount reports whether the whole of s is a number within the
// range ParseAmount keeps.
func IsValidAmount(s string) bool {
	s = strings.TrimSpace(s)
	m := numericPrefix.FindStringSubmatch(s)
	if m == nil || len(m[0]) != len(s) {
		return false
	}
	if m[2] == "" {
		return true
	}
	exp, err := strconv.Atoi(m[2])
	return err == nil && exp <= maxAmountExponent && exp >= -maxAmountExponent
}

// SanitizeDescription trims s and strips angle brackets.
func SanitizeDescription(s string) string {
	return strings.TrimSpace(descriptionReplacer.Replace(s))
}
