// Package launder sanitizes untrusted filter input into safe typed values.
// A value that fails its check launders to the inactive default (empty
// string or nil) rather than producing an error.
package launder

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	yearRe  = regexp.MustCompile(`^\d{4}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// String coerces an untrusted value into a trimmed string.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// BooleanOrNull coerces an untrusted value into a tri-state boolean.
// Anything that is not recognizably boolean launders to nil.
func BooleanOrNull(value any) *bool {
	if v, ok := value.(bool); ok {
		return &v
	}
	switch strings.ToLower(String(value)) {
	case "true", "t", "1", "y", "yes":
		v := true
		return &v
	case "false", "f", "0", "n", "no":
		v := false
		return &v
	}
	return nil
}

// Year accepts a four digit year, laundering everything else to "".
func Year(value any) string {
	return matching(yearRe, value)
}

// Month accepts a YYYY-MM month, laundering everything else to "".
func Month(value any) string {
	return matching(monthRe, value)
}

// Date accepts a YYYY-MM-DD calendar date, laundering everything else to "".
func Date(value any) string {
	return matching(dateRe, value)
}

func matching(re *regexp.Regexp, value any) string {
	s := String(value)
	if !re.MatchString(s) {
		return ""
	}
	return s
}
