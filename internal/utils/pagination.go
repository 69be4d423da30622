// Package utils provides tiny helpers shared across layers with no domain
// knowledge of their own.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int and falls back to def on empty or
// unparseable input. Used for query-string paging parameters where a bad
// value should mean "use the default page" rather than an error.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
