package mysql

import "strings"

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// nonNil keeps NOT NULL payload columns happy.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
