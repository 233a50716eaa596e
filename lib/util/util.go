// Package util contains helper functions used around the code.
package util

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// Shorten abbreviates a signature or content hash for log and console
// output, keeping both ends so the value stays recognisable.
func Shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
