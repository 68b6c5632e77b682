package utils

import "math"

// IsAlphanumeric reports whether s is non-empty and made only of ASCII letters and digits.
func IsAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// AbsInt coerces n to a non-negative integer. math.MinInt64 has no positive counterpart
// and saturates to math.MaxInt64.
func AbsInt(n int64) int64 {
	if n == math.MinInt64 {
		return math.MaxInt64
	}
	if n < 0 {
		return -n
	}
	return n
}
