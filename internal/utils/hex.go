package utils

import (
	"regexp"
	"strings"
)

var txHashPattern = regexp.MustCompile("^0x[0-9a-fA-F]{64}$")

// EnsureHexPrefix returns s with a 0x prefix, adding one if absent.
func EnsureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// IsTransactionHash reports whether s is a 66-character 0x-prefixed
// 32-byte hex hash.
func IsTransactionHash(s string) bool {
	return txHashPattern.MatchString(s)
}
