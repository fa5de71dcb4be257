package utils

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// IsValidPath reports whether p is a usable transfer directory: non-empty,
// printable and not climbing out of its base with "..".
func IsValidPath(p string) bool {
	if p == "" || strings.Contains(p, "\x00") {
		return false
	}

	for _, r := range p {
		if !unicode.IsPrint(r) {
			return false
		}
	}

	cleanPath := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleanPath == ".." || strings.HasPrefix(cleanPath, "../") || strings.Contains(cleanPath, "/../") {
		return false
	}
	return true
}

// ValidateHostname checks host as an RFC 1123 name or dotted IPv4
// address.
func ValidateHostname(host string) error {
	if len(host) == 0 || len(host) > 253 {
		return fmt.Errorf("invalid hostname: %s", host)
	}
	labelLen := 0
	labelStart := 0
	for i := 0; i <= len(host); i++ {
		var c byte
		if i < len(host) {
			c = host[i]
		}
		if i == len(host) || c == '.' {
			if labelLen == 0 || host[labelStart] == '-' || host[i-1] == '-' {
				return fmt.Errorf("invalid hostname: %s", host)
			}
			labelLen = 0
			labelStart = i + 1
			continue
		}
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			labelLen++
			if labelLen > 63 {
				return fmt.Errorf("invalid hostname: %s", host)
			}
		} else {
			return fmt.Errorf("invalid hostname: %s", host)
		}
	}
	return nil
}
