package domain

import (
	"regexp"
)

// Validation Helpers

var interfaceRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// IsValidInterface checks if the string is a safe interface name (alphanumeric + - _)
func IsValidInterface(iface string) bool {
	// Length check (Linux interfaces are usually short, IFNAMSIZ is 16)
	if len(iface) == 0 || len(iface) > 16 {
		return false
	}
	return interfaceRegex.MatchString(iface)
}
