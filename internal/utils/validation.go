package utils

import (
	"regexp"
)

// HostNameRegex matches names that are safe to embed in backup file names.
var HostNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsValidHostName checks if name can identify a host.
func IsValidHostName(name string) bool {
	return HostNameRegex.MatchString(name)
}

// IsOneOf checks if the value is one of the allowed options.
func IsOneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// IsValidPort checks if the port is within lawful range
func IsValidPort(port int) bool {
	return port > 0 && port <= 65535
}
