package controller

import (
	"fmt"
	"regexp"
)

// ID is a content-derived item identifier: exactly 32 or 40 case-insensitive
// alphanumeric characters.
type ID string

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9]{32}$|^[a-zA-Z0-9]{40}$`)

// ParseID validates a raw string as an item identifier.
func ParseID(value string) (ID, error) {
	if length := len(value); length != 32 && length != 40 {
		return "", fmt.Errorf("item id must be 32 or 40 characters, got %d", length)
	}
	if !idPattern.MatchString(value) {
		return "", fmt.Errorf("item id %q contains characters outside a-z, A-Z, 0-9", value)
	}
	return ID(value), nil
}

func (id ID) String() string {
	return string(id)
}

// Short returns a truncated form suitable for filenames and log labels.
func (id ID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}
