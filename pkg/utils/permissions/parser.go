// Package permissions provides small helpers for working with octal file
// permission values in conf records and discovery.
package permissions

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOctalString parses an octal permission string such as "755", "0755"
// or "0o755" into a mode value.
func ParseOctalString(s string) (uint16, error) {
	if s == "" {
		return 0, fmt.Errorf("empty permission string")
	}

	s = strings.TrimPrefix(s, "0o")
	s = strings.TrimPrefix(s, "0")
	if s == "" {
		return 0, nil
	}

	val, err := strconv.ParseUint(s, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	return uint16(val), nil
}

// FormatOctal formats a permission value as an octal string.
func FormatOctal(perm uint16) string {
	return fmt.Sprintf("0%o", perm)
}

// IsExecutable reports whether any execute bit is set. The check is on the
// permission bits alone, not on whether the current user could run the file.
func IsExecutable(perm uint16) bool {
	return perm&0o111 != 0
}
