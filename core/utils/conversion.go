package utils

import (
	"strconv"
	"strings"
)

// ToBool parses descriptor style booleans ("true", "1", "yes", "on").
// Empty or unparsable values return def.
func ToBool(val string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// ToInt parses a decimal integer, returning def when val is empty or invalid.
func ToInt(val string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return i
}
