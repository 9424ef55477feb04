package utils

import (
	"os"
	"strings"
)

// JoinPath appends name to base with exactly one separator between them.
// An empty base yields name unchanged so that relative layouts resolve
// against the working directory. Unlike filepath.Join the base is not cleaned.
func JoinPath(base, name string) string {
	if base == "" {
		return name
	}
	trimmed := strings.TrimRight(base, string(os.PathSeparator))
	if trimmed == "" {
		// base was the filesystem root
		return string(os.PathSeparator) + name
	}
	return trimmed + string(os.PathSeparator) + name
}
