package util

import (
	"strings"
)

// FindLineRange finds the start and end line numbers (1-based) for the first occurrence
// of needle in content. If not found, returns (0,0).
func FindLineRange(content, needle string) (start, end int) {
	if needle == "" {
		return 0, 0
	}
	idx := strings.Index(content, needle)
	if idx < 0 {
		return 0, 0
	}
	before := content[:idx]
	start = strings.Count(before, "\n") + 1
	end = start + strings.Count(needle, "\n")
	return
}

// ReferenceNeedles returns the strings a source file would contain when it
// refers to the dotted class name: its fully-qualified name, then its simple
// name (outer class for nested classes).
func ReferenceNeedles(className string) []string {
	outer, _, _ := strings.Cut(className, "$")
	needles := []string{outer}
	if i := strings.LastIndexByte(outer, '.'); i >= 0 && i < len(outer)-1 {
		needles = append(needles, outer[i+1:])
	}
	return needles
}

// FindReference returns the first line of content mentioning className, or 0.
func FindReference(content, className string) int {
	for _, n := range ReferenceNeedles(className) {
		if start, _ := FindLineRange(content, n); start > 0 {
			return start
		}
	}
	return 0
}
