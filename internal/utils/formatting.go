package utils

import (
	"regexp"
	"unicode/utf8"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func StripANSI(input string) string {
	return ansiPattern.ReplaceAllString(input, "")
}

// DisplayWidth counts runes once color codes are removed.
func DisplayWidth(s string) int {
	return utf8.RuneCountInString(StripANSI(s))
}

func GetMaxWidth(lines []string) int {
	maxWidth := 0
	for _, line := range lines {
		if n := DisplayWidth(line); n > maxWidth {
			maxWidth = n
		}
	}
	return maxWidth
}
