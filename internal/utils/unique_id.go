package utils

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
)

// GenerateUniqueID generates a public handle in format #WORD-123
func GenerateUniqueID(name string) string {
	prefix := "TRADER"
	if words := strings.Fields(name); len(words) > 0 {
		if p := strings.Map(keepLetterOrDigit, strings.ToUpper(words[0])); p != "" {
			prefix = p
		}
	}
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}

	number := rand.IntN(900) + 100 // 100-999
	return fmt.Sprintf("#%s-%d", prefix, number)
}

// ValidateUniqueID validates the format of a unique ID
func ValidateUniqueID(uniqueID string) bool {
	if len(uniqueID) < 5 || uniqueID[0] != '#' {
		return false
	}

	parts := strings.Split(uniqueID[1:], "-")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func keepLetterOrDigit(r rune) rune {
	if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return r
	}
	return -1
}
