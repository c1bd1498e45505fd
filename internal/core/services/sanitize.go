package services

import (
	"strings"
	"unicode"
)

// Sanitize reports whether a raw query is well-formed enough to resolve.
// It returns the trimmed query and false for empty input, digits-only
// input, short single-character repeats, input without any letter or
// digit, and bare Hangul jamo fragments.
func Sanitize(question string) (string, bool) {
	q := strings.TrimSpace(question)
	if q == "" {
		return q, false
	}
	runes := []rune(q)

	if isAllDigits(runes) {
		return q, false
	}

	if len(runes) <= 5 && isAllLetters(runes) && distinctRunes(runes) <= 2 {
		return q, false
	}

	hasAlnum := false
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
			break
		}
	}
	if !hasAlnum {
		return q, false
	}

	allJamo := true
	for _, r := range runes {
		if !isCompatibilityJamo(r) && !unicode.IsSpace(r) {
			allJamo = false
			break
		}
	}
	if allJamo {
		return q, false
	}

	return q, true
}

// IsMeaningful is the fallback relevance test for queries without a
// domain keyword: at least two runes, not only digits, and at least one
// letter or digit.
func IsMeaningful(q string) bool {
	runes := []rune(strings.TrimSpace(q))
	if len(runes) < 2 || isAllDigits(runes) {
		return false
	}
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isAllDigits(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(runes) > 0
}

func isAllLetters(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(runes) > 0
}

func distinctRunes(runes []rune) int {
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// isCompatibilityJamo covers consonants (ㄱ..ㅎ) and vowels (ㅏ..ㅣ).
func isCompatibilityJamo(r rune) bool {
	return r >= 'ㄱ' && r <= 'ㅣ'
}
