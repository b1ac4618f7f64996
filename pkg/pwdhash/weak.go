package pwdhash

import "strings"

// Low-entropy sequences checked by IsCompromised. Matching is done on the
// lower-cased password, so "QWERTY" and "qwerty" are treated alike.
var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"1234567890",
	"0987654321",
}

// IsCompromised heuristically flags passwords with near-zero entropy: a
// single repeated character, ascending or descending numeric runs, ascending
// alphabetic runs, or common keyboard-row walks. The returned reason is a
// short machine-readable tag. This is a cheap gate, not a strength estimator.
func IsCompromised(password string) (bool, string) {
	if password == "" {
		return false, ""
	}

	lower := strings.ToLower(password)

	if isRepeatedRune(lower) {
		return true, "repeated_character"
	}
	if isSequentialDigits(lower) {
		return true, "sequential_digits"
	}
	if isAscendingLetters(lower) {
		return true, "sequential_letters"
	}
	if isKeyboardWalk(lower) {
		return true, "keyboard_pattern"
	}

	return false, ""
}

func isRepeatedRune(s string) bool {
	runes := []rune(s)
	if len(runes) < 2 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

func isSequentialDigits(s string) bool {
	if len(s) < 3 {
		return false
	}
	asc, desc := true, true
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i == 0 {
			continue
		}
		if s[i] != s[i-1]+1 {
			asc = false
		}
		if s[i] != s[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}

func isAscendingLetters(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := range len(s) {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
		if i > 0 && s[i] != s[i-1]+1 {
			return false
		}
	}
	return true
}

func isKeyboardWalk(s string) bool {
	if len(s) < 3 {
		return false
	}
	for _, row := range keyboardRows {
		if strings.Contains(row, s) {
			return true
		}
	}
	return false
}
