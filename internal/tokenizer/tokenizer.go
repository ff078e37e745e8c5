// Package tokenizer splits command input into arguments.
//
// A token is a double-quoted span, a single-quoted span, or a run of
// characters that are neither whitespace nor quotes. Quotes are stripped and
// nothing inside them is escaped. A quote with no closing partner is dropped
// and acts as a token boundary, so `a "b c` yields [a b c].
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize returns the tokens of text in order. Empty input yields an empty,
// non-nil slice.
func Tokenize(text string) []string {
	tokens := []string{}
	runes := []rune(text)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isQuote(r):
			end := indexRune(runes, i+1, r)
			if end < 0 {
				// Unterminated: skip the quote itself.
				i++
				continue
			}
			tokens = append(tokens, string(runes[i+1:end]))
			i = end + 1
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !isQuote(runes[i]) {
				i++
			}
			tokens = append(tokens, string(runes[start:i]))
		}
	}
	return tokens
}

// Split separates the command name from its arguments. ok is false when text
// does not start with prefix or names no command.
func Split(text, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return "", nil, false
	}
	name = strings.TrimPrefix(tokens[0], prefix)
	if name == "" {
		return "", nil, false
	}
	return name, tokens[1:], true
}

func isQuote(r rune) bool {
	return r == '"' || r == '\''
}

func indexRune(runes []rune, from int, target rune) int {
	for j := from; j < len(runes); j++ {
		if runes[j] == target {
			return j
		}
	}
	return -1
}
