package service

import "errors"

var (
	ErrNoJSONObject       = errors.New("model did not return a JSON object")
	ErrUnbalancedJSONBody = errors.New("model returned an unterminated JSON object")
)

// ExtractJSONObject returns the first balanced {...} region of text. Braces
// inside JSON strings are ignored. No other recovery is attempted.
func ExtractJSONObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	if start < 0 {
		return "", ErrNoJSONObject
	}
	return "", ErrUnbalancedJSONBody
}
