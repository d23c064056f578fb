package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrParseFailed is returned when no JSON value can be recovered from
// model output.
var ErrParseFailed = errors.New("failed to parse response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// maxQuoted bounds how much of the rejected content an error carries.
const maxQuoted = 200

// Parse decodes model output into T. It tries, in order, the whole
// trimmed text, each fenced code block, and the first balanced object.
func Parse[T any](content string) (T, error) {
	content = strings.TrimSpace(content)

	for candidate := range candidates(content) {
		var v T
		if json.Unmarshal([]byte(candidate), &v) == nil {
			return v, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("%w: %s", ErrParseFailed, quote(content))
}

func candidates(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if content == "" || !yield(content) {
			return
		}
		for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
			if !yield(strings.TrimSpace(m[1])) {
				return
			}
		}
		if obj, ok := FirstObject(content); ok {
			yield(obj)
		}
	}
}

func quote(s string) string {
	if utf8.RuneCountInString(s) <= maxQuoted {
		return s
	}
	return string([]rune(s)[:maxQuoted]) + "..."
}

// FirstObject returns the first brace-balanced JSON object in content.
// Braces inside string literals are ignored. Reports false when no
// complete object exists.
func FirstObject(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]

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
				return content[start : i+1], true
			}
		}
	}

	return "", false
}
