// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns raw language-model completions into structured values.
// A failed parse is returned as a *Error so each stage can construct its own
// degraded fallback explicitly.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error reports that a completion could not be parsed into the requested
// structure. Raw holds the fence-stripped completion.
type Error struct {
	Raw string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("parsing model output: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StripFences removes incidental markdown code-fence markers around a
// completion: a leading "```json" or "```" and a trailing "```".
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// JSON strips code fences from raw and strictly decodes the remainder into a
// value of type T. Trailing content after the JSON value is an error.
func JSON[T any](raw string) (T, error) {
	var v T
	content := StripFences(raw)
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&v); err != nil {
		return v, &Error{Raw: content, Err: err}
	}
	if dec.More() {
		return v, &Error{Raw: content, Err: fmt.Errorf("unexpected content after JSON value")}
	}
	return v, nil
}

// Truncate returns at most max characters of s, counting runes rather than
// bytes so multi-byte text is never split.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
