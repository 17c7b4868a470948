// Package decode is the one place model output is turned into typed payloads.
// Every failure is reported as ai.ErrUnparseable.
package decode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

var validate = validator.New()

// Normalizer is implemented by payloads that clean themselves up before validation.
type Normalizer interface {
	Normalize()
}

// JSON extracts the JSON value embedded in raw (code fences and surrounding
// prose are tolerated), decodes it into out, normalizes and validates it.
func JSON(raw string, out any) error {
	body, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
	}
	return Check(out)
}

// Check normalizes and validates an already decoded payload.
func Check(out any) error {
	if n, ok := out.(Normalizer); ok {
		n.Normalize()
	}
	if !isStruct(out) {
		return nil
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
	}
	return nil
}

// Extract returns the first complete JSON object or array found in raw.
func Extract(raw string) (string, error) {
	s := strings.TrimSpace(stripFences(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty response", ai.ErrUnparseable)
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON value in response", ai.ErrUnparseable)
	}
	end := matchingClose(s, start)
	if end < 0 {
		return "", fmt.Errorf("%w: truncated JSON in response", ai.ErrUnparseable)
	}
	body := s[start : end+1]
	if !json.Valid([]byte(body)) {
		return "", fmt.Errorf("%w: invalid JSON in response", ai.ErrUnparseable)
	}
	return body, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return s
}

// matchingClose finds the bracket closing the one at start, skipping strings.
func matchingClose(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
