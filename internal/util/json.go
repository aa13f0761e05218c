package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model answer contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in text")

// DecodeJSONAnswer decodes the first JSON object embedded in a model answer
// into v. Markdown code fences and surrounding prose are ignored.
func DecodeJSONAnswer(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start < 0 || end < start {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decode JSON answer: %w", err)
	}

	return nil
}
