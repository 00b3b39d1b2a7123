// Package parse extracts structured values from free-form model responses.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrNoObject is returned when a response carries no JSON object.
var ErrNoObject = errors.New("no JSON object in response")

// JSONObject extracts the first JSON object from a model response.
// Markdown code fences and surrounding prose are tolerated.
func JSONObject(response string) (map[string]any, error) {
	text := stripCodeFence(strings.TrimSpace(response))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, ErrNoObject
	}

	var out map[string]any
	if err := sonic.ConfigStd.UnmarshalFromString(text[start:end+1], &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if out == nil {
		return nil, ErrNoObject
	}
	return out, nil
}

// stripCodeFence returns the body of the first ``` block, or text unchanged.
func stripCodeFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	// Drop the info string (e.g. "json").
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if closing := strings.Index(body, "```"); closing >= 0 {
		body = body[:closing]
	}
	return strings.TrimSpace(body)
}
