package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON parses a JSON object out of an LLM response, tolerating the
// markdown code fences models like to wrap structured output in.
func ExtractJSON(response string) (map[string]any, error) {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return out, nil
}

// toPayload converts any JSON-marshalable value into the generic map form
// carried in message payloads.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toPayloadList converts a slice of values into generic payload maps.
func toPayloadList[T any](items []T) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		m, err := toPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// stringField returns a string payload field with a default.
func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// mapField returns a nested object payload field, nil when absent.
func mapField(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if mm, ok := v.(map[string]any); ok {
			return mm
		}
	}
	return nil
}

// listField returns a nested array payload field, nil when absent.
func listField(m map[string]any, key string) []any {
	if v, ok := m[key]; ok {
		if l, ok := v.([]any); ok {
			return l
		}
	}
	return nil
}
