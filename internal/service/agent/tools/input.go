package tools

import (
	"fmt"
	"strings"
)

// stringParam extracts a required string parameter from tool input.
func stringParam(input map[string]interface{}, key string) (string, error) {
	value, exists := input[key]
	if !exists {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("parameter %s cannot be empty", key)
	}
	return s, nil
}

// optionalStringParam extracts an optional string parameter. An absent key or
// empty string returns "".
func optionalStringParam(input map[string]interface{}, key string) (string, error) {
	value, exists := input[key]
	if !exists || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	return strings.TrimSpace(s), nil
}

// rawStringParam extracts an optional string parameter without trimming.
// Used for file content, where whitespace is significant.
func rawStringParam(input map[string]interface{}, key string) (string, error) {
	value, exists := input[key]
	if !exists || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	return s, nil
}

// stringSliceParam extracts a required array-of-strings parameter. JSON
// arrays arrive as []interface{}.
func stringSliceParam(input map[string]interface{}, key string) ([]string, error) {
	value, exists := input[key]
	if !exists {
		return nil, fmt.Errorf("missing required parameter: %s", key)
	}
	raw, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %s must be an array of strings", key)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parameter %s cannot be empty", key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s must contain only strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// parentParam resolves the optional parentId parameter. An absent or empty
// value means root level and returns nil.
func parentParam(input map[string]interface{}) (*string, error) {
	parent, err := optionalStringParam(input, "parentId")
	if err != nil {
		return nil, err
	}
	if parent == "" {
		return nil, nil
	}
	return &parent, nil
}
