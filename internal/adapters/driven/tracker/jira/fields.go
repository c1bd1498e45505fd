package jira

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Bounds for guessing a story-point value from an unknown custom field.
const (
	minGuessedPoints = 0.5
	maxGuessedPoints = 100
)

// ExtractStoryPoints returns the estimate from the first field in priority
// that holds a positive number. A priority field explicitly set to zero
// yields zero. When no priority field is populated, any custom field with
// a plausible numeric value is used, in field-name order.
func ExtractStoryPoints(fields map[string]json.RawMessage, priority []string) float64 {
	for _, key := range priority {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		v, zero := numericValue(raw)
		if v > 0 {
			return v
		}
		if zero {
			return 0
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasPrefix(k, "customfield_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		var f float64
		if string(fields[k]) != "null" && json.Unmarshal(fields[k], &f) == nil && f >= minGuessedPoints && f <= maxGuessedPoints {
			return f
		}
	}
	return 0
}

// numericValue reads a positive number from a number, numeric string,
// option object ({"value": ...}) or list. zero reports a literal 0.
func numericValue(raw json.RawMessage) (v float64, zero bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f, f == 0
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && n > 0 {
			return n, false
		}
		return 0, false
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		for _, k := range []string{"value", "name", "id"} {
			if sub, ok := obj[k]; ok {
				if n, _ := numericValue(sub); n > 0 {
					return n, false
				}
			}
		}
		return 0, false
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			if n, _ := numericValue(item); n > 0 {
				return n, false
			}
		}
	}
	return 0, false
}

// ProjectKey returns the project prefix of an issue key ("WORK-12" -> "WORK").
func ProjectKey(issueKey string) string {
	if i := strings.LastIndex(issueKey, "-"); i > 0 {
		return issueKey[:i]
	}
	return issueKey
}
