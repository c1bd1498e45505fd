// Package flat holds configuration as a map of dotted keys ("retrieval.k",
// "tracker.github.owner") and implements the typed getters of
// driven.ConfigStore over it. Values are kept in the types a TOML decoder
// produces: string, int64, float64, bool and []any.
package flat

import (
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Map is safe for concurrent use.
type Map struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns an empty Map.
func New() *Map { return &Map{data: make(map[string]any)} }

func (m *Map) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// GetString returns "" unless the value is a string.
func (m *Map) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// GetInt truncates floats and returns 0 for anything else.
func (m *Map) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// GetFloat also parses numeric strings, which hand-edited files sometimes
// contain.
func (m *Map) GetFloat(key string) (float64, bool) {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// GetDuration reads "10m" style strings or whole seconds.
func (m *Map) GetDuration(key string) (time.Duration, bool) {
	v, _ := m.Get(key)
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		return parsed, err == nil
	case int64:
		return time.Duration(d) * time.Second, true
	}
	return 0, false
}

func (m *Map) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice reads an array, skipping non-string items, or splits a
// comma-separated string.
func (m *Map) GetStringSlice(key string) []string {
	v, _ := m.Get(key)
	var out []string
	switch list := v.(type) {
	case []any:
		out = make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Put stores value under key after converting it to its decoded TOML type.
func (m *Map) Put(key string, value any) {
	m.mu.Lock()
	m.data[key] = Normalise(value)
	m.mu.Unlock()
}

// Update runs fn with the map locked for writing. fn may change data; if
// it returns an error the changes are rolled back.
func (m *Map) Update(fn func(data map[string]any) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	backup := maps.Clone(m.data)
	if err := fn(m.data); err != nil {
		m.data = backup
		return err
	}
	return nil
}

// Read runs fn with the map locked for reading.
func (m *Map) Read(fn func(data map[string]any) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.data)
}

// Replace swaps in data, flattening any nested tables.
func (m *Map) Replace(data map[string]any) {
	flat := Flatten(data)
	m.mu.Lock()
	m.data = flat
	m.mu.Unlock()
}

// Normalise converts Go values to what a TOML round trip would return, so
// reads see the same types before and after a reload.
func Normalise(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case time.Duration:
		return v.String()
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return value
}

// Flatten turns nested tables into dotted keys.
func Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any, len(nested))
	flattenInto(out, "", nested)
	return out
}

func flattenInto(out map[string]any, prefix string, nested map[string]any) {
	for k, v := range nested {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flattenInto(out, k, table)
			continue
		}
		out[k] = v
	}
}

// Nest is the inverse of Flatten. When a key's prefix is itself a leaf
// ("a" and "a.b") the longer key stays dotted at the top level, which
// TOML encoders quote and Flatten reads back unchanged.
func Nest(data map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range data {
		parts := strings.Split(key, ".")
		if leafPrefix(data, parts) {
			out[key] = value
			continue
		}
		table := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := table[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[part] = next
			}
			table = next
		}
		table[parts[len(parts)-1]] = value
	}
	return out
}

func leafPrefix(data map[string]any, parts []string) bool {
	for i := 1; i < len(parts); i++ {
		if _, ok := data[strings.Join(parts[:i], ".")]; ok {
			return true
		}
	}
	return false
}
