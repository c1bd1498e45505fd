package driven

import "time"

// ConfigStore gives dot-notation access to configuration values such as
// "retrieval.k" or "tracker.github.owner". Values read back have the
// types a TOML decoder produces: string, int64, float64, bool and []any.
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns "" for missing or non-string values.
	GetString(key string) string

	// GetInt returns 0 for missing or non-numeric values.
	GetInt(key string) int

	// GetFloat accepts integers and numeric strings. The boolean is false
	// when the key is missing or cannot be read as a number.
	GetFloat(key string) (float64, bool)

	// GetDuration accepts Go duration strings ("10m") and integer
	// seconds. The boolean is false when the key is missing or malformed.
	GetDuration(key string) (time.Duration, bool)

	// GetBool returns false for missing or non-boolean values.
	GetBool(key string) bool

	// GetStringSlice returns nil for missing values. A comma-separated
	// string is split.
	GetStringSlice(key string) []string

	// Set stores a value. File-backed stores persist immediately.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path returns the backing file, or ":memory:".
	Path() string
}
