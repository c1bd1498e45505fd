package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/config/flat"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFile is the settings file inside the data directory.
const ConfigFile = "config.toml"

// ConfigStore keeps config.toml in memory as dotted keys and rewrites the
// whole file, as nested tables, on every Set.
type ConfigStore struct {
	*flat.Map
	path string
}

// NewConfigStore opens dir/config.toml, creating dir if needed. A missing
// file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		return nil, errors.New("config: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	s := &ConfigStore{Map: flat.New(), path: filepath.Join(dir, ConfigFile)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Path() string { return s.path }

// Set stores value and writes the file. The in-memory value is rolled
// back when the write fails.
func (s *ConfigStore) Set(key string, value any) error {
	return s.Update(func(data map[string]any) error {
		data[key] = flat.Normalise(value)
		return s.write(data)
	})
}

func (s *ConfigStore) Save() error {
	return s.Read(s.write)
}

// Load replaces the in-memory values with the file's content.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.Replace(doc)
	return nil
}

// write replaces the file atomically through a temp file in the same
// directory.
func (s *ConfigStore) write(data map[string]any) error {
	encoded, err := toml.Marshal(flat.Nest(data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	_, err = tmp.Write(encoded)
	if err == nil {
		err = tmp.Chmod(0o600)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.path)
	}
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
