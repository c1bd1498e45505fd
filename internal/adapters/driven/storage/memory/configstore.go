package memory

import (
	"sync/atomic"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/config/flat"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a driven.ConfigStore with nothing behind it. Values are
// normalised on Set exactly as the file store does, so services read the
// types they would after a reload from disk.
type ConfigStore struct {
	*flat.Map
	writes atomic.Int64
}

func NewConfigStore() *ConfigStore { return &ConfigStore{Map: flat.New()} }

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	s.writes.Add(1)
	return nil
}

func (s *ConfigStore) Save() error {
	s.writes.Add(1)
	return nil
}

func (s *ConfigStore) Load() error { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }

// Writes counts calls to Set and Save.
func (s *ConfigStore) Writes() int { return int(s.writes.Load()) }
