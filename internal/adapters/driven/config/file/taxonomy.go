package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure TaxonomyStore implements the interface.
var _ driven.TaxonomyStore = (*TaxonomyStore)(nil)

// TaxonomyFile is the taxonomy file name inside the config directory.
const TaxonomyFile = "taxonomy.yaml"

// reloadDelay coalesces the burst of events an editor produces on save.
const reloadDelay = 200 * time.Millisecond

// TaxonomyStore keeps the category taxonomy in a YAML file.
type TaxonomyStore struct {
	path string

	mu   sync.Mutex
	last []byte // contents most recently read or written by this process
}

// NewTaxonomyStore creates a store for dir/taxonomy.yaml.
// If dir is empty, defaults to ~/.effortqa.
func NewTaxonomyStore(dir string) (*TaxonomyStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".effortqa")
	}
	return &TaxonomyStore{path: filepath.Join(dir, TaxonomyFile)}, nil
}

// Path returns the taxonomy file path.
func (s *TaxonomyStore) Path() string {
	return s.path
}

// Load reads the taxonomy. A missing file yields the default taxonomy,
// which is not written until the first Save.
func (s *TaxonomyStore) Load() (*domain.Taxonomy, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultTaxonomy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read taxonomy: %w", domain.ErrPersistence, err)
	}

	t, err := decodeTaxonomy(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = data
	s.mu.Unlock()
	return t, nil
}

// Save writes the taxonomy atomically.
func (s *TaxonomyStore) Save(t *domain.Taxonomy) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal taxonomy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: create config directory: %w", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write taxonomy: %w", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace taxonomy: %w", domain.ErrPersistence, err)
	}
	s.last = data
	return nil
}

// Watch reloads the file whenever it is changed by another process and
// passes the result to onChange. Invalid files are logged and skipped.
// The directory is watched rather than the file so that editors which
// save by rename keep being observed.
func (s *TaxonomyStore) Watch(ctx context.Context, onChange func(*domain.Taxonomy)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != s.path {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.After(reloadDelay)
			}

		case <-pending:
			pending = nil
			if t := s.reloadIfChanged(); t != nil {
				onChange(t)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("taxonomy watcher: %v", err)
		}
	}
}

// reloadIfChanged returns the re-read taxonomy, or nil when the file is
// unchanged since this process last touched it or cannot be parsed.
func (s *TaxonomyStore) reloadIfChanged() *domain.Taxonomy {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("taxonomy watcher: read %s: %v", s.path, err)
		}
		return nil
	}

	s.mu.Lock()
	same := bytes.Equal(data, s.last)
	s.mu.Unlock()
	if same {
		return nil
	}

	t, err := decodeTaxonomy(data)
	if err != nil {
		logger.Warn("taxonomy watcher: ignoring %s: %v", s.path, err)
		return nil
	}

	s.mu.Lock()
	s.last = data
	s.mu.Unlock()
	logger.Info("taxonomy reloaded (version %d)", t.Version)
	return t
}

func decodeTaxonomy(data []byte) (*domain.Taxonomy, error) {
	var t domain.Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: parse taxonomy: %w", domain.ErrInvalidInput, err)
	}
	for _, c := range t.Categories() {
		if !c.IsComplete() {
			return nil, fmt.Errorf("%w: incomplete category %q", domain.ErrInvalidCategory, c.String())
		}
	}
	return &t, nil
}
