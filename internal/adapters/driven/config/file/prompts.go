package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptReadme = `# effortqa prompts

Templates used when an LLM is configured. Edits are picked up on the
next question; delete a file to go back to the built-in template.

| file | placeholders |
|------|--------------|
| effort_answer.txt | retrieved records, question |
| epic_synopsis.txt | epic name, task titles |
| category_hint.txt | category list, ticket title |

Keep every %s in place and in order. A file with a different number of
placeholders is ignored. Write %% for a literal percent sign.
`

// PromptStore reads prompt templates from <dir>/<name>.txt. The directory
// is seeded with the built-in templates on first use; existing files are
// never overwritten.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu      sync.Mutex
	entries map[string]promptEntry
}

// promptEntry is a template together with the mtime of the file it was
// read from. A zero mtime marks a built-in fallback.
type promptEntry struct {
	text    string
	modTime time.Time
}

// NewPromptStore returns a store rooted at dir.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		return nil, errors.New("prompts: directory is required")
	}
	return &PromptStore{dir: dir, entries: make(map[string]promptEntry)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the template for name. A file is re-read when its mtime
// changes; a missing or unreadable file falls back to the built-in one.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := driven.DefaultPrompts[name]

	s.seed.Do(func() { s.seedErr = s.seedDir() })
	if s.seedErr != nil {
		if !known {
			return "", fmt.Errorf("prompt %q: %w", name, s.seedErr)
		}
		return builtin, nil
	}

	path := s.path(name)
	info, statErr := os.Stat(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if statErr == nil {
		if e, ok := s.entries[name]; ok && e.modTime.Equal(info.ModTime()) {
			return e.text, nil
		}
	} else if e, ok := s.entries[name]; ok && e.modTime.IsZero() {
		return e.text, nil
	}

	text, modTime, err := s.read(name, path, info, statErr)
	if err != nil {
		if !known {
			return "", err
		}
		text, modTime = builtin, time.Time{}
	}
	s.entries[name] = promptEntry{text: text, modTime: modTime}
	return text, nil
}

// Reload forgets every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// read loads one template file. A custom template whose placeholder count
// differs from the built-in one is replaced by the built-in template but
// still cached against the file's mtime, so the warning is logged once per
// edit.
func (s *PromptStore) read(name, path string, info fs.FileInfo, statErr error) (string, time.Time, error) {
	if statErr != nil {
		return "", time.Time{}, fmt.Errorf("prompt %q: %w", name, statErr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))

	if builtin, ok := driven.DefaultPrompts[name]; ok {
		if want, got := placeholders(builtin), placeholders(text); want != got {
			logger.Warn("prompt %s: %d placeholders, want %d; using built-in", name, got, want)
			return builtin, info.ModTime(), nil
		}
	}
	return text, info.ModTime(), nil
}

func (s *PromptStore) seedDir() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating prompt directory: %w", err)
	}
	files := map[string]string{"README.md": promptReadme}
	for name, text := range driven.DefaultPrompts {
		files[name+".txt"] = text + "\n"
	}
	for file, text := range files {
		err := writeIfMissing(filepath.Join(s.dir, file), text)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", file, err)
		}
	}
	return nil
}

func writeIfMissing(path, text string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// placeholders counts fmt verbs, ignoring escaped percent signs.
func placeholders(tmpl string) int {
	return strings.Count(strings.ReplaceAll(tmpl, "%%", ""), "%")
}
