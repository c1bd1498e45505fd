// Package migrations holds the SQLite schema as numbered scripts named
// NNN_description.up.sql with an optional matching .down.sql.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is one schema version.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// All returns the embedded migrations in version order.
func All() ([]Migration, error) {
	return Load(files)
}

// Load reads migrations from the root of fsys. Files that do not end in
// .up.sql or .down.sql are ignored; a down script without an up script
// or two scripts sharing a version is an error.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	downs := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		var base string
		var up bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			base, up = strings.TrimSuffix(name, ".up.sql"), true
		case strings.HasSuffix(name, ".down.sql"):
			base = strings.TrimSuffix(name, ".down.sql")
		default:
			continue
		}

		version, label, err := parseName(base)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}

		if !up {
			downs[version] = string(content)
			continue
		}
		if _, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migration %s: version %d defined twice", name, version)
		}
		byVersion[version] = &Migration{Version: version, Name: label, Up: string(content)}
	}

	out := make([]Migration, 0, len(byVersion))
	for version, script := range downs {
		m, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("migration %d: down script without up script", version)
		}
		m.Down = script
	}
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseName(base string) (int, string, error) {
	num, label, _ := strings.Cut(base, "_")
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("name must start with a positive version number")
	}
	return version, label, nil
}
