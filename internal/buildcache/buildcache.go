// Package buildcache skips re-invoking gcc when a source file's content and
// the flags that would drive its compilation have not changed since the
// last successful build. It hashes source bytes with xxhash the same way
// gbc's test runner (cmd/gtest) hashes golden-file inputs to decide whether
// a cached reference result is still valid — here the cached artifact is a
// compiled executable instead of a JSON golden file.
package buildcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one cache entry: the compiled output is reusable only if
// both the source content and the flags that shaped its compilation match.
type Key struct {
	SourceHash uint64
	Flags      string
}

// Entry records where a previous build's outputs live.
type Entry struct {
	Key       Key    `json:"key"`
	AsmPath   string `json:"asm_path"`
	OutPath   string `json:"out_path"`
	BuiltWith string `json:"built_with"` // gcc version string, for diagnostics
}

// Cache is a directory of Entry records, one JSON sidecar file per source
// file compiled, named after the source file's base name.
type Cache struct {
	Dir string
}

// Open returns a Cache rooted at dir, creating dir if it does not exist.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buildcache: %w", err)
	}
	return &Cache{Dir: dir}, nil
}

// HashSource returns the cache key material for a source file's content.
func HashSource(src []byte) uint64 {
	return xxhash.Sum64(src)
}

func (c *Cache) sidecarPath(sourcePath string) string {
	name := "." + filepath.Base(sourcePath) + ".buildcache.json"
	return filepath.Join(c.Dir, name)
}

// Lookup returns the cached Entry for sourcePath if its recorded key
// matches want and both its recorded asm and binary outputs still exist on
// disk. A miss (ok == false) is not an error: it just means recompile.
func (c *Cache) Lookup(sourcePath string, want Key) (Entry, bool) {
	data, err := os.ReadFile(c.sidecarPath(sourcePath))
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false
	}
	if e.Key != want {
		return Entry{}, false
	}
	if _, err := os.Stat(e.AsmPath); err != nil {
		return Entry{}, false
	}
	if _, err := os.Stat(e.OutPath); err != nil {
		return Entry{}, false
	}
	return e, true
}

// Store records a freshly built Entry for sourcePath.
func (c *Cache) Store(sourcePath string, e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("buildcache: %w", err)
	}
	return os.WriteFile(c.sidecarPath(sourcePath), data, 0o644)
}
