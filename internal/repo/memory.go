package repo

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// MemRepository is an in-memory Repository. It backs the replay playground
// and tests, where no project directory exists on disk.
type MemRepository struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewMemRepository creates an empty in-memory repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{files: make(map[string]string)}
}

// Seed pre-populates the repository and returns it, for test setup chains.
func (r *MemRepository) Seed(files map[string]string) *MemRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, content := range files {
		r.files[normalize(path)] = content
	}
	return r
}

func normalize(path string) string {
	return strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")
}

// Read returns the contents of a file.
func (r *MemRepository) Read(path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	content, ok := r.files[normalize(path)]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

// Write creates or replaces a file.
func (r *MemRepository) Write(path string, content string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[normalize(path)] = content
	return nil
}

// Delete removes a file.
func (r *MemRepository) Delete(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalize(path)
	if _, ok := r.files[key]; !ok {
		return ErrNotFound
	}
	delete(r.files, key)
	return nil
}

// List returns every file path, sorted.
func (r *MemRepository) List() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.files))
	for path := range r.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Search scans file contents for a regular expression.
func (r *MemRepository) Search(pattern string, opts SearchOptions) ([]Match, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	paths, _ := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Match
	for _, path := range paths {
		if len(matches) >= opts.MaxResults {
			break
		}
		if opts.FilePattern != "" {
			if ok, _ := matchBase(opts.FilePattern, path); !ok {
				continue
			}
		}
		for i, line := range strings.Split(r.files[path], "\n") {
			if re.MatchString(line) {
				matches = append(matches, Match{Path: path, Line: i + 1, Text: strings.TrimSpace(line)})
				if len(matches) >= opts.MaxResults {
					break
				}
			}
		}
	}
	return matches, nil
}

func matchBase(pattern, path string) (bool, error) {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	return filepath.Match(pattern, base)
}
