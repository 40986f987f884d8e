package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"agentwire/internal/logging"
)

// DiskRepository exposes a project directory on disk as a Repository. All
// paths are confined to the root; anything resolving outside it is rejected.
type DiskRepository struct {
	root string
}

// NewDiskRepository creates a repository rooted at dir. The directory must
// exist.
func NewDiskRepository(dir string) (*DiskRepository, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", abs)
	}
	return &DiskRepository{root: abs}, nil
}

// Root returns the absolute root directory.
func (r *DiskRepository) Root() string {
	return r.root
}

// resolve maps a repository-relative path to an absolute one, rejecting
// absolute input and anything that climbs out of the root.
func (r *DiskRepository) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(path) {
		return "", ErrEscapesRoot
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrEscapesRoot
	}
	return filepath.Join(r.root, clean), nil
}

// Read returns the contents of a file.
func (r *DiskRepository) Read(path string) (string, error) {
	full, err := r.resolve(path)
	if err != nil {
		return "", err
	}

	logging.RepoDebug("read: %s", path)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// Write creates or replaces a file, creating parent directories as needed.
func (r *DiskRepository) Write(path string, content string) error {
	full, err := r.resolve(path)
	if err != nil {
		return err
	}

	logging.RepoDebug("write: %s (%d bytes)", path, len(content))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Delete removes a file. Directories are refused.
func (r *DiskRepository) Delete(path string) error {
	full, err := r.resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return ErrIsDirectory
	}

	logging.RepoDebug("delete: %s", path)
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns every file path in the repository, sorted, hidden entries
// skipped.
func (r *DiskRepository) List() ([]string, error) {
	var files []string

	err := filepath.Walk(r.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}

		name := info.Name()
		if strings.HasPrefix(name, ".") && p != r.root {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Search scans file contents for a regular expression and returns matching
// lines.
func (r *DiskRepository) Search(pattern string, opts SearchOptions) ([]Match, error) {
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

	files, err := r.List()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, path := range files {
		if len(matches) >= opts.MaxResults {
			break
		}
		if opts.FilePattern != "" {
			ok, _ := filepath.Match(opts.FilePattern, filepath.Base(path))
			if !ok {
				continue
			}
		}

		fileMatches, err := r.searchFile(path, re, opts.MaxResults-len(matches))
		if err != nil {
			continue // Skip unreadable files
		}
		matches = append(matches, fileMatches...)
	}

	logging.RepoDebug("search %q: %d matches", pattern, len(matches))
	return matches, nil
}

func (r *DiskRepository) searchFile(path string, re *regexp.Regexp, maxMatches int) ([]Match, error) {
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matches []Match
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, Match{
				Path: path,
				Line: lineNum,
				Text: strings.TrimSpace(line),
			})
			if len(matches) >= maxMatches {
				break
			}
		}
	}
	return matches, scanner.Err()
}
