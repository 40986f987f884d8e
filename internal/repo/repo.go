// Package repo provides the project file repository that client-executed
// tools run against, plus a filesystem watcher for change notifications.
package repo

import "errors"

// Repository errors.
var (
	// ErrNotFound is returned when a path does not exist in the repository.
	ErrNotFound = errors.New("file not found")

	// ErrEscapesRoot is returned when a path would resolve outside the
	// repository root.
	ErrEscapesRoot = errors.New("path escapes repository root")

	// ErrIsDirectory is returned when a file operation targets a directory.
	ErrIsDirectory = errors.New("path is a directory")
)

// SearchOptions narrows a content search.
type SearchOptions struct {
	// FilePattern restricts the search to files matching a glob pattern
	// (e.g. "*.go"). Empty means all files.
	FilePattern string

	// MaxResults caps the number of matches returned (default 50).
	MaxResults int

	// IgnoreCase makes the pattern case insensitive.
	IgnoreCase bool
}

// Match is a single content-search hit.
type Match struct {
	Path string
	Line int
	Text string
}

// Repository is the project file store the core executes client tools
// against. Paths are repository-relative, forward-slash separated.
//
// The repository does not serialize concurrent writers outside this core;
// that is the implementation's contract to provide if it is shared.
type Repository interface {
	Read(path string) (string, error)
	Write(path string, content string) error
	Delete(path string) error
	List() ([]string, error)
	Search(pattern string, opts SearchOptions) ([]Match, error)
}
