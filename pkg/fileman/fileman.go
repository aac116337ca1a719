// Package fileman resolves assembler include paths against a search list
// and opens them.
package fileman

import (
	"io"
	"os"
	"path/filepath"

	"github.com/possum-systems/possum/pkg/intern"
)

// FileSystem abstracts the host filesystem so tests can substitute a fake
// one without touching disk.
type FileSystem interface {
	IsDir(path string) bool
	IsFile(path string) bool
	Open(path string) (io.ReadCloser, error)
}

// OSFileSystem implements FileSystem over the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OSFileSystem) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Manager resolves include paths against a cwd-first, then insertion-order
// search list.
type Manager struct {
	fs          FileSystem
	searchPaths []string
	paths       *intern.Paths
}

// New returns a Manager backed by fs, interning resolved paths into paths.
func New(fs FileSystem, paths *intern.Paths) *Manager {
	return &Manager{fs: fs, paths: paths}
}

// AddSearchPath registers path (resolved against cwd) as an include search
// directory. It is rejected if it does not name a directory.
func (m *Manager) AddSearchPath(cwd, path string) error {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	if !m.fs.IsDir(abs) {
		return &NotADirectoryError{Path: abs}
	}
	m.searchPaths = append(m.searchPaths, abs)
	return nil
}

// Reader searches for path (cwd first, then each added search path in
// insertion order) and opens the first readable hit, returning the open
// stream and the interned absolute path. ok is false when no candidate
// exists.
func (m *Manager) Reader(cwd, path string) (rc io.ReadCloser, abs intern.Handle, ok bool) {
	found, ok := m.search(cwd, path)
	if !ok {
		return nil, 0, false
	}
	rc, err := m.fs.Open(found)
	if err != nil {
		return nil, 0, false
	}
	return rc, m.paths.Intern(cwd, found), true
}

func (m *Manager) search(cwd, path string) (string, bool) {
	if filepath.IsAbs(path) {
		if m.fs.IsFile(path) {
			return path, true
		}
		return "", false
	}
	dirs := make([]string, 0, 1+len(m.searchPaths))
	dirs = append(dirs, cwd)
	dirs = append(dirs, m.searchPaths...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, path)
		if m.fs.IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// NotADirectoryError reports that a requested search path is not a
// directory.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return "not a directory: " + e.Path
}
