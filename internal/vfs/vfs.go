// Package vfs provides the file system the shell and the Lua module loader
// operate on.
//
// Paths are slash separated and absolute within the file system ("/" is the
// root). OSFS maps them under a host directory; MemFS keeps everything in
// memory for tests.
package vfs

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// FileSystem is the subset of file operations luaterm needs.
type FileSystem interface {
	// ReadFile reads the entire file content.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Stat returns file information.
	Stat(name string) (FileInfo, error)

	// ReadDir returns the entries of a directory sorted by name.
	ReadDir(name string) ([]FileInfo, error)

	// Mkdir creates a directory. The parent must exist.
	Mkdir(name string, perm fs.FileMode) error

	// MkdirAll creates a directory and all missing parents.
	MkdirAll(name string, perm fs.FileMode) error
}

// FileInfo describes a file or directory.
type FileInfo struct {
	path    string
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

// NewFileInfo creates a FileInfo from the given parameters.
func NewFileInfo(p string, size int64, mode fs.FileMode, modTime time.Time) FileInfo {
	return FileInfo{
		path:    p,
		name:    path.Base(p),
		size:    size,
		mode:    mode,
		modTime: modTime,
	}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Name returns the base name.
func (fi FileInfo) Name() string { return fi.name }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// Mode returns the file mode.
func (fi FileInfo) Mode() fs.FileMode { return fi.mode }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.mode.IsDir() }

// Clean normalizes p into an absolute slash path. ".." never climbs above
// the root.
func Clean(p string) string {
	return path.Clean("/" + p)
}

// Resolve interprets p relative to dir unless p is already absolute.
func Resolve(dir, p string) string {
	if strings.HasPrefix(p, "/") {
		return Clean(p)
	}
	return Clean(path.Join(dir, p))
}

// Exists reports whether name exists in fsys.
func Exists(fsys FileSystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// IsDir reports whether name exists in fsys and is a directory.
func IsDir(fsys FileSystem, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}
