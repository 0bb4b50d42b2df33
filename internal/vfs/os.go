package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// OSFS implements FileSystem on a host directory. Every path is resolved
// under Root, so the shell cannot reach outside it.
type OSFS struct {
	root string
}

// NewOSFS creates a file system rooted at dir.
func NewOSFS(dir string) (*OSFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "root", Path: abs, Err: errNotDir}
	}
	return &OSFS{root: abs}, nil
}

var _ FileSystem = (*OSFS)(nil)

// Root returns the host directory backing "/".
func (f *OSFS) Root() string { return f.root }

func (f *OSFS) hostPath(name string) string {
	return filepath.Join(f.root, filepath.FromSlash(Clean(name)))
}

// ReadFile reads the entire file content.
func (f *OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(f.hostPath(name))
}

// WriteFile writes data to a file, creating it if necessary.
func (f *OSFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(f.hostPath(name), data, perm)
}

// Stat returns file information.
func (f *OSFS) Stat(name string) (FileInfo, error) {
	info, err := os.Stat(f.hostPath(name))
	if err != nil {
		return FileInfo{}, err
	}
	return NewFileInfo(Clean(name), info.Size(), info.Mode(), info.ModTime()), nil
}

// ReadDir returns the entries of a directory sorted by name.
func (f *OSFS) ReadDir(name string) ([]FileInfo, error) {
	entries, err := os.ReadDir(f.hostPath(name))
	if err != nil {
		return nil, err
	}

	dir := Clean(name)
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't stat
		}
		infos = append(infos, NewFileInfo(Resolve(dir, entry.Name()), info.Size(), info.Mode(), info.ModTime()))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})
	return infos, nil
}

// Mkdir creates a directory. The parent must exist.
func (f *OSFS) Mkdir(name string, perm fs.FileMode) error {
	return os.Mkdir(f.hostPath(name), perm)
}

// MkdirAll creates a directory and all missing parents.
func (f *OSFS) MkdirAll(name string, perm fs.FileMode) error {
	return os.MkdirAll(f.hostPath(name), perm)
}
