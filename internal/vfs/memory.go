package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Standard error values for MemFS operations.
// These align with POSIX errors for consistency with OSFS.
var (
	errIsDir  = syscall.EISDIR
	errNotDir = syscall.ENOTDIR
)

// MemFS implements FileSystem in memory.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]time.Time
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]time.Time{"/": time.Now()},
	}
}

var _ FileSystem = (*MemFS)(nil)

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = Clean(name)
	f, ok := m.files[name]
	if !ok {
		if _, isDir := m.dirs[name]; isDir {
			return nil, &fs.PathError{Op: "read", Path: name, Err: errIsDir}
		}
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}

	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// WriteFile writes data to a file, creating it if necessary.
func (m *MemFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = Clean(name)
	if _, isDir := m.dirs[name]; isDir {
		return &fs.PathError{Op: "write", Path: name, Err: errIsDir}
	}
	if _, ok := m.dirs[path.Dir(name)]; !ok {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrNotExist}
	}

	content := make([]byte, len(data))
	copy(content, data)
	m.files[name] = &memFile{content: content, mode: perm, modTime: time.Now()}
	return nil
}

// Stat returns file information.
func (m *MemFS) Stat(name string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = Clean(name)
	if f, ok := m.files[name]; ok {
		return NewFileInfo(name, int64(len(f.content)), f.mode, f.modTime), nil
	}
	if mod, ok := m.dirs[name]; ok {
		return NewFileInfo(name, 0, fs.ModeDir|0o755, mod), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir returns the direct children of name sorted by name.
func (m *MemFS) ReadDir(name string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = Clean(name)
	if _, ok := m.dirs[name]; !ok {
		if _, isFile := m.files[name]; isFile {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: errNotDir}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	var entries []FileInfo
	for p, f := range m.files {
		if isChild(name, p) {
			entries = append(entries, NewFileInfo(p, int64(len(f.content)), f.mode, f.modTime))
		}
	}
	for p, mod := range m.dirs {
		if isChild(name, p) {
			entries = append(entries, NewFileInfo(p, 0, fs.ModeDir|0o755, mod))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// isChild reports whether p is a direct child of dir.
func isChild(dir, p string) bool {
	if p == dir {
		return false
	}
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	rest, ok := strings.CutPrefix(p, prefix)
	return ok && rest != "" && !strings.Contains(rest, "/")
}

// Mkdir creates a directory. The parent must exist.
func (m *MemFS) Mkdir(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = Clean(name)
	if m.existsLocked(name) {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	if _, ok := m.dirs[path.Dir(name)]; !ok {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrNotExist}
	}
	m.dirs[name] = time.Now()
	return nil
}

// MkdirAll creates a directory and all missing parents.
func (m *MemFS) MkdirAll(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := ""
	for _, part := range strings.Split(strings.Trim(Clean(name), "/"), "/") {
		if part == "" {
			continue
		}
		current += "/" + part
		if _, ok := m.files[current]; ok {
			return &fs.PathError{Op: "mkdir", Path: current, Err: errNotDir}
		}
		if _, ok := m.dirs[current]; !ok {
			m.dirs[current] = time.Now()
		}
	}
	return nil
}

func (m *MemFS) existsLocked(name string) bool {
	if _, ok := m.files[name]; ok {
		return true
	}
	_, ok := m.dirs[name]
	return ok
}

// AddFile is a convenience method for adding files during test setup.
// Parent directories are created as needed.
func (m *MemFS) AddFile(name, content string) error {
	name = Clean(name)
	if err := m.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return m.WriteFile(name, []byte(content), 0o644)
}
