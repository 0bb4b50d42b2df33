package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a/b", "/a/b"},
		{"/a/../b/", "/b"},
		{"../../etc", "/etc"},
	}

	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		dir, p, want string
	}{
		{"/src", "main.lua", "/src/main.lua"},
		{"/src", "/lib", "/lib"},
		{"/src", "..", "/"},
		{"/", "../..", "/"},
	}

	for _, tt := range tests {
		if got := Resolve(tt.dir, tt.p); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.dir, tt.p, got, tt.want)
		}
	}
}

func TestMemFS(t *testing.T) {
	m := NewMemFS()
	if err := m.AddFile("/src/main.lua", "print(1)"); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	data, err := m.ReadFile("src/main.lua")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "print(1)" {
		t.Errorf("ReadFile() = %q", data)
	}

	if _, err := m.ReadFile("/src"); err == nil {
		t.Error("ReadFile on a directory should fail")
	}
	if _, err := m.ReadFile("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(/missing) error = %v, want ErrNotExist", err)
	}
	if err := m.WriteFile("/nodir/x", nil, 0o644); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("WriteFile without parent error = %v, want ErrNotExist", err)
	}
	if err := m.Mkdir("/src", 0o755); !errors.Is(err, fs.ErrExist) {
		t.Errorf("Mkdir existing error = %v, want ErrExist", err)
	}
	if err := m.Mkdir("/a/b", 0o755); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Mkdir without parent error = %v, want ErrNotExist", err)
	}
	if err := m.MkdirAll("/a/b/c", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if !IsDir(m, "/a/b") {
		t.Error("/a/b should be a directory")
	}
	if err := m.MkdirAll("/src/main.lua/x", 0o755); err == nil {
		t.Error("MkdirAll through a file should fail")
	}
}

func TestMemFSReadDir(t *testing.T) {
	m := NewMemFS()
	_ = m.AddFile("/b.lua", "")
	_ = m.AddFile("/a/deep.lua", "")
	_ = m.AddFile("/c.txt", "")

	entries, err := m.ReadDir("/")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a", "b.lua", "c.txt"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir() names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ReadDir() names = %v, want %v", names, want)
		}
	}
	if !entries[0].IsDir() {
		t.Error("a should be a directory")
	}

	if _, err := m.ReadDir("/b.lua"); err == nil {
		t.Error("ReadDir on a file should fail")
	}
}

func TestOSFSStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "x.lua"), []byte("return 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewOSFS(root)
	if err != nil {
		t.Fatalf("NewOSFS() error = %v", err)
	}

	data, err := f.ReadFile("/../../x.lua")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "return 1" {
		t.Errorf("ReadFile() = %q", data)
	}

	if err := f.MkdirAll("/pkg/sub", 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	entries, err := f.ReadDir("/")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "pkg" || entries[0].Path() != "/pkg" {
		t.Errorf("ReadDir() = %+v", entries)
	}

	if _, err := NewOSFS(filepath.Join(root, "x.lua")); err == nil {
		t.Error("NewOSFS on a file should fail")
	}
}
