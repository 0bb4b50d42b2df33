package shell

import (
	"strings"
	"testing"

	"github.com/dshills/luaterm/internal/vfs"
)

// output runs line and returns what it printed between the command line and
// the next prompt.
func (ts *testShell) output(line string) string {
	before := len(ts.lines())
	ts.enter(line)
	lines := ts.lines()
	if len(lines) <= before {
		return ""
	}
	return strings.Join(lines[before:len(lines)-1], "\n")
}

func TestCommands(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"echo hello   world", "hello world"},
		{"echo -n flag", "-n flag"},
		{"pwd", "/"},
		{"ls", "data.txt  lib  main.lua"},
		{"ls lib", "util.lua"},
		{"ls /nowhere", "ls: could not list files from path /nowhere"},
		{"cat data.txt", "alpha\nbeta"},
		{"cat -n data.txt", "1 alpha\n2 beta"},
		{"cat missing.txt", "cat: could not read missing.txt"},
		{"cd", "cd: you must provide a [path] to change to"},
		{"cd data.txt", "cd: could not resolve path 'data.txt'"},
		{"pwd extra", `pwd: unknown command "extra" for "pwd"`},
		{"frobnicate now", "No command found matching 'frobnicate now'. Known commands are cat, cd, clear, echo, exit, help, ls, lua, mkdir, pwd, run, touch"},
		{"run main", "main none"},
		{"run main.lua arg1", "main arg1"},
		{"lua main.lua x", "main x"},
		{"lua -m main y", "main y"},
		{"lua -c print(6*7)", "42"},
		{"lua -c error('bad')", "lua: <string>:1: bad"},
		{"lua -c exit(3)", ""},
		{"run nosuch", "lua: module 'nosuch' not found"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ts := newTestShell(t, Options{})
			got := ts.output(tt.line)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("output = %q, want prefix %q", got, tt.want)
			}
			if tt.want == "" && got != "" {
				t.Errorf("output = %q, want nothing", got)
			}
		})
	}
}

func TestCdChangesPrompt(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("cd lib")
	if ts.Cwd() != "/lib" || ts.lastLine() != "/lib$" {
		t.Errorf("Cwd() = %q, prompt %q", ts.Cwd(), ts.lastLine())
	}
	ts.enter("cd ..")
	if ts.Cwd() != "/" {
		t.Errorf("Cwd() = %q after cd .., want /", ts.Cwd())
	}
	ts.enter("cd ../../lib")
	if ts.Cwd() != "/lib" {
		t.Errorf("Cwd() = %q, want /lib", ts.Cwd())
	}
}

func TestTouchAndMkdir(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("touch new.lua")
	ts.enter("touch data.txt")
	ts.enter("mkdir a")
	ts.enter("mkdir -p b/c/d")

	if data, err := ts.fs.ReadFile("/new.lua"); err != nil || len(data) != 0 {
		t.Errorf("new.lua = %q, %v; want empty file", data, err)
	}
	if data, _ := ts.fs.ReadFile("/data.txt"); string(data) != "alpha\nbeta\n" {
		t.Errorf("touch changed data.txt to %q", data)
	}
	for _, dir := range []string{"/a", "/b/c/d"} {
		if !vfs.IsDir(ts.fs, dir) {
			t.Errorf("%s was not created", dir)
		}
	}

	if got := ts.output("mkdir x/y"); got != "mkdir: unable to create directory at 'x/y'" {
		t.Errorf("mkdir without -p = %q", got)
	}
	if got := ts.output("touch lib"); got != "touch: could not touch path lib" {
		t.Errorf("touch on a directory = %q", got)
	}
}

func TestHelp(t *testing.T) {
	ts := newTestShell(t, Options{})

	got := ts.output("help")
	if !strings.HasPrefix(got, "luaterm shell, version "+Version) {
		t.Errorf("help header = %q", got)
	}
	for name, b := range ts.commands {
		if !strings.Contains(got, b.short) {
			t.Errorf("help is missing %s: %q", name, b.short)
		}
	}
	// Descriptions are aligned at column 20
	for _, line := range strings.Split(got, "\n")[3:] {
		if len(line) < 20 || line[18] != ' ' || line[19] == ' ' {
			t.Errorf("misaligned help line %q", line)
		}
	}

	detail := ts.output("help cat")
	if !strings.Contains(detail, "Usage:") || !strings.Contains(detail, "--number") {
		t.Errorf("help cat = %q", detail)
	}
	if got := ts.output("help nope"); got != "help: no help topics match 'nope'" {
		t.Errorf("help nope = %q", got)
	}
}

func TestClear(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("echo one")
	ts.enter("clear")

	if got := ts.text(); got != "/$" {
		t.Errorf("screen after clear = %q, want only the prompt", got)
	}
}

func TestExitCommand(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("exit")
	if ts.quits != 1 {
		t.Errorf("quits = %d, want 1", ts.quits)
	}
	if ts.lastLine() != "/$ exit" {
		t.Errorf("prompt written after exit: %q", ts.lastLine())
	}
}

func TestFormatCat(t *testing.T) {
	tests := []struct {
		in     string
		number bool
		want   string
	}{
		{"a\nb", false, "a\nb"},
		{"a\nb", true, "1 a\n2 b"},
		{"a\n", true, "1 a\n"},
		{"a\n\nb", true, "1 a\n2 \n3 b"},
		{"", true, ""},
	}
	for _, tt := range tests {
		if got := formatCat(tt.in, tt.number); got != tt.want {
			t.Errorf("formatCat(%q, %v) = %q, want %q", tt.in, tt.number, got, tt.want)
		}
	}
}
