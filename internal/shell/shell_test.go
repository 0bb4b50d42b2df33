package shell

import (
	"strings"
	"testing"

	"github.com/dshills/luaterm/internal/console"
	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/terminal"
	"github.com/dshills/luaterm/internal/vfs"
)

type testShell struct {
	*Shell
	widget *terminal.Widget
	fs     *vfs.MemFS
	quits  int
}

func newTestShell(t *testing.T, opts Options) *testShell {
	t.Helper()
	fs := vfs.NewMemFS()
	for name, content := range map[string]string{
		"/main.lua":     "print('main ' .. (arg[1] or 'none'))\n",
		"/data.txt":     "alpha\nbeta\n",
		"/lib/util.lua": "return { answer = 42 }\n",
	} {
		if err := fs.AddFile(name, content); err != nil {
			t.Fatalf("AddFile(%q) error = %v", name, err)
		}
	}

	ts := &testShell{widget: terminal.NewWidget(160, 40), fs: fs}
	if opts.Banner == nil {
		empty := ""
		opts.Banner = &empty
	}
	opts.OnQuit = func() { ts.quits++ }
	ts.Shell = New(ts.widget, fs, opts)
	ts.Start()
	t.Cleanup(func() { ts.Close() })
	return ts
}

func (ts *testShell) typeText(text string) {
	for _, r := range text {
		ts.widget.Dispatch(key.NewRuneEvent(r, key.ModNone))
	}
}

func (ts *testShell) enter(line string) {
	ts.typeText(line)
	ts.widget.Dispatch(key.NewSpecialEvent(key.KeyEnter, key.ModNone))
}

func (ts *testShell) ctrl(r rune) {
	ts.widget.Dispatch(key.NewRuneEvent(r, key.ModCtrl))
}

func (ts *testShell) text() string {
	return ts.widget.Screen().Text()
}

func (ts *testShell) lines() []string {
	return strings.Split(ts.text(), "\n")
}

func (ts *testShell) lastLine() string {
	lines := ts.lines()
	return lines[len(lines)-1]
}

func TestShellStart(t *testing.T) {
	ts := newTestShell(t, Options{Welcome: DefaultWelcome})

	text := ts.text()
	if !strings.Contains(text, "Type 'help' to see a list of commands") {
		t.Errorf("welcome missing from %q", text)
	}
	if ts.lastLine() != "/$" {
		t.Errorf("last line = %q, want prompt", ts.lastLine())
	}
	if ts.Cwd() != "/" || ts.Interactive() {
		t.Errorf("Cwd() = %q Interactive() = %v", ts.Cwd(), ts.Interactive())
	}
}

func TestShellCommandLineEditing(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.typeText("echo hellp")
	ts.widget.Dispatch(key.NewSpecialEvent(key.KeyBackspace, key.ModNone))
	ts.enter("o")

	want := []string{"/$ echo hello", "hello", "/$"}
	if got := ts.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestShellCtrlCCancelsLine(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.typeText("echo nope")
	ts.ctrl('c')
	ts.enter("echo yes")

	want := []string{"/$ echo nope^C", "/$ echo yes", "yes", "/$"}
	if got := ts.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestShellCommandModeUsesBindings(t *testing.T) {
	ts := newTestShell(t, Options{Bindings: console.Bindings{
		Interrupt: key.NewRuneEvent('g', key.ModCtrl),
		EOF:       key.NewRuneEvent('q', key.ModCtrl),
	}})

	ts.typeText("echo nope")
	ts.ctrl('c')
	if ts.lastLine() != "/$ echo nope" {
		t.Fatalf("Ctrl-C with a rebound interrupt changed the line: %q", ts.lastLine())
	}
	ts.ctrl('g')
	want := []string{"/$ echo nope^C", "/$"}
	if got := ts.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}

	ts.ctrl('d')
	if ts.quits != 0 {
		t.Fatal("Ctrl-D quit the shell with a rebound end-of-input key")
	}
	ts.ctrl('q')
	if ts.quits != 1 {
		t.Errorf("quits = %d, want 1", ts.quits)
	}
}

func TestShellCtrlDQuitsOnEmptyLine(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.typeText("x")
	ts.ctrl('d')
	if ts.quits != 0 {
		t.Fatal("Ctrl-D with pending input quit the shell")
	}

	ts.widget.Dispatch(key.NewSpecialEvent(key.KeyBackspace, key.ModNone))
	ts.ctrl('d')
	if ts.quits != 1 {
		t.Errorf("quits = %d, want 1", ts.quits)
	}

	// Keys after quitting are ignored
	ts.enter("echo late")
	if strings.Contains(ts.text(), "late") {
		t.Errorf("input accepted after quit: %q", ts.text())
	}
}

func TestShellLuaInteractive(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("lua")
	if !ts.Interactive() {
		t.Fatal("Interactive() = false after lua")
	}
	if ts.lastLine() != ">" {
		t.Errorf("last line = %q, want console prompt", ts.lastLine())
	}

	ts.enter("print(1)")
	ts.enter("for i = 1, 2 do")
	if ts.lastLine() != ">>" {
		t.Errorf("last line = %q, want continuation prompt", ts.lastLine())
	}
	ts.enter("print(i * 10) end")
	ts.ctrl('d')

	if ts.Interactive() {
		t.Error("Interactive() = true after Ctrl-D")
	}
	want := []string{
		"/$ lua",
		"> print(1)",
		"1",
		"> for i = 1, 2 do",
		">> print(i * 10) end",
		"10",
		"20",
		">",
		"/$",
	}
	if got := ts.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if ts.quits != 0 {
		t.Error("leaving the console quit the shell")
	}
}

func TestShellLuaCtrlC(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("lua")
	ts.typeText("x = ")
	ts.ctrl('c')

	if ts.Interactive() {
		t.Fatal("Interactive() = true after Ctrl-C")
	}
	if ts.lastLine() != "/$" {
		t.Errorf("last line = %q, want shell prompt", ts.lastLine())
	}

	// The shell takes keys again
	ts.enter("pwd")
	lines := ts.lines()
	if lines[len(lines)-2] != "/" {
		t.Errorf("pwd output = %q, want /", lines[len(lines)-2])
	}
}

func TestShellLuaExitFunction(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("lua")
	ts.enter("exit()")

	if ts.Interactive() {
		t.Fatal("Interactive() = true after exit()")
	}
	want := []string{"/$ lua", "> exit()", "/$"}
	if got := ts.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestShellLuaFreshConsole(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("lua")
	ts.enter("x = 5")
	ts.ctrl('d')
	ts.enter("lua")
	ts.enter("print(x)")

	lines := ts.lines()
	if got := lines[len(lines)-2]; got != "nil" {
		t.Errorf("print(x) in a new console = %q, want nil", got)
	}
}

func TestShellLuaRequireFromCwd(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.enter("cd lib")
	ts.enter("lua")
	ts.enter("print(require('util').answer)")

	lines := ts.lines()
	if got := lines[len(lines)-2]; got != "42" {
		t.Errorf("require output = %q, want 42", got)
	}
}

func TestShellSetPrompts(t *testing.T) {
	ts := newTestShell(t, Options{Prompts: console.Prompts{Primary: "lua> ", Secondary: "...> "}})

	ts.enter("lua")
	if ts.lastLine() != "lua>" {
		t.Fatalf("last line = %q, want configured prompt", ts.lastLine())
	}

	ts.SetPrompts(console.Prompts{Primary: "L> "})
	ts.enter("1 + 1")
	if ts.lastLine() != "L>" {
		t.Errorf("last line = %q, want updated prompt", ts.lastLine())
	}
	ts.enter("if true then")
	if ts.lastLine() != "...>" {
		t.Errorf("last line = %q, want unchanged secondary prompt", ts.lastLine())
	}
}

func TestShellColorOutput(t *testing.T) {
	ts := newTestShell(t, Options{Color: true})

	if c := ts.widget.Screen().Cell(0, 0); c.Fg != terminal.Color(11) {
		t.Errorf("prompt color = %d, want bright yellow", c.Fg)
	}

	ts.enter("ls")
	screen := ts.widget.Screen()
	row := screen.Line(1)
	if row != "data.txt  lib  main.lua" {
		t.Fatalf("ls output = %q", row)
	}
	checks := []struct {
		col  int
		want terminal.Color
	}{
		{strings.Index(row, "data.txt"), terminal.ColorDefault},
		{strings.Index(row, "lib"), terminal.Color(14)},
		{strings.Index(row, "main.lua"), terminal.Color(11)},
	}
	for _, c := range checks {
		if got := screen.Cell(c.col, 1).Fg; got != c.want {
			t.Errorf("color at column %d = %d, want %d", c.col, got, c.want)
		}
	}

	ts.enter("cd nowhere")
	errRow := 3
	if got := screen.Cell(0, errRow).Fg; got != terminal.Color(9) {
		t.Errorf("error color = %d, want bright red (row %q)", got, screen.Line(errRow))
	}
}

func TestShellExec(t *testing.T) {
	ts := newTestShell(t, Options{})

	ts.typeText("ech")
	ts.Exec("lua")
	if !ts.Interactive() {
		t.Fatal("Exec(\"lua\") did not start the console")
	}
	if ts.lastLine() != "> " && ts.lastLine() != ">" {
		t.Errorf("last line = %q, want console prompt", ts.lastLine())
	}

	// Ignored while the console owns the keyboard
	ts.Exec("echo ignored")
	if strings.Contains(ts.text(), "ignored") {
		t.Errorf("Exec ran during interactive mode: %q", ts.text())
	}

	ts.ctrl('d')
	ts.Exec("echo back")
	lines := ts.lines()
	want := []string{"/$ echo back", "back", "/$"}
	if got := lines[len(lines)-3:]; strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("last lines = %q, want %q", got, want)
	}
}
