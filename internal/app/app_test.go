package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/luaterm/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestApp(t *testing.T, opts Options) (*Application, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if opts.Root == "" {
		opts.Root = t.TempDir()
	}
	var stdout, stderr bytes.Buffer
	opts.Stdout = &stdout
	opts.Stderr = &stderr
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a, &stdout, &stderr
}

func TestNewAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.FileName)
	writeFile(t, cfgPath, "[console]\nprimary_prompt = \"lua> \"\n[shell]\nroot = \"/nonexistent\"\n")
	root := filepath.Join(dir, "scripts")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}

	a, _, _ := newTestApp(t, Options{
		ConfigPath: cfgPath,
		Root:       root,
		NoBanner:   true,
		LogLevel:   "warn",
	})

	cfg := a.Config()
	if cfg.Console.PrimaryPrompt != "lua> " {
		t.Errorf("PrimaryPrompt = %q, want value from file", cfg.Console.PrimaryPrompt)
	}
	if cfg.Shell.Root != root {
		t.Errorf("Root = %q, want flag value %q", cfg.Shell.Root, root)
	}
	if cfg.Console.Banner == nil || *cfg.Console.Banner != "" {
		t.Errorf("Banner = %v, want empty string", cfg.Console.Banner)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	badConfig := filepath.Join(dir, "bad.toml")
	writeFile(t, badConfig, "[console\n")

	t.Run("missing root", func(t *testing.T) {
		_, err := New(Options{Root: filepath.Join(dir, "absent")})
		if !errors.Is(err, ErrInitialization) {
			t.Fatalf("New() error = %v, want ErrInitialization", err)
		}
		var opErr *OperationError
		if !errors.As(err, &opErr) || opErr.Op != "open root" {
			t.Fatalf("New() error = %v, want open root OperationError", err)
		}
		if opErr.Context != "from --root" {
			t.Errorf("Context = %q, want %q", opErr.Context, "from --root")
		}
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := New(Options{ConfigPath: badConfig, Root: dir})
		var pe *config.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("New() error = %v, want *config.ParseError", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := New(Options{Root: dir, LogLevel: "loud"})
		if err == nil {
			t.Fatal("New() accepted log level loud")
		}
	})
}

func TestRunModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hello.lua"), "print('hello ' .. arg[1])\n")
	writeFile(t, filepath.Join(root, "pkg", "init.lua"), "print(#arg)\nos.exit(3)\nprint('unreachable')\n")

	tests := []struct {
		name       string
		module     string
		args       []string
		wantOut    string
		wantErrSub string
	}{
		{"args", "hello", []string{"world"}, "hello world\n", ""},
		{"package init", "pkg", []string{"a", "b"}, "2\n", ""},
		{"missing", "nope", nil, "", "lua: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, stdout, stderr := newTestApp(t, Options{Root: root})
			a.RunModule(tt.module, tt.args)
			if stdout.String() != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantOut)
			}
			if tt.wantErrSub == "" && stderr.Len() != 0 {
				t.Errorf("stderr = %q, want empty", stderr.String())
			}
			if tt.wantErrSub != "" && !strings.HasPrefix(stderr.String(), tt.wantErrSub) {
				t.Errorf("stderr = %q, want prefix %q", stderr.String(), tt.wantErrSub)
			}
		})
	}
}

func TestRunPipe(t *testing.T) {
	input := strings.Join([]string{
		"echo hi",
		"lua",
		"x = 20",
		"print(x + 22)",
		"exit()",
		"exit",
	}, "\n") + "\n"

	a, stdout, _ := newTestApp(t, Options{
		Stdin:    strings.NewReader(input),
		Pipe:     true,
		NoBanner: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Run(ctx); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run() = %v, want ErrQuit", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"Type 'help' to see a list of commands",
		"/$ echo hi\r\nhi\r\n",
		"> print(x + 22)\r\n42\r\n",
		"/$ exit\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%q", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("pipe output to a non-terminal has escape sequences: %q", out)
	}
}

func TestRunAlreadyRunning(t *testing.T) {
	a, _, _ := newTestApp(t, Options{Pipe: true})
	a.running.Store(true)
	if err := a.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestRunScreen(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	a, _, _ := newTestApp(t, Options{Screen: sim, NoBanner: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	screenText := func() string {
		cells, width, height := sim.GetContents()
		var b strings.Builder
		for i := 0; i < width*height; i++ {
			b.WriteString(string(cells[i].Runes))
		}
		return b.String()
	}
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(screenText(), "/$") {
		if time.Now().After(deadline) {
			t.Fatal("prompt never drawn")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, r := range "exit" {
		sim.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Fatalf("Run() = %v, want ErrQuit", err)
		}
	case <-ctx.Done():
		t.Fatal("Run() did not return after exit")
	}
}

func TestRunPipeStartsInLua(t *testing.T) {
	a, stdout, _ := newTestApp(t, Options{
		Stdin:    strings.NewReader("1 + 1\n"),
		Pipe:     true,
		Lua:      true,
		NoBanner: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// End of input sends Ctrl-D, which leaves the console but not the shell.
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "/$ lua\r\n> 1 + 1\r\n2\r\n> ") {
		t.Errorf("output = %q", out)
	}
}
