// Package lua embeds a sandboxed gopher-lua interpreter for the console.
package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luaterm/internal/logging"
	"github.com/dshills/luaterm/internal/vfs"
)

// DefaultExecutionTimeout bounds a single chunk. Zero disables the limit.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with the sandbox and output routing.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes Go callers;
// Lua code itself always runs on the caller's goroutine.
type State struct {
	L *lua.LState

	mu sync.Mutex

	timeout time.Duration
	out     io.Writer
	fsys    vfs.FileSystem
	dir     string
	getenv  func(string) string
	log     *logrus.Entry

	sandbox *Sandbox

	// exit is set by exit()/os.exit() and consumed by run.
	exit *ExitError

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the per-chunk timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithOutput sets the initial sink for print and io.write.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.out = w
	}
}

// WithFileSystem lets require load modules from fsys, resolved against dir.
func WithFileSystem(fsys vfs.FileSystem, dir string) StateOption {
	return func(s *State) {
		s.fsys = fsys
		s.dir = dir
	}
}

// WithGetenv exposes environment lookups to os.getenv.
// Without it os.getenv always returns nil.
func WithGetenv(fn func(string) string) StateOption {
	return func(s *State) {
		s.getenv = fn
	}
}

// WithLogger sets the log entry.
func WithLogger(entry *logrus.Entry) StateOption {
	return func(s *State) {
		s.log = entry
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout: DefaultExecutionTimeout,
		out:     io.Discard,
		dir:     "/",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Named("lua")
	}

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	openSafeLibraries(s.L)

	s.sandbox = NewSandbox(s)
	s.sandbox.Install()
	return s
}

// openSafeLibraries opens only safe Lua standard libraries.
// io, os, debug and package are replaced by the sandbox.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
		{lua.OsLibName, lua.OpenOs},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// SetOutput installs w as the sink for print and io.write and returns the
// previous sink.
func (s *State) SetOutput(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.out
	if w == nil {
		w = io.Discard
	}
	s.out = w
	return prev
}

// Output returns the current sink.
func (s *State) Output() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// write sends text to the current sink. Called from Lua builtins while the
// state is running, so it must not take the state lock.
func (s *State) write(text string) {
	if _, err := io.WriteString(s.out, text); err != nil {
		s.log.WithError(err).Debug("write to sink failed")
	}
}

// Load compiles source without running it.
func (s *State) Load(source, name string) (*lua.LFunction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	return s.L.Load(strings.NewReader(source), name)
}

// Run calls fn with args and returns its results.
//
// A call to exit() or os.exit() ends the chunk and is reported as *ExitError.
// Running past the timeout yields ErrExecutionTimeout.
func (s *State) Run(fn *lua.LFunction, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	ctx := context.Background()
	cancel := func() {}
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.exit = nil
	base := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	err := s.doWithRecovery(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	})

	if s.exit != nil {
		exit := s.exit
		s.exit = nil
		s.L.SetTop(base)
		return nil, exit
	}
	if err != nil {
		s.L.SetTop(base)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrExecutionTimeout, s.timeout)
		}
		return nil, err
	}

	n := s.L.GetTop() - base
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.L.Get(base + i + 1)
	}
	s.L.SetTop(base)
	return results, nil
}

// DoString compiles and runs code, discarding results.
func (s *State) DoString(code string) error {
	fn, err := s.Load(code, "<string>")
	if err != nil {
		return err
	}
	_, err = s.Run(fn)
	return err
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// ToString converts a value with Lua's tostring semantics, honoring
// __tostring metamethods.
func (s *State) ToString(v lua.LValue) string {
	return s.L.ToStringMeta(v).String()
}

// SetArgs sets the global arg table: arg[0] is the script name and
// arg[1..n] the arguments.
func (s *State) SetArgs(script string, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.L.NewTable()
	tbl.RawSetInt(0, lua.LString(script))
	for i, a := range args {
		tbl.RawSetInt(i+1, lua.LString(a))
	}
	s.L.SetGlobal("arg", tbl)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Close releases the interpreter. Further calls return ErrStateClosed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
