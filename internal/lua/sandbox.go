package lua

import (
	"errors"
	"io/fs"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luaterm/internal/vfs"
)

// Sandbox restricts Lua execution to safe operations and routes output to
// the owning State's sink.
type Sandbox struct {
	state *State
	L     *lua.LState

	// loading guards against require cycles.
	loading map[string]bool
}

// allowedOS lists the os functions kept from gopher-lua's os library.
var allowedOS = []string{"clock", "date", "difftime", "time"}

// NewSandbox creates a new sandbox for the state.
func NewSandbox(s *State) *Sandbox {
	return &Sandbox{
		state:   s,
		L:       s.L,
		loading: make(map[string]bool),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that read files or compile arbitrary chunks
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installIO()
	s.installOS()
	s.installExit()
	s.installRequire()
}

// installPrint replaces print so its output reaches the current sink.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		s.state.write(strings.Join(parts, "\t") + "\n")
		return 0
	}))
}

// installIO provides io.write only. Reading is left to the shell.
func (s *Sandbox) installIO() {
	ioMod := s.L.NewTable()
	s.L.SetField(ioMod, "write", s.L.NewFunction(func(L *lua.LState) int {
		var b strings.Builder
		for i := 1; i <= L.GetTop(); i++ {
			switch v := L.Get(i).(type) {
			case lua.LString:
				b.WriteString(string(v))
			case lua.LNumber:
				b.WriteString(v.String())
			default:
				L.ArgError(i, "string expected, got "+v.Type().String())
			}
		}
		s.state.write(b.String())
		return 0
	}))
	s.L.SetGlobal("io", ioMod)
}

// installOS keeps the time functions from gopher-lua's os library and adds
// a getenv that goes through the state's lookup function.
func (s *Sandbox) installOS() {
	full, _ := s.L.GetGlobal("os").(*lua.LTable)
	osMod := s.L.NewTable()
	if full != nil {
		for _, name := range allowedOS {
			s.L.SetField(osMod, name, s.L.GetField(full, name))
		}
	}
	s.L.SetField(osMod, "getenv", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if s.state.getenv == nil {
			L.Push(lua.LNil)
			return 1
		}
		v := s.state.getenv(name)
		if v == "" {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LString(v))
		}
		return 1
	}))
	s.L.SetGlobal("os", osMod)
}

// installExit adds exit() and os.exit(). Both record the request on the
// state and unwind the running chunk.
func (s *Sandbox) installExit() {
	exit := s.L.NewFunction(func(L *lua.LState) int {
		code := 0
		switch v := L.Get(1).(type) {
		case lua.LNumber:
			code = int(v)
		case lua.LBool:
			if !bool(v) {
				code = 1
			}
		}
		s.state.exit = &ExitError{Code: code}
		L.RaiseError("exit")
		return 0
	})
	s.L.SetGlobal("exit", exit)
	if osMod, ok := s.L.GetGlobal("os").(*lua.LTable); ok {
		s.L.SetField(osMod, "exit", exit)
	}
}

// installRequire replaces require with a loader that resolves modules
// through the state's file system. Dots in the name become directories, and
// name.lua is tried before name/init.lua.
func (s *Sandbox) installRequire() {
	pkg := s.L.NewTable()
	loaded := s.L.NewTable()
	for _, name := range []string{"string", "table", "math", "coroutine", "io", "os"} {
		loaded.RawSetString(name, s.L.GetGlobal(name))
	}
	loaded.RawSetString("_G", s.L.Get(lua.GlobalsIndex))
	s.L.SetField(pkg, "loaded", loaded)
	s.L.SetField(pkg, "path", lua.LString("?.lua;?/init.lua"))
	s.L.SetGlobal("package", pkg)

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if v := loaded.RawGetString(name); v != lua.LNil {
			L.Push(v)
			return 1
		}
		if s.loading[name] {
			L.RaiseError("loop or previous error loading module %q", name)
		}

		fn, err := s.loadModule(name)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}

		s.loading[name] = true
		defer delete(s.loading, name)

		L.Push(fn)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		result := L.Get(-1)
		L.Pop(1)
		if result == lua.LNil {
			result = lua.LTrue
		}
		loaded.RawSetString(name, result)
		L.Push(result)
		return 1
	}))
}

// loadModule finds and compiles a module without running it.
func (s *Sandbox) loadModule(name string) (*lua.LFunction, error) {
	if s.state.fsys == nil {
		return nil, moduleNotFound(name, nil)
	}
	p, src, err := FindModule(s.state.fsys, s.state.dir, name)
	if err != nil {
		return nil, err
	}
	return s.L.Load(strings.NewReader(string(src)), p)
}

// FindModule resolves a module name against dir and returns its path and
// source.
func FindModule(fsys vfs.FileSystem, dir, name string) (string, []byte, error) {
	base := strings.ReplaceAll(name, ".", "/")
	candidates := []string{
		vfs.Resolve(dir, base+".lua"),
		vfs.Resolve(dir, base+"/init.lua"),
	}
	if strings.HasSuffix(name, ".lua") {
		candidates = []string{vfs.Resolve(dir, name)}
	}

	for _, p := range candidates {
		src, err := fsys.ReadFile(p)
		if err == nil {
			return p, src, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, err
		}
	}
	return "", nil, moduleNotFound(name, candidates)
}

func moduleNotFound(name string, tried []string) error {
	return &moduleError{name: name, tried: tried}
}

type moduleError struct {
	name  string
	tried []string
}

func (e *moduleError) Error() string {
	msg := "module '" + e.name + "' not found"
	for _, t := range e.tried {
		msg += "\n\tno file '" + t + "'"
	}
	return msg
}

func (e *moduleError) Unwrap() error { return ErrModuleNotFound }
