package lua

import (
	"errors"
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luaterm/internal/vfs"
)

// RunModule runs a module as a program entry point.
//
// name is resolved against dir like require does, arg is set from args, and
// output goes to stdout. A call to exit() ends the program quietly. Any other
// failure is printed to stderr; nothing is returned.
func RunModule(fsys vfs.FileSystem, dir, name string, args []string, stdout, stderr io.Writer, opts ...StateOption) {
	err := runModule(fsys, dir, name, args, stdout, opts...)
	if err == nil {
		return
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return
	}
	fmt.Fprintf(stderr, "lua: %s\n", ErrorMessage(err))
}

func runModule(fsys vfs.FileSystem, dir, name string, args []string, stdout io.Writer, opts ...StateOption) error {
	p, src, err := FindModule(fsys, dir, name)
	if err != nil {
		return err
	}

	opts = append(opts, WithOutput(stdout), WithFileSystem(fsys, dir))
	state := NewState(opts...)
	defer state.Close()

	state.SetArgs(name, args)
	code := string(src)
	if strings.HasPrefix(code, "#") {
		// Comment out a shebang line, keeping line numbers intact
		code = "--" + code
	}
	fn, err := state.Load(code, p)
	if err != nil {
		return err
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = lua.LString(a)
	}
	_, err = state.Run(fn, luaArgs...)
	return err
}
