package lua

import (
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/luaterm/internal/logging"
)

// chunkName is the source name reported in console error messages.
const chunkName = "stdin"

// Console is a push-based evaluator over a State. Lines accumulate until
// they form a complete chunk, which is then run. Expressions have their
// values printed.
type Console struct {
	state  *State
	lines  []string
	onExit func(code int)
	log    *logrus.Entry
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithExitHandler sets the function called when Lua code calls exit().
func WithExitHandler(fn func(code int)) ConsoleOption {
	return func(c *Console) {
		c.onExit = fn
	}
}

// NewConsole creates a console evaluating in state.
func NewConsole(state *State, opts ...ConsoleOption) *Console {
	c := &Console{
		state: state,
		log:   logging.Named("lua.console"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnExit replaces the exit handler.
func (c *Console) OnExit(fn func(code int)) {
	c.onExit = fn
}

// State returns the underlying interpreter state.
func (c *Console) State() *State {
	return c.state
}

// Push adds a line of source and returns true if more input is needed to
// complete the chunk. Complete chunks are run immediately; their errors and
// results are written to the current sink.
func (c *Console) Push(line string) bool {
	c.lines = append(c.lines, line)
	src := strings.Join(c.lines, "\n")

	// Try as an expression first so "1 + 1" prints its value
	fn, err := c.state.Load("return "+src, chunkName)
	if err != nil {
		fn, err = c.state.Load(src, chunkName)
	}
	if err != nil {
		if Incomplete(err) {
			return true
		}
		c.lines = nil
		c.report(err)
		return false
	}
	c.lines = nil

	results, err := c.state.Run(fn)
	var exit *ExitError
	if errors.As(err, &exit) {
		c.log.WithField("code", exit.Code).Debug("exit requested")
		if c.onExit != nil {
			c.onExit(exit.Code)
		}
		return false
	}
	if err != nil {
		c.report(err)
		return false
	}
	c.printResults(results)
	return false
}

// Redirect installs w as the output and error sink and returns the previous one.
func (c *Console) Redirect(w io.Writer) io.Writer {
	return c.state.SetOutput(w)
}

// Reset discards any partially entered chunk.
func (c *Console) Reset() {
	c.lines = nil
}

// Pending reports whether a partial chunk is buffered.
func (c *Console) Pending() bool {
	return len(c.lines) > 0
}

// Close releases the interpreter.
func (c *Console) Close() error {
	c.state.Close()
	return nil
}

func (c *Console) printResults(results []lua.LValue) {
	if len(results) == 0 {
		return
	}
	parts := make([]string, len(results))
	for i, v := range results {
		parts[i] = c.state.ToString(v)
	}
	c.state.write(strings.Join(parts, "\t") + "\n")
}

func (c *Console) report(err error) {
	c.log.WithError(err).Debug("chunk failed")
	c.state.write(ErrorMessage(err) + "\n")
}

// Incomplete reports whether err is a syntax error at end of input, which
// means the chunk needs more lines.
func Incomplete(err error) bool {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) || apiErr.Type != lua.ApiErrorSyntax {
		return false
	}
	var perr *parse.Error
	if errors.As(apiErr.Cause, &perr) {
		return perr.Pos.Line == parse.EOF
	}
	return false
}

// ErrorMessage returns the text shown to the user for err, without stack
// traces or trailing newlines.
func ErrorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return strings.TrimRight(apiErr.Object.String(), "\n")
	}
	return strings.TrimRight(err.Error(), "\n")
}
