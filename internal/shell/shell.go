package shell

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/console"
	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/logging"
	"github.com/dshills/luaterm/internal/lua"
	"github.com/dshills/luaterm/internal/terminal"
	"github.com/dshills/luaterm/internal/vfs"
)

// Version is reported by the help command.
const Version = "0.1.0"

// Terminal is the widget surface the shell drives.
type Terminal interface {
	io.Writer
	OnKey(fn terminal.KeyHandler) (dispose func())
	Clear()
}

type mode int

const (
	commandMode mode = iota
	interactiveMode
)

// Options configures a Shell.
type Options struct {
	// Prompts are used by the Lua console.
	Prompts console.Prompts

	// Bindings are the interrupt and end-of-input keys, used by the command
	// line and the Lua console alike.
	Bindings console.Bindings

	// Banner is written when the console starts. Nil selects the default.
	Banner *string

	// Welcome is written once by Start.
	Welcome string

	// Color enables ANSI colors in shell output.
	Color bool

	// PromptColor is a lipgloss color for the shell prompt.
	PromptColor string

	// LuaOptions are applied to every Lua state the shell creates.
	LuaOptions []lua.StateOption

	// OnQuit is called when the user leaves the shell.
	OnQuit func()
}

// DefaultWelcome is the Start message.
const DefaultWelcome = "luaterm: a Lua console in a simulated shell.\nType 'help' to see a list of commands\n"

// Shell runs commands typed into a terminal widget.
//
// Key events and configuration updates may arrive on different goroutines;
// mu serializes them. Host callbacks from the adapter run while mu is held.
type Shell struct {
	mu sync.Mutex

	term Terminal
	fsys vfs.FileSystem
	cwd  string
	opts Options

	styles   styles
	line     console.LineBuffer
	dispose  func()
	mode     mode
	commands map[string]*builtin
	quitting bool

	adapter *console.Adapter
	interp  *lua.Console
	// retired is the console that just left interactive mode; it is closed
	// once its last key event has unwound.
	retired    *lua.Console
	scriptExit bool

	log *logrus.Entry
}

// New creates a shell over fsys rooted at "/".
func New(term Terminal, fsys vfs.FileSystem, opts Options) *Shell {
	if opts.Prompts == (console.Prompts{}) {
		opts.Prompts = console.DefaultPrompts()
	}
	if opts.Bindings == (console.Bindings{}) {
		opts.Bindings = console.DefaultBindings()
	}
	s := &Shell{
		term:   term,
		fsys:   fsys,
		cwd:    "/",
		opts:   opts,
		styles: newStyles(opts.Color, opts.PromptColor),
		log:    logging.Named("shell"),
	}
	s.commands = s.builtins()
	return s
}

// Start writes the welcome text and the first prompt and begins taking
// keys.
func (s *Shell) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Welcome != "" {
		s.write(s.opts.Welcome)
	}
	s.listen(s.handleCommandKey)
	s.writePrompt()
}

// Cwd returns the working directory.
func (s *Shell) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// Interactive reports whether the Lua console has the keyboard.
func (s *Shell) Interactive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == interactiveMode
}

// SetPrompts changes the console prompts, including for a running console.
func (s *Shell) SetPrompts(p console.Prompts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Primary != "" {
		s.opts.Prompts.Primary = p.Primary
	}
	if p.Secondary != "" {
		s.opts.Prompts.Secondary = p.Secondary
	}
	if s.adapter != nil {
		s.adapter.SetPrompts(s.opts.Prompts)
	}
}

// Close releases a running console.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dispose != nil {
		s.dispose()
		s.dispose = nil
	}
	s.closeRetired()
	if s.interp != nil {
		err := s.interp.Close()
		s.interp = nil
		return err
	}
	return nil
}

func (s *Shell) listen(fn terminal.KeyHandler) {
	if s.dispose != nil {
		s.dispose()
	}
	s.dispose = s.term.OnKey(fn)
}

func (s *Shell) write(text string) {
	if _, err := io.WriteString(s.term, text); err != nil {
		s.log.WithError(err).Warn("terminal write failed")
	}
}

func (s *Shell) writeError(text string) {
	s.write(paint(s.styles.err, text))
}

func (s *Shell) writePrompt() {
	s.write(s.styles.prompt.Render(s.cwd + "$ "))
}

func (s *Shell) handleCommandKey(ev key.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quitting {
		return
	}

	switch {
	case ev.IsEnter():
		s.write("\n")
		s.submit(s.line.Take())
	case s.opts.Bindings.IsInterrupt(ev):
		s.line.Reset()
		s.write("^C\n")
		s.writePrompt()
	case s.opts.Bindings.IsEOF(ev):
		if s.line.Len() == 0 {
			s.write("exit\n")
			s.quit()
		}
	case ev.IsCtrl('l'):
		s.term.Clear()
		s.writePrompt()
		s.write(s.line.String())
	case ev.IsBackspace():
		if s.line.Backspace() {
			s.write(console.EraseSequence)
		}
	case ev.IsRune() && !ev.Modifiers.HasCtrl() && !ev.Modifiers.HasAlt():
		text := string(ev.Rune)
		s.line.Append(text)
		s.write(text)
	}
}

// Exec runs line as though it had been typed at the command prompt.
// It does nothing while the Lua console is active or after quit.
func (s *Shell) Exec(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quitting || s.mode != commandMode {
		return
	}
	s.line.Reset()
	s.write(line + "\n")
	s.submit(line)
}

func (s *Shell) submit(line string) {
	s.execute(line)
	if s.mode == commandMode && !s.quitting {
		s.writePrompt()
	}
}

func (s *Shell) handleInteractiveKey(ev key.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adapter != nil {
		s.adapter.HandleKey(ev)
	}
	s.closeRetired()
}

func (s *Shell) closeRetired() {
	if s.retired == nil {
		return
	}
	if err := s.retired.Close(); err != nil {
		s.log.WithError(err).Warn("closing console")
	}
	s.retired = nil
}

func (s *Shell) quit() {
	s.quitting = true
	s.log.Info("shell quit")
	if s.opts.OnQuit != nil {
		s.opts.OnQuit()
	}
}

// enterInteractive starts a fresh Lua console and gives it the keyboard.
func (s *Shell) enterInteractive() {
	state := lua.NewState(s.luaOptions()...)
	s.interp = lua.NewConsole(state, lua.WithExitHandler(func(code int) {
		s.scriptExit = true
		s.adapter.Exit()
	}))
	s.adapter = console.NewAdapter(s.term, s.interp, s,
		console.WithPrompts(s.opts.Prompts),
		console.WithBindings(s.opts.Bindings),
		console.WithLogger(logging.Named("console")),
	)
	s.mode = interactiveMode
	s.scriptExit = false
	s.listen(s.handleInteractiveKey)
	s.log.Debug("entered interactive mode")
	s.adapter.BeginInteraction(console.WithOptionalBanner(s.opts.Banner))
}

func (s *Shell) leaveInteractive() {
	s.listen(s.handleCommandKey)
	s.retired = s.interp
	s.interp = nil
	s.adapter = nil
	s.mode = commandMode
	s.line.Reset()
	if !s.scriptExit {
		// The cursor is still on the console's input line
		s.write("\n")
	}
	s.scriptExit = false
	s.log.Debug("left interactive mode")
	s.writePrompt()
}

// ExitInteractiveMode implements console.Host.
func (s *Shell) ExitInteractiveMode() {
	s.leaveInteractive()
}

// RestorePriorMode implements console.Host.
func (s *Shell) RestorePriorMode() {
	s.leaveInteractive()
}

func (s *Shell) luaOptions() []lua.StateOption {
	opts := append([]lua.StateOption{}, s.opts.LuaOptions...)
	return append(opts,
		lua.WithFileSystem(s.fsys, s.cwd),
		lua.WithLogger(logging.Named("lua")),
	)
}

// errorWriter paints everything written to it in the error style.
type errorWriter struct {
	s *Shell
}

func (w errorWriter) Write(p []byte) (int, error) {
	w.s.writeError(string(p))
	return len(p), nil
}

var _ console.Host = (*Shell)(nil)

func (s *Shell) errorf(format string, args ...any) {
	s.writeError(fmt.Sprintf(format, args...))
}
