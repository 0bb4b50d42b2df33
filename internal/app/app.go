// Package app wires luaterm together: configuration and logging, the
// rooted file system, the terminal widget and its driver, and the shell
// that hosts the Lua console.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/dshills/luaterm/internal/config"
	"github.com/dshills/luaterm/internal/logging"
	"github.com/dshills/luaterm/internal/lua"
	"github.com/dshills/luaterm/internal/shell"
	"github.com/dshills/luaterm/internal/terminal"
	"github.com/dshills/luaterm/internal/vfs"
)

// Options configures the application. Non-zero fields override the
// matching config settings, the way command-line flags should.
type Options struct {
	// ConfigPath is the TOML config file. It is watched for changes while
	// the terminal runs.
	ConfigPath string

	// Root is the host directory the shell sees as "/".
	Root string

	// Lua opens the Lua console at startup instead of the command prompt.
	Lua bool

	// NoBanner suppresses the Lua console banner.
	NoBanner bool

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogFile receives log output. Without it logs are discarded.
	LogFile string

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Screen replaces the real terminal screen.
	Screen tcell.Screen

	// Pipe forces line-oriented input from Stdin even on a terminal.
	Pipe bool
}

// Application owns the long-lived pieces of a luaterm session.
type Application struct {
	opts      Options
	cfg       *config.Config
	fsys      *vfs.OSFS
	logCloser io.Closer
	log       *logrus.Entry

	running atomic.Bool
}

// New loads configuration, sets up logging and opens the shell root.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, NewOperationError("load config", opts.ConfigPath, err)
	}
	applyOverrides(cfg, opts)

	a := &Application{opts: opts, cfg: cfg, log: logging.Named("app")}

	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return nil, NewOperationError("set log level", cfg.Log.Level, err)
	}
	if cfg.Log.File != "" {
		closer, err := logging.SetupFile(cfg.Log.File)
		if err != nil {
			return nil, NewOperationError("open log", cfg.Log.File, err)
		}
		a.logCloser = closer
	}

	fsys, err := vfs.NewOSFS(cfg.Shell.Root)
	if err != nil {
		a.Shutdown()
		source := "shell.root"
		if opts.Root != "" {
			source = "--root"
		}
		return nil, NewOperationError("open root", cfg.Shell.Root, errors.Join(ErrInitialization, err)).
			WithContext("from " + source)
	}
	a.fsys = fsys

	a.log.WithFields(logrus.Fields{
		"root":   fsys.Root(),
		"config": opts.ConfigPath,
	}).Info("initialized")
	return a, nil
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.Root != "" {
		cfg.Shell.Root = opts.Root
	}
	if opts.NoBanner {
		empty := ""
		cfg.Console.Banner = &empty
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
}

// Config returns the effective configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// RunModule runs a Lua module from the shell root without a terminal,
// writing to the application's stdout and stderr.
func (a *Application) RunModule(name string, args []string) {
	a.log.WithField("module", name).Debug("run module")
	lua.RunModule(a.fsys, "/", name, args, a.opts.Stdout, a.opts.Stderr, a.luaOptions()...)
}

// Run starts the shell on a terminal and blocks until the user quits or
// ctx is cancelled. Leaving the shell returns ErrQuit.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe := a.usePipe()
	widgetOpts := []terminal.WidgetOption{terminal.WithWidgetLogger(logging.Named("widget"))}
	if pipe {
		widgetOpts = append(widgetOpts, terminal.WithMirror(a.opts.Stdout))
	}
	widget := terminal.NewWidget(a.cfg.Terminal.Cols, a.cfg.Terminal.Rows, widgetOpts...)
	defer widget.Close()

	var quit atomic.Bool
	sh := shell.New(widget, a.fsys, a.shellOptions(pipe, func() {
		quit.Store(true)
		cancel()
	}))
	defer sh.Close()

	if a.opts.ConfigPath != "" {
		go a.watchConfig(ctx, sh)
	}

	sh.Start()
	if a.opts.Lua {
		sh.Exec("lua")
	}

	var err error
	if pipe {
		a.log.Debug("running pipe driver")
		err = terminal.NewPipeDriver(a.opts.Stdin, widget).Run(ctx)
	} else {
		err = a.runScreen(ctx, widget)
	}
	if err != nil {
		return NewOperationError("run terminal", widget.ID(), err)
	}
	if quit.Load() {
		return ErrQuit
	}
	return nil
}

func (a *Application) runScreen(ctx context.Context, widget *terminal.Widget) error {
	screen := a.opts.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return err
		}
	}
	driver := terminal.NewDriver(screen, widget,
		terminal.WithColor(a.cfg.Terminal.Color),
		terminal.WithDriverLogger(logging.Named("driver")),
	)
	return driver.Run(ctx)
}

func (a *Application) usePipe() bool {
	if a.opts.Pipe {
		return true
	}
	if a.opts.Screen != nil {
		return false
	}
	return !isTerminal(a.opts.Stdin)
}

func (a *Application) shellOptions(pipe bool, onQuit func()) shell.Options {
	// Validated by config.Load.
	bindings, _ := a.cfg.Bindings()

	welcome := shell.DefaultWelcome
	if a.cfg.Shell.Welcome != nil {
		welcome = *a.cfg.Shell.Welcome
	}

	color := a.cfg.Terminal.Color
	if pipe && !isTerminal(a.opts.Stdout) {
		color = false
	}

	return shell.Options{
		Prompts:     a.cfg.Prompts(),
		Bindings:    bindings,
		Banner:      a.cfg.Console.Banner,
		Welcome:     welcome,
		Color:       color,
		PromptColor: a.cfg.Shell.PromptColor,
		LuaOptions:  a.luaOptions(),
		OnQuit:      onQuit,
	}
}

func (a *Application) luaOptions() []lua.StateOption {
	opts := []lua.StateOption{lua.WithExecutionTimeout(a.cfg.Lua.Timeout.Std())}
	if a.cfg.Lua.AllowGetenv {
		opts = append(opts, lua.WithGetenv(os.Getenv))
	}
	return opts
}

// watchConfig applies prompt changes from the config file to the running
// shell. Other settings take effect on the next start.
func (a *Application) watchConfig(ctx context.Context, sh *shell.Shell) {
	err := config.Watch(ctx, a.opts.ConfigPath, func(cfg *config.Config, err error) {
		if err != nil {
			return
		}
		sh.SetPrompts(cfg.Prompts())
		a.log.WithField("primary", cfg.Console.PrimaryPrompt).Info("prompts updated")
	}, config.WithWatchLogger(logging.Named("config")))
	if err != nil {
		a.log.WithError(err).Warn("config watch stopped")
	}
}

// Shutdown releases the log file.
func (a *Application) Shutdown() {
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			a.log.WithError(err).Warn("closing log file")
		}
		a.logCloser = nil
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
