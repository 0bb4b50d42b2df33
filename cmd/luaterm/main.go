// Package main is the entry point for luaterm.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/luaterm/internal/app"
	"github.com/dshills/luaterm/internal/config"
	"github.com/dshills/luaterm/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = shell.Version
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type rootFlags struct {
	configPath string
	root       string
	lua        bool
	noBanner   bool
	pipe       bool
	logLevel   string
	logFile    string
}

func (f *rootFlags) options(stdin io.Reader, stdout, stderr io.Writer) app.Options {
	return app.Options{
		ConfigPath: f.configPath,
		Root:       f.root,
		Lua:        f.lua,
		NoBanner:   f.noBanner,
		Pipe:       f.pipe,
		LogLevel:   f.logLevel,
		LogFile:    f.logFile,
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     stderr,
	}
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "luaterm",
		Short: "A Lua console inside a simulated terminal shell",
		Long: `luaterm runs a small command shell in a virtual terminal. Type "lua"
to open an interactive Lua console, "run <module>" to run a script, and
"help" for the other commands. Ctrl-C abandons the console, Ctrl-D leaves it.

When standard input is not a terminal, input lines are typed into the shell
one by one and the terminal output is copied to standard output.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(flags.options(stdin, stdout, stderr))
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Run(cmd.Context()); err != nil && !errors.Is(err, app.ErrQuit) {
				return err
			}
			return nil
		},
	}
	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("luaterm %s\n", versionString()))

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	pf.StringVarP(&flags.root, "root", "w", "", "Directory the shell sees as / (default from config, else .)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "Write logs to this file")

	cmd.Flags().BoolVar(&flags.lua, "lua", false, "Start in the Lua console")
	cmd.Flags().BoolVar(&flags.noBanner, "no-banner", false, "Do not print the Lua console banner")
	cmd.Flags().BoolVar(&flags.pipe, "pipe", false, "Read input lines from stdin even on a terminal")

	cmd.AddCommand(
		newRunCommand(flags, stdin, stdout, stderr),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return cmd
}

func newRunCommand(flags *rootFlags, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module> [args...]",
		Short: "Run a Lua module without the terminal",
		Long: `Run resolves <module> under the shell root the way require does
(dots become directories, then <name>.lua or <name>/init.lua), sets the
global arg table from the remaining arguments, and runs it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(flags.options(stdin, stdout, stderr))
			if err != nil {
				return err
			}
			defer a.Shutdown()
			a.RunModule(args[0], args[1:])
			return nil
		},
	}
	// Everything after the module name belongs to the script
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newConfigCommand(flags *rootFlags) *cobra.Command {
	var listEnv bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if listEnv {
				for _, name := range config.EnvVars() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.root != "" {
				cfg.Shell.Root = flags.root
			}
			if flags.configPath != "" {
				fmt.Fprintf(out, "# %s\n", flags.configPath)
			}
			return cfg.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&listEnv, "env", false, "List the environment variables that override settings")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "luaterm %s\n", versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
