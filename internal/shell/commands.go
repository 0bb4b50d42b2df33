package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/luaterm/internal/lua"
	"github.com/dshills/luaterm/internal/vfs"
)

// builtin is a shell command. A new cobra command is built for every run so
// flag state never leaks between lines.
type builtin struct {
	short string
	build func() *cobra.Command
}

func (s *Shell) builtins() map[string]*builtin {
	return map[string]*builtin{
		"ls":    {"List files", s.lsCommand},
		"echo":  {"Write arguments to the standard output", s.echoCommand},
		"pwd":   {"Print the current working directory", s.pwdCommand},
		"cd":    {"Change the current working directory", s.cdCommand},
		"cat":   {"Print the contents of files", s.catCommand},
		"touch": {"Create a file or update its modification time", s.touchCommand},
		"mkdir": {"Create a directory", s.mkdirCommand},
		"clear": {"Clear the screen", s.clearCommand},
		"help":  {"Get help!", s.helpCommand},
		"lua":   {"Run the Lua interpreter", s.luaCommand},
		"run":   {"Run a Lua module as a program", s.runCommand},
		"exit":  {"Leave the shell", s.exitCommand},
	}
}

func (s *Shell) commandNames() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// execute runs one command line.
func (s *Shell) execute(line string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return
	}

	b, ok := s.commands[tokens[0]]
	if !ok {
		s.write(fmt.Sprintf("No command found matching '%s'. Known commands are %s\n",
			line, strings.Join(s.commandNames(), ", ")))
		return
	}

	cmd := s.newCommand(tokens[0], b)
	// A nil slice would make cobra fall back to os.Args
	cmd.SetArgs(append([]string{}, tokens[1:]...))
	if err := cmd.Execute(); err != nil {
		s.log.WithError(err).WithField("command", tokens[0]).Debug("command failed")
		s.errorf("%s: %v\n", tokens[0], err)
	}
}

func (s *Shell) newCommand(name string, b *builtin) *cobra.Command {
	cmd := b.build()
	cmd.Use = strings.Replace(cmd.Use, "NAME", name, 1)
	cmd.Short = b.short
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetOut(s.term)
	cmd.SetErr(errorWriter{s})
	return cmd
}

func (s *Shell) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME [path]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "."
			if len(args) == 1 {
				p = args[0]
			}
			dir := vfs.Resolve(s.cwd, p)
			entries, err := s.fsys.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("could not list files from path %s", p)
			}

			var b strings.Builder
			for _, e := range entries {
				name := e.Name()
				switch {
				case e.IsDir():
					name = s.styles.dir.Render(name)
				case strings.HasSuffix(name, ".lua"):
					name = s.styles.script.Render(name)
				}
				b.WriteString(name + "  ")
			}
			s.write(b.String() + "\n")
			return nil
		},
	}
}

func (s *Shell) echoCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "NAME [args...]",
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			s.write(strings.Join(args, " ") + "\n")
		},
	}
}

func (s *Shell) pwdCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.write(s.cwd + "\n")
		},
	}
}

func (s *Shell) cdCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME [path]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("you must provide a [path] to change to")
			}
			dir := vfs.Resolve(s.cwd, args[0])
			if !vfs.IsDir(s.fsys, dir) {
				return fmt.Errorf("could not resolve path '%s'", args[0])
			}
			s.cwd = dir
			return nil
		},
	}
}

func (s *Shell) catCommand() *cobra.Command {
	var number bool
	cmd := &cobra.Command{
		Use:  "NAME [-n] [paths...]",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, p := range args {
				data, err := s.fsys.ReadFile(vfs.Resolve(s.cwd, p))
				if err != nil {
					failed = append(failed, p)
					continue
				}
				s.write(formatCat(string(data), number))
			}
			if len(failed) > 0 {
				return fmt.Errorf("could not read %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&number, "number", "n", false, "Print line numbers")
	return cmd
}

// formatCat prefixes lines with their number when number is set. A final
// newline does not start another numbered line.
func formatCat(contents string, number bool) string {
	if !number || contents == "" {
		return contents
	}
	body, trailing := strings.CutSuffix(contents, "\n")
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strconv.Itoa(i+1) + " " + line
	}
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out
}

func (s *Shell) touchCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME <path>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := vfs.Resolve(s.cwd, args[0])
			data, err := s.fsys.ReadFile(p)
			if err != nil && vfs.Exists(s.fsys, p) {
				return fmt.Errorf("could not touch path %s", args[0])
			}
			if err := s.fsys.WriteFile(p, data, 0o644); err != nil {
				return fmt.Errorf("could not touch path %s", args[0])
			}
			return nil
		},
	}
}

func (s *Shell) mkdirCommand() *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:  "NAME [-p] <path>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := vfs.Resolve(s.cwd, args[0])
			mkdir := s.fsys.Mkdir
			if parents {
				mkdir = s.fsys.MkdirAll
			}
			if err := mkdir(p, 0o755); err != nil {
				return fmt.Errorf("unable to create directory at '%s'", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "Create missing parent directories")
	return cmd
}

func (s *Shell) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.term.Clear()
		},
	}
}

func (s *Shell) helpCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME [command]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				b, ok := s.commands[args[0]]
				if !ok {
					return fmt.Errorf("no help topics match '%s'", args[0])
				}
				var buf bytes.Buffer
				c := s.newCommand(args[0], b)
				c.SetOut(&buf)
				if err := c.Help(); err != nil {
					return err
				}
				s.write(buf.String())
				return nil
			}

			s.write(fmt.Sprintf("luaterm shell, version %s\n", Version))
			s.write("These shell commands are defined internally.  Type `help' to see this list.\n")
			s.write("Type `help name' to find out more about the function `name'.\n")
			for _, name := range s.commandNames() {
				// Descriptions start at column 20
				s.write(fmt.Sprintf(" %s\x1b[20G%s\n", name, s.commands[name].short))
			}
			return nil
		},
	}
}

func (s *Shell) luaCommand() *cobra.Command {
	var module, code string
	cmd := &cobra.Command{
		Use:  "NAME [-m module | -c code | file] [args...]",
		Long: "Run the Lua interpreter. With no arguments an interactive console starts;\nleave it with Ctrl-D or exit(), or abandon it with Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case module != "":
				s.runModule(module, args)
			case code != "":
				s.runCode(code)
			case len(args) > 0:
				s.runModule(args[0], args[1:])
			default:
				s.enterInteractive()
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&module, "module", "m", "", "Run the named module as a program")
	cmd.Flags().StringVarP(&code, "code", "c", "", "Run a program passed as a string")
	return cmd
}

func (s *Shell) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "NAME <module> [args...]",
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s.runModule(args[0], args[1:])
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (s *Shell) runModule(name string, args []string) {
	start := time.Now()
	lua.RunModule(s.fsys, s.cwd, name, args, s.term, errorWriter{s}, s.luaOptions()...)
	s.log.WithField("module", name).WithField("elapsed", time.Since(start)).Debug("module finished")
}

func (s *Shell) runCode(code string) {
	state := lua.NewState(append(s.luaOptions(), lua.WithOutput(s.term))...)
	defer state.Close()

	err := state.DoString(code)
	var exit *lua.ExitError
	if err != nil && !errors.As(err, &exit) {
		s.errorf("lua: %s\n", lua.ErrorMessage(err))
	}
}

func (s *Shell) exitCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "NAME",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s.quit()
		},
	}
}

var _ io.Writer = errorWriter{}
