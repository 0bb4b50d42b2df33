package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/console"
	"github.com/dshills/luaterm/internal/input/key"
)

// FileName is the config file looked up in the user config directory.
const FileName = "luaterm.toml"

// Config holds every luaterm setting.
type Config struct {
	Console  ConsoleConfig  `toml:"console"`
	Lua      LuaConfig      `toml:"lua"`
	Terminal TerminalConfig `toml:"terminal"`
	Shell    ShellConfig    `toml:"shell"`
	Log      LogConfig      `toml:"log"`
}

// ConsoleConfig configures the interactive Lua console.
type ConsoleConfig struct {
	PrimaryPrompt   string `toml:"primary_prompt"`
	SecondaryPrompt string `toml:"secondary_prompt"`

	// Banner replaces the startup banner when set. An empty string
	// suppresses it; leaving the key out keeps the default.
	Banner *string `toml:"banner,omitempty"`

	// Interrupt and EOF are key specs such as "<C-c>" or "Ctrl+D".
	Interrupt string `toml:"interrupt"`
	EOF       string `toml:"eof"`
}

// LuaConfig configures the embedded interpreter.
type LuaConfig struct {
	// Timeout bounds a single chunk. Zero disables the limit.
	Timeout Duration `toml:"timeout"`

	// AllowGetenv exposes the process environment through os.getenv.
	AllowGetenv bool `toml:"allow_os_getenv"`
}

// TerminalConfig configures the terminal widget.
type TerminalConfig struct {
	Cols  int  `toml:"cols"`
	Rows  int  `toml:"rows"`
	Color bool `toml:"color"`
}

// ShellConfig configures the command shell.
type ShellConfig struct {
	// Root is the host directory the shell sees as "/".
	Root        string  `toml:"root"`
	PromptColor string  `toml:"prompt_color"`
	Welcome     *string `toml:"welcome,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			PrimaryPrompt:   console.DefaultPrompts().Primary,
			SecondaryPrompt: console.DefaultPrompts().Secondary,
			Interrupt:       "<C-c>",
			EOF:             "<C-d>",
		},
		Lua: LuaConfig{
			Timeout: Duration(5 * time.Second),
		},
		Terminal: TerminalConfig{
			Cols:  80,
			Rows:  24,
			Color: true,
		},
		Shell: ShellConfig{
			Root:        ".",
			PromptColor: "11",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the config file location under the user config
// directory, or "" when that directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "luaterm", FileName)
}

// Load builds a Config from the defaults, the file at path and the
// environment. An empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := cfg.decode(path, bytes.NewReader(data)); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML from r on top of the defaults without consulting the
// environment. source names r in error messages.
func Parse(source string, r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(source, r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays the TOML document in r onto c.
func (c *Config) decode(source string, r io.Reader) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return newParseError(source, err)
	}
	return nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var decErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case errors.As(err, &decErr):
		pe.Line, pe.Column = decErr.Position()
	case errors.As(err, &strictErr) && len(strictErr.Errors) > 0:
		first := strictErr.Errors[0]
		pe.Line, pe.Column = first.Position()
		pe.Message = "unknown key " + strings.Join(first.Key(), ".")
	}
	return pe
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Validate checks settings that the TOML types alone cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Console.PrimaryPrompt == "" {
		errs = append(errs, &ValidationError{Key: "console.primary_prompt", Value: `""`, Message: "must not be empty"})
	}
	if _, err := c.Bindings(); err != nil {
		errs = append(errs, err)
	}
	if c.Lua.Timeout < 0 {
		errs = append(errs, &ValidationError{Key: "lua.timeout", Value: c.Lua.Timeout, Message: "must not be negative"})
	}
	if c.Terminal.Cols <= 0 || c.Terminal.Rows <= 0 {
		errs = append(errs, &ValidationError{
			Key:     "terminal",
			Value:   fmt.Sprintf("%dx%d", c.Terminal.Cols, c.Terminal.Rows),
			Message: "cols and rows must be positive",
		})
	}
	if !validColor(c.Shell.PromptColor) {
		errs = append(errs, &ValidationError{Key: "shell.prompt_color", Value: c.Shell.PromptColor, Message: "want an ANSI color number or #rrggbb"})
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, &ValidationError{Key: "log.level", Value: c.Log.Level, Message: err.Error()})
		}
	}
	return errors.Join(errs...)
}

// Prompts returns the console prompt pair.
func (c *Config) Prompts() console.Prompts {
	return console.Prompts{
		Primary:   c.Console.PrimaryPrompt,
		Secondary: c.Console.SecondaryPrompt,
	}
}

// Bindings parses the console key specs.
func (c *Config) Bindings() (console.Bindings, error) {
	interrupt, err := parseBinding("console.interrupt", c.Console.Interrupt)
	if err != nil {
		return console.Bindings{}, err
	}
	eof, err := parseBinding("console.eof", c.Console.EOF)
	if err != nil {
		return console.Bindings{}, err
	}
	if interrupt.Equals(eof) {
		return console.Bindings{}, &ValidationError{Key: "console.eof", Value: c.Console.EOF, Message: "same key as console.interrupt"}
	}
	return console.Bindings{Interrupt: interrupt, EOF: eof}, nil
}

func parseBinding(name, spec string) (key.Event, error) {
	ev, err := key.Parse(spec)
	if err != nil {
		return key.Event{}, &ValidationError{Key: name, Value: strconv.Quote(spec), Message: err.Error()}
	}
	return ev, nil
}

func validColor(s string) bool {
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return false
		}
		_, err := strconv.ParseUint(s[1:], 16, 32)
		return err == nil
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
