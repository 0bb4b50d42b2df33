package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "LUATERM_"

type envKind int

const (
	envString envKind = iota
	envInt
	envBool
)

// envVars maps environment variables to dotted setting names.
var envVars = map[string]struct {
	path string
	kind envKind
}{
	"LUATERM_CONSOLE_PRIMARY_PROMPT":   {"console.primary_prompt", envString},
	"LUATERM_CONSOLE_SECONDARY_PROMPT": {"console.secondary_prompt", envString},
	"LUATERM_CONSOLE_BANNER":           {"console.banner", envString},
	"LUATERM_CONSOLE_INTERRUPT":        {"console.interrupt", envString},
	"LUATERM_CONSOLE_EOF":              {"console.eof", envString},
	"LUATERM_LUA_TIMEOUT":              {"lua.timeout", envString},
	"LUATERM_LUA_ALLOW_OS_GETENV":      {"lua.allow_os_getenv", envBool},
	"LUATERM_TERMINAL_COLS":            {"terminal.cols", envInt},
	"LUATERM_TERMINAL_ROWS":            {"terminal.rows", envInt},
	"LUATERM_TERMINAL_COLOR":           {"terminal.color", envBool},
	"LUATERM_SHELL_ROOT":               {"shell.root", envString},
	"LUATERM_SHELL_PROMPT_COLOR":       {"shell.prompt_color", envString},
	"LUATERM_SHELL_WELCOME":            {"shell.welcome", envString},
	"LUATERM_LOG_LEVEL":                {"log.level", envString},
	"LUATERM_LOG_FILE":                 {"log.file", envString},
}

// EnvVars returns the recognized variable names, sorted.
func EnvVars() []string {
	names := make([]string, 0, len(envVars))
	for name := range envVars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overlays environment variables onto c. lookup is usually
// os.LookupEnv. A set NO_COLOR disables color regardless of its value.
// Empty values are treated as valid values, not as unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := make(map[string]any)
	for _, name := range EnvVars() {
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		v := envVars[name]
		val, err := parseEnvValue(raw, v.kind)
		if err != nil {
			return &ValidationError{Key: name, Value: strconv.Quote(raw), Message: err.Error()}
		}
		setByPath(overrides, v.path, val)
	}
	if _, ok := lookup("NO_COLOR"); ok {
		setByPath(overrides, "terminal.color", false)
	}
	if len(overrides) == 0 {
		return nil
	}

	doc, err := toml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encoding environment overrides: %w", err)
	}
	return c.decode("environment", bytes.NewReader(doc))
}

func parseEnvValue(raw string, kind envKind) (any, error) {
	switch kind {
	case envInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("want an integer")
		}
		return n, nil
	case envBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("want true or false")
		}
		return b, nil
	default:
		return raw, nil
	}
}

// setByPath sets a value in a nested map using a dotted path.
func setByPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
