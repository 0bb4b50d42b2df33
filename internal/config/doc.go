// Package config loads luaterm settings.
//
// Settings are layered, lowest precedence first:
//
//  1. Built-in defaults (Default)
//  2. The TOML config file (Load)
//  3. LUATERM_* environment variables (ApplyEnv)
//  4. Command-line flags, applied by the caller
//
// A missing config file is not an error. Unknown keys in the file are, so
// typos surface as a ParseError with the offending line and column.
//
// Watch reloads the file when it changes on disk and hands the new Config
// to a callback; the application uses this to update prompts without a
// restart.
package config
