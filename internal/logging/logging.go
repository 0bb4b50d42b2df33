// Package logging configures the process-wide logrus logger.
//
// The terminal owns stdout while luaterm runs, so log output is discarded
// until SetupFile points it somewhere else. Components obtain a tagged entry
// with Named and keep it on their struct.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields so callers do not import logrus for it.
type Fields = logrus.Fields

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(PlainFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Named returns an entry tagged with the component field.
func Named(component string) *logrus.Entry {
	entry := logrus.NewEntry(base)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry
}

// Discard returns an entry whose output goes nowhere, regardless of the
// shared logger's configuration. Tests and zero-value constructors use it.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// SetLevel parses level ("debug", "info", "warn", "error") and applies it.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	base.SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetupFile appends log output to path, creating parent directories.
// The returned closer restores the discard output before closing the file.
func SetupFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	base.SetOutput(f)
	return closerFunc(func() error {
		base.SetOutput(io.Discard)
		return f.Close()
	}), nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

// PlainFormatter writes "[timestamp] [LEVEL] [component] message k=v ...".
type PlainFormatter struct{}

// Format implements logrus.Formatter.
func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(entry.Time.UTC().Format(time.RFC3339))
	b.WriteString("] [")
	b.WriteString(levelName(entry.Level))
	b.WriteString("]")
	if c, ok := entry.Data["component"].(string); ok && c != "" {
		b.WriteString(" [")
		b.WriteString(c)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// levelName shortens logrus's "warning" so the level tags line up.
func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}
