package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name  string
		level logrus.Level
		data  logrus.Fields
		want  string
	}{
		{
			name:  "component and fields",
			level: logrus.WarnLevel,
			data:  logrus.Fields{"component": "console", "state": "idle", "line": 3},
			want:  "[2026-03-04T05:06:07Z] [WARN] [console] hello line=3 state=idle\n",
		},
		{
			name:  "no component",
			level: logrus.WarnLevel,
			data:  logrus.Fields{},
			want:  "[2026-03-04T05:06:07Z] [WARN] hello\n",
		},
		{
			name:  "error level",
			level: logrus.ErrorLevel,
			data:  logrus.Fields{"component": "app"},
			want:  "[2026-03-04T05:06:07Z] [ERROR] [app] hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   tt.level,
				Message: "hello",
				Data:    tt.data,
			}
			out, err := PlainFormatter{}.Format(entry)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if string(out) != tt.want {
				t.Fatalf("Format() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestNamedWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(Discard().Logger.Out)

	Named("shell").Info("ready")

	if !strings.Contains(buf.String(), "[shell] ready") {
		t.Fatalf("log output = %q, want component tag", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	defer base.SetLevel(logrus.InfoLevel)

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error = %v", err)
	}
	if base.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", base.GetLevel())
	}
	if err := SetLevel(""); err != nil {
		t.Errorf("SetLevel(\"\") error = %v", err)
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) should fail")
	}
}

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "luaterm.log")
	closer, err := SetupFile(path)
	if err != nil {
		t.Fatalf("SetupFile() error = %v", err)
	}
	Named("app").Info("started")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[app] started") {
		t.Fatalf("log file = %q", data)
	}
}
