package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/logging"
)

func TestSetupLogging_Verbosity(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		env       string
		wantLevel slog.Level
	}{
		{"default", nil, "", slog.LevelWarn},
		{"-v", []string{"-v"}, "", slog.LevelInfo},
		{"-vv", []string{"-vv"}, "", slog.LevelDebug},
		{"-vvv", []string{"-vvv"}, "", logging.LevelTrace},
		{"quiet", []string{"-q"}, "", slog.LevelError},
		{"env debug", nil, "1", slog.LevelDebug},
		{"env trace", nil, "2", logging.LevelTrace},
		{"flag beats env", []string{"-v"}, "2", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("BACKUP_APP_DEBUG", tt.env)

			_, _, err := execute(t, "", append(tt.args, "presets")...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			logger := slog.Default()
			if !logger.Enabled(t.Context(), tt.wantLevel) {
				t.Errorf("level %v should be enabled", tt.wantLevel)
			}
			if logger.Enabled(t.Context(), tt.wantLevel-1) {
				t.Errorf("level %v should be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestSetupLogging_Errors(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "", "-q", "-v", "presets")
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("--quiet --verbose: ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}

	_, _, err = execute(t, "", "--log-format", "xml", "presets")
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("--log-format xml: ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}

func TestSetupLogging_LogFile(t *testing.T) {
	isolate(t)
	logFile := filepath.Join(t.TempDir(), "run.log")
	src, dst := sourceTree(t), t.TempDir()

	_, _, err := execute(t, "", "-v", "--log-file", logFile, "run", "-s", src, "-d", dst, "-e", "pdf", "--report", "none")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"copied: `) {
		t.Errorf("log file lacks the copy line:\n%s", data)
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.NewUserError(errors.New("boom"), "try again"))
	if got := buf.String(); !strings.Contains(got, "boom") || !strings.Contains(got, "  try again\n") {
		t.Errorf("printError() = %q", got)
	}
}

func TestVersionAndPresets(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "backup-app version ") || !strings.Contains(out, "commit:") {
		t.Errorf("version output = %q", out)
	}

	out, _, err = execute(t, "", "presets")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "images     gif,jpeg,jpg,png\n") {
		t.Errorf("presets output = %q", out)
	}
}

func TestInit(t *testing.T) {
	path := isolate(t)

	out, _, err := execute(t, "/data\n\nimages, 3d\n", "init", "--dest", "/mnt/usb")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(out, "Created "+path) {
		t.Errorf("init output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"source: /data", "destination: /mnt/usb", "- images", "- 3d"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config lacks %q:\n%s", want, data)
		}
	}

	out, _, err = execute(t, "", "init", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("second init output = %q", out)
	}

	if _, _, err := execute(t, "", "init", "--yes", "--force", "--preset", "videos"); errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("invalid preset: ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}
