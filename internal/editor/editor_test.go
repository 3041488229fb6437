package editor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		name   string
		editor string
		visual string
		want   []string
	}{
		{"editor wins", "nvim", "code", []string{"nvim"}},
		{"visual fallback", "", "code", []string{"code"}},
		{"blank editor falls through", "   ", "vscode", []string{"vscode"}},
		{"arguments kept", "code --wait", "", []string{"code", "--wait"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EDITOR", tt.editor)
			t.Setenv("VISUAL", tt.visual)
			if got := command(); !slices.Equal(got, tt.want) {
				t.Errorf("command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommand_Fallback(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	want := "vi"
	if _, err := exec.LookPath("nano"); err == nil {
		want = "nano"
	} else if _, err := exec.LookPath("notepad"); err == nil {
		want = "notepad"
	}
	if got := command(); len(got) != 1 || got[0] != want {
		t.Errorf("command() = %q, want [%s]", got, want)
	}
}

func TestOpen_Script(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the editor")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EDITOR", script+" --flag")

	target := filepath.Join(dir, "config.yaml")
	var out bytes.Buffer
	if err := open(context.Background(), target, nil, &out, &out); err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "--flag "+target {
		t.Errorf("editor saw %q, want %q", got, "--flag "+target)
	}
}

func TestOpen_MissingBinary(t *testing.T) {
	t.Setenv("EDITOR", "non-existent-binary-12345")

	if err := Open(context.Background(), "config.yaml"); err == nil {
		t.Error("Open() error = nil, want error for missing editor")
	}
}
