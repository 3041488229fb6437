package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestConfigFile_Override(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BACKUP_APP_CONFIG_DIR", dir)

	want := filepath.Join(dir, AppName, "config.yaml")
	if got := ConfigFile(); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := EnsureDir(dir, 0); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	// Idempotent
	if err := EnsureDir(dir, 0); err != nil {
		t.Fatalf("EnsureDir() second call error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/photos", filepath.Join(home, "photos")},
		{"/abs/path", "/abs/path"},
		{"~user/x", "~user/x"},
		{"relative", "relative"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAbsolute(t *testing.T) {
	if _, err := Absolute(""); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Absolute(\"\") error = %v, want ErrInvalidPath", err)
	}

	got, err := Absolute("some/dir")
	if err != nil {
		t.Fatalf("Absolute() error = %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Absolute() = %q, want absolute path", got)
	}
}
