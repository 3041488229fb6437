// Package editor opens files in the user's preferred text editor.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/vhugoxx/backup-app/internal/errors"
)

// Open launches the editor on path and waits for it to exit. The editor's
// terminal streams are the process's own.
func Open(ctx context.Context, path string) error {
	return open(ctx, path, os.Stdin, os.Stdout, os.Stderr)
}

func open(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	argv := command()

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// command returns the editor argv. $EDITOR and $VISUAL may carry arguments,
// e.g. "code --wait". Fallback chain: $EDITOR, $VISUAL, nano, notepad on
// Windows, vi.
func command() []string {
	for _, env := range []string{"EDITOR", "VISUAL"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	for _, name := range []string{"nano", "notepad"} {
		if _, err := exec.LookPath(name); err == nil {
			return []string{name}
		}
	}
	return []string{"vi"}
}
