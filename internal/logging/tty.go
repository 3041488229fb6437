package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTTY reports whether w is a terminal. The run command only draws its
// live progress counter when stderr is one.
func IsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether log output to w may carry ANSI colors.
func ColorEnabled(w io.Writer) bool {
	return colorAllowed() && IsTTY(w)
}

// colorAllowed applies the environment and the global color switch: NO_COLOR
// (https://no-color.org), TERM=dumb and color.NoColor all disable colors.
func colorAllowed() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return !color.NoColor
}
