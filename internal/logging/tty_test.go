package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestColorAllowed(t *testing.T) {
	tests := []struct {
		name    string
		noColor string // "-" leaves NO_COLOR unset
		term    string
		global  bool
		want    bool
	}{
		{"plain terminal", "-", "xterm-256color", false, true},
		{"NO_COLOR set", "1", "xterm", false, false},
		{"NO_COLOR empty still counts", "", "xterm", false, false},
		{"dumb terminal", "-", "dumb", false, false},
		{"color disabled globally", "-", "xterm", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", tt.term)
			if tt.noColor == "-" {
				t.Setenv("NO_COLOR", "")
				os.Unsetenv("NO_COLOR")
			} else {
				t.Setenv("NO_COLOR", tt.noColor)
			}
			prev := color.NoColor
			color.NoColor = tt.global
			t.Cleanup(func() { color.NoColor = prev })

			assert.Equal(t, tt.want, colorAllowed())
		})
	}
}

func TestColorEnabled_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTTY(&buf))
	assert.False(t, ColorEnabled(&buf))

	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.False(t, IsTTY(f), "a regular file is not a terminal")
}
