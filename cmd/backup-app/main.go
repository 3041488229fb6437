// Package main is the entry point for the backup-app CLI.
package main

import (
	"os"

	"github.com/vhugoxx/backup-app/cmd/backup-app/commands"
	"github.com/vhugoxx/backup-app/internal/errors"
)

func main() {
	os.Exit(errors.ExitCode(commands.Execute()))
}
