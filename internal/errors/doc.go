// Package errors provides error handling conventions for the backup-app CLI.
//
// It re-exports the github.com/cockroachdb/errors helpers used across the
// module (Wrap, Wrapf, Newf, Is, As, Mark), defines sentinel errors for
// common failure conditions, and an ExitError type that carries a process
// exit code and an optional suggestion.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, missing source root, etc.)
//
// # ExitError
//
//	err := bkerrors.NewUserError(bkerrors.ErrNoExtensions, "Pass --ext or --preset")
//	os.Exit(bkerrors.ExitCode(err))
package errors
