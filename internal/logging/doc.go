// Package logging configures slog for the backup-app CLI.
//
// Console output uses [Handler], one line per record with a three letter
// level tag and quoted values where a path contains spaces:
//
//	14:02:11 WRN access denied: /data/private/a.jpg
//	14:02:11 DBG copied src="/data/My Photos/b.jpg" dst=/backup/jpg/b.jpg bytes=5120
//
// --log-format json switches to slog's JSON handler, and --log-file mirrors
// every record into a JSON file through [MultiHandler].
//
// # Engine Log Lines
//
// The backup engine reports events through a plain func(string). [Lines]
// maps those onto a logger: a leading "WARN " or "ERROR " selects the level,
// everything else uses the level given to Lines.
//
// Tests can route output into t.Log with [ForTest].
package logging
