// Package paths provides cross-platform path resolution for backup-app.
//
// The package wraps github.com/adrg/xdg for XDG Base Directory compliance and
// adds the small amount of path hygiene the CLI needs before handing source
// and destination roots to the engine (home expansion, absolute paths).
//
// The configuration directory can be overridden with BACKUP_APP_CONFIG_DIR,
// which tests use to isolate themselves from the real user configuration.
package paths
