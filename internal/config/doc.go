// Package config loads the default run options of backup-app using Viper.
//
// # Configuration File
//
// The file lives at <XDG config home>/backup-app/config.yaml. Setting
// BACKUP_APP_CONFIG_DIR replaces the XDG config home. A config.yaml in the
// working directory takes precedence.
//
//	version: 1
//	destination: /mnt/usb/backup
//	extensions: [jpg, pdf]
//	presets: [documents]
//	recursive: true
//	preserve_structure: true
//	include_archives: false
//	archive_types: [zip, tar]
//	use_snapshot: false
//	workers: 1
//	naming: counter        # or uuid
//	report: json           # yaml, toml or none
//	missing_root: fail     # or warn
//
// Every key can be overridden from the environment with the BACKUP_APP_
// prefix, for example BACKUP_APP_WORKERS=4. Command line flags override
// both.
//
// # Validation
//
// [Load] validates the result with go-playground/validator. [Validate]
// returns one [FieldError] per offending field.
package config
