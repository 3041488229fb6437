package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/paths"
	"github.com/vhugoxx/backup-app/pkg/fileutil"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. BACKUP_APP_WORKERS=4.
const EnvPrefix = "BACKUP_APP"

// Config holds the defaults for backup runs. Command line flags override it.
type Config struct {
	Version           int      `mapstructure:"version" yaml:"version" validate:"eq=1"`
	Source            string   `mapstructure:"source" yaml:"source,omitempty" validate:"omitempty,cleanpath"`
	Destination       string   `mapstructure:"destination" yaml:"destination,omitempty" validate:"omitempty,cleanpath"`
	Extensions        []string `mapstructure:"extensions" yaml:"extensions,omitempty" validate:"dive,required,excludesall=/\\"`
	Presets           []string `mapstructure:"presets" yaml:"presets,omitempty" validate:"dive,preset"`
	Recursive         bool     `mapstructure:"recursive" yaml:"recursive"`
	PreserveStructure bool     `mapstructure:"preserve_structure" yaml:"preserve_structure"`
	IncludeArchives   bool     `mapstructure:"include_archives" yaml:"include_archives"`
	ArchiveTypes      []string `mapstructure:"archive_types" yaml:"archive_types,omitempty" validate:"dive,archivekind"`
	UseSnapshot       bool     `mapstructure:"use_snapshot" yaml:"use_snapshot"`
	Workers           int      `mapstructure:"workers" yaml:"workers" validate:"gte=1,lte=64"`
	Naming            string   `mapstructure:"naming" yaml:"naming" validate:"oneof=counter uuid"`
	Report            string   `mapstructure:"report" yaml:"report" validate:"oneof=json yaml toml none"`
	MissingRoot       string   `mapstructure:"missing_root" yaml:"missing_root" validate:"oneof=fail warn"`
	MaxPathLength     int      `mapstructure:"max_path_length" yaml:"max_path_length" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:           CurrentVersion,
		Recursive:         true,
		PreserveStructure: true,
		Workers:           1,
		Naming:            "counter",
		Report:            "json",
		MissingRoot:       "fail",
	}
}

// Keys lists the settable configuration keys in file order.
func Keys() []string {
	return []string{
		"version", "source", "destination", "extensions", "presets",
		"recursive", "preserve_structure", "include_archives", "archive_types",
		"use_snapshot", "workers", "naming", "report", "missing_root", "max_path_length",
	}
}

// Init resets viper and registers the search path, environment binding and
// defaults. Call it once at startup before Load.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault("version", d.Version)
	viper.SetDefault("recursive", d.Recursive)
	viper.SetDefault("preserve_structure", d.PreserveStructure)
	viper.SetDefault("include_archives", d.IncludeArchives)
	viper.SetDefault("use_snapshot", d.UseSnapshot)
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("naming", d.Naming)
	viper.SetDefault("report", d.Report)
	viper.SetDefault("missing_root", d.MissingRoot)
	viper.SetDefault("max_path_length", d.MaxPathLength)
	for _, k := range []string{"source", "destination", "extensions", "presets", "archive_types"} {
		// Registering the key lets AutomaticEnv see it during Unmarshal.
		viper.SetDefault(k, nil)
	}
}

// Load reads the configuration. An explicit path must exist; without one the
// default locations are searched and a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
		case errors.As(err, &notFound), os.IsNotExist(err):
			return nil, errors.Mark(errors.Wrapf(err, "config file not found at %s", path), errors.ErrNotFound)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.Extensions = splitList(cfg.Extensions)
	cfg.Presets = splitList(cfg.Presets)
	cfg.ArchiveTypes = splitList(cfg.ArchiveTypes)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Mark(errors.Wrapf(errs[0], "validating config"), errors.ErrInvalidConfig)
	}
	return &cfg, nil
}

// Parse decodes YAML config data over the defaults and validates the
// result. It does not consult the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parsing config"), errors.ErrInvalidConfig)
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return cfg, errors.Mark(errors.Wrapf(errs[0], "validating config"), errors.ErrInvalidConfig)
	}
	return cfg, nil
}

// splitList expands comma separated items coming from env vars or flags.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := paths.EnsureDir(filepath.Dir(path), paths.DefaultDirPerm); err != nil {
		return err
	}
	return fileutil.AtomicWriteYAML(path, cfg)
}

// Set parses value according to the type of key and stores it in cfg.
// List keys take comma separated values.
func Set(cfg *Config, key, value string) error {
	switch key {
	case "version", "workers", "max_path_length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidConfig, "%s must be an integer, got %q", key, value)
		}
		switch key {
		case "version":
			cfg.Version = n
		case "workers":
			cfg.Workers = n
		default:
			cfg.MaxPathLength = n
		}
	case "recursive", "preserve_structure", "include_archives", "use_snapshot":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidConfig, "%s must be true or false, got %q", key, value)
		}
		switch key {
		case "recursive":
			cfg.Recursive = b
		case "preserve_structure":
			cfg.PreserveStructure = b
		case "include_archives":
			cfg.IncludeArchives = b
		default:
			cfg.UseSnapshot = b
		}
	case "extensions":
		cfg.Extensions = splitList([]string{value})
	case "presets":
		cfg.Presets = splitList([]string{value})
	case "archive_types":
		cfg.ArchiveTypes = splitList([]string{value})
	case "source":
		cfg.Source = value
	case "destination":
		cfg.Destination = value
	case "naming":
		cfg.Naming = value
	case "report":
		cfg.Report = value
	case "missing_root":
		cfg.MissingRoot = value
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Get returns the value of key in cfg.
func Get(cfg *Config, key string) (any, error) {
	values := map[string]any{
		"version":            cfg.Version,
		"source":             cfg.Source,
		"destination":        cfg.Destination,
		"extensions":         cfg.Extensions,
		"presets":            cfg.Presets,
		"recursive":          cfg.Recursive,
		"preserve_structure": cfg.PreserveStructure,
		"include_archives":   cfg.IncludeArchives,
		"archive_types":      cfg.ArchiveTypes,
		"use_snapshot":       cfg.UseSnapshot,
		"workers":            cfg.Workers,
		"naming":             cfg.Naming,
		"report":             cfg.Report,
		"missing_root":       cfg.MissingRoot,
		"max_path_length":    cfg.MaxPathLength,
	}
	v, ok := values[key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown key %q", key)
	}
	return v, nil
}
