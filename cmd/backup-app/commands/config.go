package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vhugoxx/backup-app/internal/config"
	"github.com/vhugoxx/backup-app/internal/editor"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/pkg/fileutil"
)

// openEditor is replaced in tests.
var openEditor = editor.Open

func newConfigCmd(g *globalOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage backup-app configuration",
		Long: `Manage the default run options stored in config.yaml.

Values come from the config file, then BACKUP_APP_<KEY> environment
variables. Without a subcommand, lists the effective configuration.

Keys: ` + strings.Join(config.Keys(), ", "),
		Example: `  # Show the effective configuration
  backup-app config

  # Set the default destination
  backup-app config set destination /mnt/usb/backup

  # Set list values with commas
  backup-app config set extensions jpg,png,pdf

See Also: backup-app init, backup-app doctor`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runConfigList(c, g)
		},
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Long:  `Print the effective value of key. List values are printed one per line.`,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return runConfigGet(c, g, args[0])
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value in the config file",
			Long: `Set key in the config file, creating the file if needed. The whole file is
validated before it is written. List values take comma separated items.`,
			Args: cobra.ExactArgs(2),
			RunE: func(c *cobra.Command, args []string) error {
				return runConfigSet(c, g, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return runConfigList(c, g)
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Open the config file in $EDITOR",
			Long: `Open the config file in $EDITOR (or $VISUAL, nano, vi) and validate it
once the editor exits. A missing file is created with the defaults first.`,
			Args: cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return runConfigEdit(c, g)
			},
		},
	)
	return c
}

func runConfigList(c *cobra.Command, g *globalOptions) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(c.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(enc.Close(), "encoding config")
}

func runConfigGet(c *cobra.Command, g *globalOptions, key string) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	v, err := config.Get(cfg, key)
	if err != nil {
		return errors.NewUserError(err, "valid keys: "+strings.Join(config.Keys(), ", "))
	}
	printValue(c.OutOrStdout(), v)
	return nil
}

func printValue(w io.Writer, v any) {
	if list, ok := v.([]string); ok {
		for _, item := range list {
			fmt.Fprintln(w, item)
		}
		return
	}
	fmt.Fprintln(w, v)
}

// readConfigFile parses the config file alone, without environment
// overrides, so set and edit never persist values that came from the
// environment. A missing file yields the defaults.
func readConfigFile(path string) (*config.Config, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

func runConfigSet(c *cobra.Command, g *globalOptions, key, value string) error {
	path := g.configFile()
	cfg, err := readConfigFile(path)
	if err != nil {
		return errors.NewConfigError(err)
	}
	if err := config.Set(cfg, key, value); err != nil {
		return errors.NewUserError(err, "")
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.NewUserError(errs[0], "")
	}
	if err := config.Save(path, cfg); err != nil {
		return errors.NewSystemError(err, "check permissions on "+path)
	}
	fmt.Fprintf(c.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

func runConfigEdit(c *cobra.Command, g *globalOptions) error {
	path := g.configFile()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(path, config.Default()); err != nil {
			return errors.NewSystemError(err, "check permissions on "+path)
		}
	}

	fmt.Fprintf(c.OutOrStdout(), "Location: %s\n", path)
	if err := openEditor(c.Context(), path); err != nil {
		return errors.NewSystemError(err, "set $EDITOR to your preferred editor")
	}

	if _, err := readConfigFile(path); err != nil {
		return errors.NewUserError(err, "run: backup-app config edit")
	}
	fmt.Fprintln(c.OutOrStdout(), "Configuration is valid")
	return nil
}
