// Package commands implements the CLI commands for backup-app.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/cmd"
	"github.com/vhugoxx/backup-app/internal/config"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/logging"
	"github.com/vhugoxx/backup-app/internal/paths"
)

// globalOptions holds the persistent flags and the configuration loaded
// before any subcommand runs.
type globalOptions struct {
	verbosity  int
	quiet      bool
	logFormat  string
	logFile    string
	configPath string

	cfg     *config.Config
	cfgErr  error
	logSink io.Closer
}

// settings returns the loaded configuration, or a user error when loading
// failed.
func (g *globalOptions) settings() (*config.Config, error) {
	if g.cfgErr != nil {
		return nil, errors.NewConfigError(g.cfgErr)
	}
	if g.cfg == nil {
		return config.Default(), nil
	}
	return g.cfg, nil
}

// configFile is the file config edit, config set and init operate on.
func (g *globalOptions) configFile() string {
	if g.configPath != "" {
		return g.configPath
	}
	return paths.ConfigFile()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "backup-app",
		Short: "Copy selected file types into per-extension backup folders",
		Long: `backup-app walks a source tree, picks files by extension (including files
inside zip, tar, rar and 7z archives) and copies them into one folder per
extension under the destination. Identical files already present are skipped;
different files with the same name are kept side by side.

On Windows the source volume can be read through a VSS snapshot so files that
change during the run are copied consistently.`,
		Example: `  # Back up photos and documents
  backup-app run --source ~/Pictures --dest /mnt/usb/backup --preset images --ext pdf

  # Check that a run can succeed
  backup-app doctor --source D:\Work --dest E:\Backup

  See Also: backup-app init, backup-app config`,
		Version:       cmd.Info(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			if err := g.setupLogging(c); err != nil {
				return err
			}
			g.loadConfig()
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logSink != nil {
				_ = g.logSink.Close()
				g.logSink = nil
			}
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return c.Help()
		},
	}
	root.SetVersionTemplate("backup-app version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.CountVarP(&g.verbosity, "verbose", "v", "increase verbosity level (e.g., -v, -vv)")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVar(&g.logFormat, "log-format", "text", "log format: text, json")
	flags.StringVar(&g.logFile, "log-file", "", "also write logs to file in JSON format")
	flags.StringVar(&g.configPath, "config", "", "config file (default: "+paths.ConfigFile()+")")

	root.AddCommand(
		newRunCmd(g),
		newDoctorCmd(g),
		newConfigCmd(g),
		newInitCmd(g),
		newPresetsCmd(),
		newVersionCmd(),
	)
	return root
}

func (g *globalOptions) loadConfig() {
	config.Init()
	g.cfg, g.cfgErr = config.Load(g.configPath)
}

// setupLogging installs the default logger described by the logging flags.
func (g *globalOptions) setupLogging(c *cobra.Command) error {
	if g.quiet && g.verbosity > 0 {
		return errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if g.quiet {
		level = slog.LevelError
	} else {
		v := g.verbosity
		if v == 0 {
			switch os.Getenv("BACKUP_APP_DEBUG") {
			case "1", "true":
				v = 2
			case "2":
				v = 3
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{Level: level}
	var primary slog.Handler
	switch logging.Format(g.logFormat) {
	case logging.FormatJSON:
		primary = slog.NewJSONHandler(c.ErrOrStderr(), opts)
	case logging.FormatText:
		primary = logging.NewHandler(c.ErrOrStderr(), opts)
	default:
		return errors.NewUserError(errors.Newf("unknown log format %q", g.logFormat), "use --log-format text or json")
	}

	handler := primary
	if g.logFile != "" {
		f, err := os.OpenFile(g.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		g.logSink = f
		handler = logging.NewMultiHandler(primary, slog.NewJSONHandler(f, opts))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c.SetContext(logging.NewContext(ctx, logger))
	return nil
}

// Execute runs the root command and prints a failing command's error with
// its suggestion.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
	}
}
