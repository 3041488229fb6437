package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/internal/config"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/extension"
)

type initFlags struct {
	yes     bool
	force   bool
	source  string
	dest    string
	presets []string
}

func newInitCmd(g *globalOptions) *cobra.Command {
	f := &initFlags{}
	c := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file",
		Long: `Create config.yaml with the default run options, so later runs only need
the flags that differ.`,
		Example: `  # Interactive
  backup-app init

  # Non-interactive
  backup-app init --yes --source ~/Documents --dest /mnt/usb/backup --preset documents

  See Also: backup-app config, backup-app doctor`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runInit(c, g, f)
		},
	}
	c.Flags().BoolVarP(&f.yes, "yes", "y", false, "non-interactive mode, accept all defaults")
	c.Flags().BoolVarP(&f.force, "force", "f", false, "overwrite an existing configuration")
	c.Flags().StringVar(&f.source, "source", "", "default source directory")
	c.Flags().StringVar(&f.dest, "dest", "", "default destination directory")
	c.Flags().StringSliceVar(&f.presets, "preset", nil, "default extension presets")
	return c
}

func runInit(c *cobra.Command, g *globalOptions, f *initFlags) error {
	out := c.OutOrStdout()
	path := g.configFile()

	if _, err := os.Stat(path); err == nil && !f.force {
		fmt.Fprintf(out, "Configuration already exists at %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite")
		return nil
	}

	cfg := config.Default()
	cfg.Source, cfg.Destination, cfg.Presets = f.source, f.dest, f.presets

	if !f.yes {
		in := bufio.NewReader(c.InOrStdin())
		cfg.Source = ask(in, out, "Default source directory", cfg.Source)
		cfg.Destination = ask(in, out, "Default destination directory", cfg.Destination)
		presets := ask(in, out, "Presets ("+strings.Join(extension.PresetNames(), ", ")+")", strings.Join(cfg.Presets, ","))
		cfg.Presets = nil
		for p := range strings.SplitSeq(presets, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Presets = append(cfg.Presets, p)
			}
		}
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.NewUserError(errs[0], "")
	}
	if err := config.Save(path, cfg); err != nil {
		return errors.NewSystemError(err, "check permissions on "+path)
	}
	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}

// ask prompts for a value and returns def on an empty answer or end of input.
func ask(in *bufio.Reader, out io.Writer, prompt, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	line, _ := in.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}
