package commands

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/internal/archive"
	"github.com/vhugoxx/backup-app/internal/doctor"
	"github.com/vhugoxx/backup-app/internal/errors"
	"github.com/vhugoxx/backup-app/internal/paths"
)

type doctorFlags struct {
	source  string
	dest    string
	json    bool
	quiet   bool
	verbose bool
}

// Sentinels mapped to the doctor exit codes.
var (
	errDoctorWarnings = errors.New("warnings found")
	errDoctorErrors   = errors.New("errors found")
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	f := &doctorFlags{}

	c := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a backup can run",
		Long: `Run diagnostic checks before a backup: the config file, source and
destination access, snapshot prerequisites for the source volume and the
available archive decoders.

Source and destination default to the configured values.

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - No errors or warnings
  1 - Warnings present, no errors
  2 - Errors present`,
		Args: cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			n := 0
			for _, set := range []bool{f.json, f.quiet, f.verbose} {
				if set {
					n++
				}
			}
			if n > 1 {
				return errors.NewUserError(errors.New("flags --json, --quiet, and --verbose are mutually exclusive"), "")
			}
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return runDoctor(c, g, f)
		},
	}

	c.Flags().StringVarP(&f.source, "source", "s", "", "source directory to check")
	c.Flags().StringVarP(&f.dest, "dest", "d", "", "destination directory to check")
	c.Flags().BoolVar(&f.json, "json", false, "output results as JSON")
	c.Flags().BoolVar(&f.quiet, "quiet", false, "suppress output, exit code only")
	c.Flags().BoolVar(&f.verbose, "verbose", false, "show detailed check-by-check output")
	return c
}

func runDoctor(c *cobra.Command, g *globalOptions, f *doctorFlags) error {
	source, dest := f.source, f.dest
	var kinds []string
	if g.cfg != nil {
		if source == "" {
			source = g.cfg.Source
		}
		if dest == "" {
			dest = g.cfg.Destination
		}
		kinds = g.cfg.ArchiveTypes
	}
	source, dest = paths.ExpandHome(source), paths.ExpandHome(dest)
	if abs, err := paths.Absolute(source); err == nil {
		source = abs
	}
	if abs, err := paths.Absolute(dest); err == nil {
		dest = abs
	}

	runner := doctor.NewRunner()
	runner.AddCheck(&doctor.ConfigCheck{Path: g.configFile()})
	runner.AddCheck(&doctor.SourceCheck{Path: source})
	runner.AddCheck(&doctor.DestinationCheck{Path: dest, Source: source})
	runner.AddCheck(&doctor.SnapshotCheck{Source: source})
	runner.AddCheck(&doctor.ArchiveCheck{Registry: archive.DefaultRegistry(), Kinds: kinds})

	report := runner.Run(c.Context())

	if err := outputDoctorReport(c.OutOrStdout(), f, report); err != nil {
		return err
	}

	switch {
	case report.HasErrors():
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	case report.HasWarnings():
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func outputDoctorReport(w io.Writer, f *doctorFlags, report *doctor.DoctorReport) error {
	switch {
	case f.quiet:
		return nil
	case f.json:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(report), "encoding JSON")
	}

	hasOutput := false
	for _, result := range report.Results {
		if !f.verbose && result.Status != doctor.SeverityError && result.Status != doctor.SeverityWarning {
			continue
		}
		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)
		if result.FixHint != "" && result.Status >= doctor.SeverityWarning {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}
	if hasOutput {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
	return nil
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}
