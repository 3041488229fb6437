package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/cmd"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Print the version, commit, and build date of backup-app.`,
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			out := c.OutOrStdout()
			fmt.Fprintf(out, "backup-app version %s\n", cmd.Version)
			fmt.Fprintf(out, "  commit: %s\n", cmd.Commit)
			fmt.Fprintf(out, "  built:  %s\n", cmd.Date)
		},
	}
}
