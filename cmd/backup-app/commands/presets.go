package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vhugoxx/backup-app/internal/extension"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the extension presets",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			for _, name := range extension.PresetNames() {
				set, _ := extension.Preset(name)
				fmt.Fprintf(c.OutOrStdout(), "%-10s %s\n", name, set)
			}
		},
	}
}
