package cli

import (
	"fmt"

	"github.com/fmueller/vidbrief/internal/platform"
	"github.com/fmueller/vidbrief/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := platform.CurrentRuntime()
			fmt.Fprintf(cmd.OutOrStdout(), "vidbrief v%s (commit %s, %s/%s)\n", version.Resolve(), version.ResolveCommit(), rt.OS, rt.Arch)
			return nil
		},
	}
}
