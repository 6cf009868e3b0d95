package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the assetstore release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/assetstore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the assetstore version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "assetstore v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
