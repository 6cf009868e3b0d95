package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/pkg/backends"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration file and data directory, then open and close the storage backend once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backends.Open(a.config.storeConfig())
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			if err := b.Close(); err != nil {
				return fmt.Errorf("finalize storage: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"backend":  a.config.Backend,
				"data_dir": a.config.DataDir,
			})
		},
	}
}
