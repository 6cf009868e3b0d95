package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/internal/jsonl"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Store many snapshots from a JSONL file",
		Long: `Each line is {"media_package_id", "series_id", "document"} with an optional
"organization_id". Lines are stored concurrently; every line becomes a new
version. Prints the number of stored and skipped lines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, skipped, err := jsonl.ReadInputs(args[0], a.config.Organization)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snaps, err := store.PutAll(cmd.Context(), inputs)
			stored := 0
			for _, s := range snaps {
				if s != nil {
					stored++
				}
			}
			if err != nil {
				a.logger.Error().Err(err).Int("stored", stored).Msg("import incomplete")
			}
			if perr := printJSON(cmd.OutOrStdout(), map[string]int{"stored": stored, "skipped": skipped}); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Dump snapshots and properties to JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			org, err := a.scope(store)
			if err != nil {
				return err
			}

			stats, err := jsonl.Dump(cmd.Context(), org, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <dir>",
		Short: "Load a dump written by export",
		Long: `Restore snapshots with their original ids and versions, then their
properties. Versions must be above those already stored for each media
package, so restore into an empty store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := jsonl.Restore(cmd.Context(), store.Backend(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
