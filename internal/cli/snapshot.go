package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// snapshotView renders a snapshot with its payload as text.
type snapshotView struct {
	SnapshotID     string    `json:"snapshot_id"`
	OrganizationID string    `json:"organization_id"`
	MediaPackageID string    `json:"media_package_id"`
	Version        int64     `json:"version"`
	SeriesID       string    `json:"series_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Payload        string    `json:"payload,omitempty"`
}

func viewSnapshot(s *types.Snapshot, withPayload bool) snapshotView {
	v := snapshotView{
		SnapshotID:     s.SnapshotID,
		OrganizationID: s.OrganizationID,
		MediaPackageID: s.MediaPackageID,
		Version:        s.Version,
		SeriesID:       s.SeriesID,
		CreatedAt:      s.CreatedAt,
	}
	if withPayload {
		v.Payload = string(s.Payload)
	}
	return v
}

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store, read and delete snapshot versions",
	}
	cmd.AddCommand(
		newSnapshotPutCmd(a),
		newSnapshotGetCmd(a),
		newSnapshotLatestCmd(a),
		newSnapshotDeleteCmd(a),
	)
	return cmd
}

func newSnapshotPutCmd(a *app) *cobra.Command {
	var file, series string
	cmd := &cobra.Command{
		Use:   "put <media-package-id>",
		Short: "Store a new version of a media package",
		Long: `Store the document read from --file (or stdin) as the next version of the
media package. Prints the stored snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			org, err := a.scope(store)
			if err != nil {
				return err
			}

			s, err := org.Put(cmd.Context(), args[0], payload, series)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), viewSnapshot(s, false))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "document file (default: stdin)")
	cmd.Flags().StringVar(&series, "series", "", "series id of the document")
	return cmd
}

func readPayload(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func newSnapshotGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <media-package-id> <version>",
		Short: "Print one version of a media package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			org, err := a.scope(store)
			if err != nil {
				return err
			}

			s, ok, err := org.Get(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s version %d", types.ErrNotFound, args[0], version)
			}
			return printJSON(cmd.OutOrStdout(), viewSnapshot(s, true))
		},
	}
}

func newSnapshotLatestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <media-package-id>",
		Short: "Print the latest version of a media package",
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

			s, ok, err := org.Latest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), viewSnapshot(s, true))
		},
	}
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <media-package-id> <version>",
		Short: "Delete one version of a media package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			org, err := a.scope(store)
			if err != nil {
				return err
			}

			ok, err := org.DeleteSnapshot(cmd.Context(), a.owner(), args[0], version)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"deleted": ok})
		},
	}
}

func parseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidVersion, s)
	}
	return v, nil
}
