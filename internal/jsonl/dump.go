package jsonl

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Stats reports the rows written or read by Dump and Restore.
type Stats struct {
	Snapshots  int `json:"snapshots"`
	Properties int `json:"properties"`
	Skipped    int `json:"skipped"`
}

// Dump writes every snapshot and property visible to s into dir.
func Dump(ctx context.Context, s *asset.Scoped, dir string) (Stats, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("creating dump dir: %w", err)
	}
	res, err := s.Select(types.Snapshots(), types.Properties()).Name("dump").Run(ctx)
	if err != nil {
		return Stats{}, err
	}

	snaps := res.Snapshots()
	props := res.Properties()
	if err := writeLines(filepath.Join(dir, SnapshotsFile), snaps); err != nil {
		return Stats{}, err
	}
	if err := writeLines(filepath.Join(dir, PropertiesFile), props); err != nil {
		return Stats{}, err
	}
	return Stats{Snapshots: len(snaps), Properties: len(props)}, nil
}

// Restore loads a dump into b. Snapshots keep their ids, versions and
// creation times and are written in version order per media package; then
// the properties are upserted. A missing properties file is treated as
// empty. Malformed lines are skipped and counted.
func Restore(ctx context.Context, b types.Backend, dir string) (Stats, error) {
	var stats Stats

	lines, skipped, err := readLines(filepath.Join(dir, SnapshotsFile))
	if err != nil {
		return stats, err
	}
	stats.Skipped += skipped

	snaps := make([]*types.Snapshot, 0, len(lines))
	for _, line := range lines {
		var s types.Snapshot
		if err := json.Unmarshal(line, &s); err != nil {
			stats.Skipped++
			continue
		}
		snaps = append(snaps, &s)
	}
	slices.SortFunc(snaps, func(a, b *types.Snapshot) int {
		if c := cmp.Compare(a.OrganizationID, b.OrganizationID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MediaPackageID, b.MediaPackageID); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	for _, s := range snaps {
		if err := b.RestoreSnapshot(ctx, s); err != nil {
			return stats, fmt.Errorf("restoring %s/%s v%d: %w", s.OrganizationID, s.MediaPackageID, s.Version, err)
		}
		stats.Snapshots++
	}

	lines, skipped, err = readLines(filepath.Join(dir, PropertiesFile))
	if errors.Is(err, os.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	stats.Skipped += skipped

	for _, line := range lines {
		var p types.Property
		if err := json.Unmarshal(line, &p); err != nil {
			stats.Skipped++
			continue
		}
		ok, err := b.SetProperty(ctx, p)
		if err != nil {
			return stats, fmt.Errorf("restoring property %s of %s/%s: %w", p.Key(), p.OrganizationID, p.MediaPackageID, err)
		}
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Properties++
	}
	return stats, nil
}
