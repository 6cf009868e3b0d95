package memdb

import (
	"github.com/hashicorp/go-memdb"
)

// Table and index names.
const (
	snapshotTable = "snapshot"
	propertyTable = "property"
	claimTable    = "claim"

	indexID      = "id"
	indexVersion = "version"
	indexMP      = "media_package"
	indexOrg     = "organization"
)

// claim records the last version handed out for a media package.
type claim struct {
	OrganizationID string
	MediaPackageID string
	LastVersion    int64
}

func orgMP() memdb.Indexer {
	return &memdb.CompoundIndex{
		Indexes: []memdb.Indexer{
			&memdb.StringFieldIndex{Field: "OrganizationID"},
			&memdb.StringFieldIndex{Field: "MediaPackageID"},
		},
	}
}

// Schema describes the snapshot, property and claim tables.
func Schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			snapshotTable: {
				Name: snapshotTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "SnapshotID"},
					},
					indexVersion: {
						Name:   indexVersion,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "OrganizationID"},
								&memdb.StringFieldIndex{Field: "MediaPackageID"},
								&memdb.IntFieldIndex{Field: "Version"},
							},
						},
					},
					indexMP: {
						Name:    indexMP,
						Indexer: orgMP(),
					},
					indexOrg: {
						Name:    indexOrg,
						Indexer: &memdb.StringFieldIndex{Field: "OrganizationID"},
					},
				},
			},
			propertyTable: {
				Name: propertyTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:   indexID,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "OrganizationID"},
								&memdb.StringFieldIndex{Field: "MediaPackageID"},
								&memdb.StringFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "Name"},
							},
						},
					},
					indexMP: {
						Name:    indexMP,
						Indexer: orgMP(),
					},
				},
			},
			claimTable: {
				Name: claimTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: orgMP(),
					},
				},
			},
		},
	}
}
