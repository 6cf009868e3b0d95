package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable, versioned copy of a media package document.
// Versions of one (organization, media package) strictly increase; the
// latest snapshot is the one with the highest stored version.
type Snapshot struct {
	SnapshotID     string    `json:"snapshot_id"`
	OrganizationID string    `json:"organization_id"`
	MediaPackageID string    `json:"media_package_id"`
	Version        int64     `json:"version"`
	SeriesID       string    `json:"series_id,omitempty"` // Empty when the document has no series.
	Payload        []byte    `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

// Key returns the snapshot's row identity.
func (s *Snapshot) Key() SnapshotKey {
	return SnapshotKey{OrganizationID: s.OrganizationID, MediaPackageID: s.MediaPackageID, Version: s.Version}
}

// MediaPackageKey returns the identity of the snapshot's media package.
func (s *Snapshot) MediaPackageKey() MediaPackageKey {
	return MediaPackageKey{OrganizationID: s.OrganizationID, MediaPackageID: s.MediaPackageID}
}

// HasSeries reports whether the snapshot carries a series id.
func (s *Snapshot) HasSeries() bool { return s.SeriesID != "" }

// MediaPackageKey identifies a media package inside an organization.
type MediaPackageKey struct {
	OrganizationID string
	MediaPackageID string
}

// Validate checks both parts of the key with ValidID.
func (k MediaPackageKey) Validate() error {
	if !ValidID(k.OrganizationID) || !ValidID(k.MediaPackageID) {
		return ErrInvalidID
	}
	return nil
}

// SnapshotKey identifies one snapshot row.
type SnapshotKey struct {
	OrganizationID string
	MediaPackageID string
	Version        int64
}

// SnapshotInput is the data of a snapshot about to be stored. The version
// and creation time are assigned by the store.
type SnapshotInput struct {
	OrganizationID string `json:"organization_id"`
	MediaPackageID string `json:"media_package_id"`
	SeriesID       string `json:"series_id,omitempty"`
	Payload        []byte `json:"payload"`
}

// Validate checks that the input names an organization and a media package.
func (in SnapshotInput) Validate() error {
	if !ValidID(in.OrganizationID) || !ValidID(in.MediaPackageID) {
		return ErrInvalidID
	}
	return nil
}

// ValidID reports whether id can name an organization, media package or
// snapshot row: non-empty and free of NUL bytes, which separate key parts
// in the key-value backends.
func ValidID(id string) bool {
	return id != "" && strings.IndexByte(id, 0) < 0
}

// NewMediaPackageID generates a media package id (UUID v7).
func NewMediaPackageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSnapshotID generates a snapshot row id (UUID v7).
func NewSnapshotID() string {
	return uuid.Must(uuid.NewV7()).String()
}
