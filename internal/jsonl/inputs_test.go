package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func TestReadInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.jsonl")
	content := `{"media_package_id":"a","series_id":"s","document":"<mp/>"}
{"organization_id":"other","media_package_id":"b"}
{"series_id":"no-id"}
[1, 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	inputs, skipped, err := ReadInputs(path, "org")
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []types.SnapshotInput{
		{OrganizationID: "org", MediaPackageID: "a", SeriesID: "s", Payload: []byte("<mp/>")},
		{OrganizationID: "other", MediaPackageID: "b", Payload: []byte{}},
	}, inputs)
}
