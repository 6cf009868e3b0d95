package jsonl

import (
	"encoding/json"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// inputLine is one line of an import file. Document is the media package
// text; organization_id falls back to the importing organization.
type inputLine struct {
	OrganizationID string `json:"organization_id"`
	MediaPackageID string `json:"media_package_id"`
	SeriesID       string `json:"series_id"`
	Document       string `json:"document"`
}

// ReadInputs reads snapshot inputs from an import file. Lines that are not
// valid JSON or carry no media package id are skipped and counted.
func ReadInputs(path, org string) ([]types.SnapshotInput, int, error) {
	lines, skipped, err := readLines(path)
	if err != nil {
		return nil, 0, err
	}
	inputs := make([]types.SnapshotInput, 0, len(lines))
	for _, line := range lines {
		var in inputLine
		if err := json.Unmarshal(line, &in); err != nil || in.MediaPackageID == "" {
			skipped++
			continue
		}
		if in.OrganizationID == "" {
			in.OrganizationID = org
		}
		inputs = append(inputs, types.SnapshotInput{
			OrganizationID: in.OrganizationID,
			MediaPackageID: in.MediaPackageID,
			SeriesID:       in.SeriesID,
			Payload:        []byte(in.Document),
		})
	}
	return inputs, skipped, nil
}
