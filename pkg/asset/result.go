package asset

import (
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Record is one row of a select result. Snapshot is nil when the select had
// no snapshot target; Properties holds the selected property rows of the
// record's media package.
type Record struct {
	OrganizationID string
	MediaPackageID string
	Snapshot       *types.Snapshot
	Properties     []types.Property

	rep       *types.Snapshot
	sortProps []types.Property
}

// PropertyValue returns the value of d's slot when it was selected and has
// d's type.
func (r Record) PropertyValue(d types.PropertyDefinition) (types.Value, bool) {
	for _, p := range r.Properties {
		if p.Key() == d.Key() && p.Value.Type() == d.ValueType {
			return p.Value, true
		}
	}
	return types.Value{}, false
}

// Values maps each selected property slot to its value.
func (r Record) Values() map[types.PropertyName]types.Value {
	m := make(map[types.PropertyName]types.Value, len(r.Properties))
	for _, p := range r.Properties {
		m[p.Key()] = p.Value
	}
	return m
}

// Result is the outcome of a select. Total counts the records before paging.
type Result struct {
	Records []Record
	Total   int
	Offset  int
	Limit   int
}

// Size returns the number of records on this page.
func (r *Result) Size() int { return len(r.Records) }

// Head returns the first record.
func (r *Result) Head() (Record, bool) {
	if len(r.Records) == 0 {
		return Record{}, false
	}
	return r.Records[0], true
}

// Snapshots returns the snapshots of the records that carry one.
func (r *Result) Snapshots() []*types.Snapshot {
	var out []*types.Snapshot
	for _, rec := range r.Records {
		if rec.Snapshot != nil {
			out = append(out, rec.Snapshot)
		}
	}
	return out
}

// Properties returns every selected property row. A media package selected
// through several snapshot rows contributes its properties once.
func (r *Result) Properties() []types.Property {
	var out []types.Property
	seen := make(map[types.MediaPackageKey]bool)
	for _, rec := range r.Records {
		k := types.MediaPackageKey{OrganizationID: rec.OrganizationID, MediaPackageID: rec.MediaPackageID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, rec.Properties...)
	}
	return out
}

// CountProperties returns len(r.Properties()).
func (r *Result) CountProperties() int {
	return len(r.Properties())
}

// Document groups a media package's records for consumers that think in
// documents rather than rows.
type Document struct {
	OrganizationID string
	MediaPackageID string
	Snapshots      []*types.Snapshot
	Properties     []types.Property
}

// Documents groups the records by media package in record order.
func (r *Result) Documents() []Document {
	var docs []Document
	index := make(map[types.MediaPackageKey]int)
	for _, rec := range r.Records {
		k := types.MediaPackageKey{OrganizationID: rec.OrganizationID, MediaPackageID: rec.MediaPackageID}
		i, ok := index[k]
		if !ok {
			i = len(docs)
			index[k] = i
			docs = append(docs, Document{
				OrganizationID: rec.OrganizationID,
				MediaPackageID: rec.MediaPackageID,
				Properties:     rec.Properties,
			})
		}
		if rec.Snapshot != nil {
			docs[i].Snapshots = append(docs[i].Snapshots, rec.Snapshot)
		}
	}
	return docs
}
