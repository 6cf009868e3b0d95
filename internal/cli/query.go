package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// predicateFlags are the filter flags shared by select and delete. All
// given filters are ANDed.
type predicateFlags struct {
	organization string
	mediaPackage string
	series       string
	hasSeries    bool
	latest       bool
	notLatest    bool
	where        []string
	exists       []string
	missing      []string
}

func (f *predicateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.organization, "organization", "", "match rows of this organization")
	fs.StringVar(&f.mediaPackage, "mp", "", "match rows of this media package")
	fs.StringVar(&f.series, "series", "", "match snapshot rows of this series")
	fs.BoolVar(&f.hasSeries, "has-series", false, "match media packages with a series on any version")
	fs.BoolVar(&f.latest, "latest", false, "match only the latest version")
	fs.BoolVar(&f.notLatest, "not-latest", false, "match every version but the latest")
	fs.StringArrayVar(&f.where, "where", nil, "property equality, namespace:name=value (repeatable)")
	fs.StringArrayVar(&f.exists, "exists", nil, "property presence, namespace:name[:type] (repeatable)")
	fs.StringArrayVar(&f.missing, "missing", nil, "property absence, namespace:name[:type] (repeatable)")
}

func (f *predicateFlags) predicate(r *asset.Registry) (types.Predicate, error) {
	var ps []types.Predicate
	if f.organization != "" {
		ps = append(ps, types.OrganizationIs(f.organization))
	}
	if f.mediaPackage != "" {
		ps = append(ps, types.MediaPackageIs(f.mediaPackage))
	}
	if f.series != "" {
		ps = append(ps, types.SeriesIs(f.series))
	}
	if f.hasSeries {
		ps = append(ps, types.HasSeries())
	}
	if f.latest {
		ps = append(ps, types.IsLatestVersion())
	}
	if f.notLatest {
		ps = append(ps, types.Not(types.IsLatestVersion()))
	}
	for _, w := range f.where {
		slot, value, ok := strings.Cut(w, "=")
		if !ok {
			return nil, fmt.Errorf("%w: --where %q is not namespace:name=value", types.ErrInvalidName, w)
		}
		def, v, err := parseAssignment(r, slot, value, "")
		if err != nil {
			return nil, err
		}
		ps = append(ps, def.Eq(v))
	}
	for _, s := range f.exists {
		def, err := parseTypedSlot(r, s)
		if err != nil {
			return nil, err
		}
		ps = append(ps, def.Exists())
	}
	for _, s := range f.missing {
		def, err := parseTypedSlot(r, s)
		if err != nil {
			return nil, err
		}
		ps = append(ps, def.NotExists())
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return types.And(ps...), nil
}

// parseTypedSlot reads "namespace:name[:type]". Without a type the slot must
// be registered.
func parseTypedSlot(r *asset.Registry, s string) (types.PropertyDefinition, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		if def, ok := r.Lookup(parts[0], parts[1]); ok {
			return def, nil
		}
		return types.PropertyDefinition{}, fmt.Errorf("%w: %s is not registered; write %s:<type>", types.ErrInvalidValueType, s, s)
	case 3:
		vt, err := types.ParseValueType(parts[2])
		if err != nil {
			return types.PropertyDefinition{}, err
		}
		def := types.PropertyDefinition{Namespace: parts[0], Name: parts[1], ValueType: vt}
		return def, def.Validate()
	default:
		return types.PropertyDefinition{}, fmt.Errorf("%w: %q is not namespace:name[:type]", types.ErrInvalidName, s)
	}
}

// targetFlags choose what a query returns or removes.
type targetFlags struct {
	snapshots  bool
	properties bool
	namespaces []string
	slots      []string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.snapshots, "snapshots", false, "target snapshot rows")
	fs.BoolVar(&f.properties, "properties", false, "target every property")
	fs.StringArrayVar(&f.namespaces, "namespace", nil, "target the properties of a namespace (repeatable)")
	fs.StringArrayVar(&f.slots, "property", nil, "target one property slot, namespace:name (repeatable)")
}

func (f *targetFlags) targets() ([]types.Target, error) {
	var ts []types.Target
	if f.snapshots {
		ts = append(ts, types.Snapshots())
	}
	if f.properties {
		ts = append(ts, types.Properties())
	}
	for _, ns := range f.namespaces {
		ts = append(ts, types.PropertiesOf(ns))
	}
	for _, s := range f.slots {
		slot, err := parseSlot(s)
		if err != nil {
			return nil, err
		}
		// Slot targets select by name only; the type is not consulted.
		ts = append(ts, types.PropertyDefinition{Namespace: slot.Namespace, Name: slot.Name, ValueType: types.ValueTypeString}.Target())
	}
	return ts, nil
}

// recordView is the JSON form of one select record.
type recordView struct {
	OrganizationID string           `json:"organization_id"`
	MediaPackageID string           `json:"media_package_id"`
	Snapshot       *snapshotView    `json:"snapshot,omitempty"`
	Properties     []types.Property `json:"properties,omitempty"`
}

type resultView struct {
	Total   int          `json:"total"`
	Offset  int          `json:"offset"`
	Limit   int          `json:"limit,omitempty"`
	Records []recordView `json:"records"`
}

func viewResult(res *asset.Result, withPayload bool) resultView {
	out := resultView{Total: res.Total, Offset: res.Offset, Limit: res.Limit, Records: []recordView{}}
	for _, rec := range res.Records {
		rv := recordView{
			OrganizationID: rec.OrganizationID,
			MediaPackageID: rec.MediaPackageID,
			Properties:     rec.Properties,
		}
		if rec.Snapshot != nil {
			sv := viewSnapshot(rec.Snapshot, withPayload)
			rv.Snapshot = &sv
		}
		out.Records = append(out.Records, rv)
	}
	return out
}

func newSelectCmd(a *app) *cobra.Command {
	var (
		pf          predicateFlags
		tf          targetFlags
		orders      []string
		offset      int
		limit       int
		label       string
		withPayload bool
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Query snapshots and properties",
		Long: `Select the targets of every snapshot row matching the filters.

Example:
  assetstore select --snapshots --latest
  assetstore select --namespace org.opencast.stats --where org.opencast.agent:agent=capture-1
  assetstore select --snapshots --order org.opencast.stats:count:desc --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := tf.targets()
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
			p, err := pf.predicate(store.Registry())
			if err != nil {
				return err
			}

			q := org.Select(targets...).Where(p).Page(offset, limit)
			for _, s := range orders {
				o, err := types.ParseOrder(s)
				if err != nil {
					return err
				}
				q = q.OrderBy(o)
			}
			if label != "" {
				q = q.Name(label)
			}
			res, err := q.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), viewResult(res, withPayload))
		},
	}
	pf.register(cmd)
	tf.register(cmd)
	cmd.Flags().StringArrayVar(&orders, "order", nil, "sort key, field[:asc|:desc] or namespace:name[:asc|:desc] (repeatable)")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records (0: unbounded)")
	cmd.Flags().StringVar(&label, "name", "", "diagnostic label for logs")
	cmd.Flags().BoolVar(&withPayload, "payload", false, "include snapshot documents")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		pf    predicateFlags
		tf    targetFlags
		label string
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete snapshots and properties atomically",
		Long: `Delete the targets of every snapshot row matching the filters in one
transaction. Prints the number of target rows removed.

Example:
  assetstore delete --namespace org.opencast.stats --mp mp-1
  assetstore delete --snapshots --not-latest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := tf.targets()
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
			p, err := pf.predicate(store.Registry())
			if err != nil {
				return err
			}

			q := org.Delete(a.owner(), targets...).Where(p)
			if label != "" {
				q = q.Name(label)
			}
			n, err := q.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
		},
	}
	pf.register(cmd)
	tf.register(cmd)
	cmd.Flags().StringVar(&label, "name", "", "diagnostic label for logs")
	return cmd
}
