// Package storetest is the conformance suite every backend must pass. Each
// backend package calls Run from its own tests with a constructor for a fresh,
// empty backend.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) types.Backend

const (
	owner = "org-a"
	other = "org-b"
)

var (
	nsP   = types.Namespace("p")
	nsP2  = types.Namespace("p2")
	agent = types.StringProperty("org.opencast.agent", "agent")
	count = types.LongProperty("org.opencast.stats", "count")
	flag  = types.BooleanProperty("org.opencast.stats", "optout")
)

// Run executes the suite against backends built by open.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, b types.Backend)
	}{
		{"SnapshotVersions", testSnapshotVersions},
		{"ConcurrentPutVersions", testConcurrentPutVersions},
		{"VersionsNotReissued", testVersionsNotReissued},
		{"DeleteMiddleVersion", testDeleteMiddleVersion},
		{"RestoreSnapshot", testRestoreSnapshot},
		{"SetPropertyUpsert", testSetPropertyUpsert},
		{"SetPropertyWithoutSnapshot", testSetPropertyWithoutSnapshot},
		{"SelectPredicates", testSelectPredicates},
		{"SelectTargets", testSelectTargets},
		{"SelectOrderAndPage", testSelectOrderAndPage},
		{"NamespaceDeleteIsolation", testNamespaceDeleteIsolation},
		{"CrossNamespaceGuard", testCrossNamespaceGuard},
		{"PresenceGuardIgnoresType", testPresenceGuardIgnoresType},
		{"PredicateTargetDecoupling", testPredicateTargetDecoupling},
		{"ZeroMatchDelete", testZeroMatchDelete},
		{"SnapshotDeleteCascade", testSnapshotDeleteCascade},
		{"DeleteMediaPackage", testDeleteMediaPackage},
		{"Authorization", testAuthorization},
		{"SeparatorInIDs", testSeparatorInIDs},
		{"TypeMismatch", testTypeMismatch},
		{"TransactionRollback", testTransactionRollback},
		{"PutAll", testPutAll},
		{"Closed", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := open(t)
			t.Cleanup(func() { _ = b.Close() })
			tt.run(t, b)
		})
	}
}

func put(t *testing.T, b types.Backend, org, mp, series string) *types.Snapshot {
	t.Helper()
	s, err := b.PutSnapshot(context.Background(), types.SnapshotInput{
		OrganizationID: org,
		MediaPackageID: mp,
		SeriesID:       series,
		Payload:        []byte("<mediapackage id=\"" + mp + "\"/>"),
	})
	require.NoError(t, err)
	return s
}

func set(t *testing.T, b types.Backend, org, mp string, d types.PropertyDefinition, v any) {
	t.Helper()
	p, err := d.Of(mp, v)
	require.NoError(t, err)
	p.OrganizationID = org
	ok, err := b.SetProperty(context.Background(), p)
	require.NoError(t, err)
	require.True(t, ok, "media package %s has no snapshot", mp)
}

func versions(snaps []*types.Snapshot) []int64 {
	out := make([]int64, len(snaps))
	for i, s := range snaps {
		out[i] = s.Version
	}
	return out
}

func mediaPackages(res *asset.Result) []string {
	var out []string
	for _, r := range res.Records {
		out = append(out, r.MediaPackageID)
	}
	return out
}

func propertyNames(props []types.Property) []string {
	var out []string
	for _, p := range props {
		out = append(out, p.Key().String())
	}
	sort.Strings(out)
	return out
}

func testSnapshotVersions(t *testing.T, b types.Backend) {
	ctx := context.Background()
	s1 := put(t, b, owner, "mp", "series-1")
	s2 := put(t, b, owner, "mp", "")
	foreign := put(t, b, other, "mp", "")

	assert.Equal(t, int64(1), s1.Version)
	assert.Equal(t, int64(2), s2.Version)
	assert.Equal(t, int64(1), foreign.Version, "versions are per organization")
	assert.NotEmpty(t, s1.SnapshotID)
	assert.NotEqual(t, s1.SnapshotID, s2.SnapshotID)
	assert.False(t, s1.CreatedAt.IsZero())

	got, ok, err := b.GetSnapshot(ctx, owner, "mp", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s1.SnapshotID, got.SnapshotID)
	assert.Equal(t, "series-1", got.SeriesID)
	assert.Equal(t, string(s1.Payload), string(got.Payload))
	assert.True(t, s1.CreatedAt.Equal(got.CreatedAt))

	_, ok, err = b.GetSnapshot(ctx, owner, "mp", 9)
	require.NoError(t, err)
	assert.False(t, ok, "a missing version is not an error")

	latest, err := b.IsLatest(ctx, owner, "mp", 2)
	require.NoError(t, err)
	assert.True(t, latest)
	latest, err = b.IsLatest(ctx, owner, "mp", 1)
	require.NoError(t, err)
	assert.False(t, latest)

	_, err = b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: owner})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func testConcurrentPutVersions(t *testing.T, b types.Backend) {
	const n = 24
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := b.PutSnapshot(context.Background(), types.SnapshotInput{
				OrganizationID: owner,
				MediaPackageID: "hot",
				Payload:        []byte("x"),
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			got = append(got, s.Version)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := make([]int64, n)
	for i := range want {
		want[i] = int64(i + 1)
	}
	assert.Equal(t, want, got, "versions are unique and gapless under concurrency")
}

func testVersionsNotReissued(t *testing.T, b types.Backend) {
	ctx := context.Background()
	put(t, b, owner, "mp", "")
	put(t, b, owner, "mp", "")

	ok, err := b.DeleteSnapshot(ctx, owner, "mp", 2)
	require.NoError(t, err)
	require.True(t, ok)

	s := put(t, b, owner, "mp", "")
	assert.Equal(t, int64(3), s.Version)
}

func testDeleteMiddleVersion(t *testing.T, b types.Backend) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		put(t, b, owner, "mp", "")
	}

	ok, err := b.DeleteSnapshot(ctx, owner, "mp", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.DeleteSnapshot(ctx, owner, "mp", 2)
	require.NoError(t, err)
	assert.False(t, ok, "deleting an absent version reports false")

	_, ok, err = b.GetSnapshot(ctx, owner, "mp", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	latest, err := b.IsLatest(ctx, owner, "mp", 3)
	require.NoError(t, err)
	assert.True(t, latest)
	latest, err = b.IsLatest(ctx, owner, "mp", 1)
	require.NoError(t, err)
	assert.False(t, latest)

	res, err := asset.New(b).ForOrganization(owner).Select(types.Snapshots()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, versions(res.Snapshots()))
}

func testRestoreSnapshot(t *testing.T, b types.Backend) {
	ctx := context.Background()
	s := &types.Snapshot{
		SnapshotID:     types.NewSnapshotID(),
		OrganizationID: owner,
		MediaPackageID: "mp",
		Version:        5,
		SeriesID:       "s",
		Payload:        []byte("restored"),
	}
	require.NoError(t, b.RestoreSnapshot(ctx, s))

	got, ok, err := b.GetSnapshot(ctx, owner, "mp", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.SnapshotID, got.SnapshotID)
	assert.Equal(t, "restored", string(got.Payload))

	err = b.RestoreSnapshot(ctx, &types.Snapshot{SnapshotID: types.NewSnapshotID(), OrganizationID: owner, MediaPackageID: "mp", Version: 3})
	assert.ErrorIs(t, err, types.ErrInvalidVersion)

	next := put(t, b, owner, "mp", "")
	assert.Equal(t, int64(6), next.Version, "allocation continues above restored versions")
}

func testSetPropertyUpsert(t *testing.T, b types.Backend) {
	ctx := context.Background()
	put(t, b, owner, "mp", "")
	set(t, b, owner, "mp", agent, "first")
	set(t, b, owner, "mp", count, 1)
	set(t, b, owner, "mp", agent, "second")

	res, err := asset.New(b).ForOrganization(owner).Select(types.Properties()).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	assert.Equal(t, 2, res.CountProperties(), "upsert does not add a row")

	rec, _ := res.Head()
	v, ok := rec.PropertyValue(agent)
	require.True(t, ok)
	assert.True(t, v.Equal(types.StringValue("second")))
}

func testSetPropertyWithoutSnapshot(t *testing.T, b types.Backend) {
	p, err := agent.Of("ghost", "x")
	require.NoError(t, err)
	p.OrganizationID = owner
	ok, err := b.SetProperty(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ok)
}

// seedPredicates stores:
//
//	mp1: v1 (no series), v2 (series s1); agent=x
//	mp2: v1 (series s2); agent=x, count=3
//	mp3: v1; agent=y, optout=true
//	org-b/mp1: v1 (series s1); agent=x
func seedPredicates(t *testing.T, b types.Backend) {
	put(t, b, owner, "mp1", "")
	put(t, b, owner, "mp1", "s1")
	put(t, b, owner, "mp2", "s2")
	put(t, b, owner, "mp3", "")
	put(t, b, other, "mp1", "s1")

	set(t, b, owner, "mp1", agent, "x")
	set(t, b, owner, "mp2", agent, "x")
	set(t, b, owner, "mp2", count, 3)
	set(t, b, owner, "mp3", agent, "y")
	set(t, b, owner, "mp3", flag, true)
	set(t, b, other, "mp1", agent, "x")
}

func testSelectPredicates(t *testing.T, b types.Backend) {
	seedPredicates(t, b)
	org := asset.New(b).ForOrganization(owner)

	type row struct {
		mp      string
		version int64
	}
	tests := []struct {
		name string
		p    types.Predicate
		want []row
	}{
		{"always stays in organization", types.Always(), []row{{"mp1", 1}, {"mp1", 2}, {"mp2", 1}, {"mp3", 1}}},
		{"organization", types.OrganizationIs(owner), []row{{"mp1", 1}, {"mp1", 2}, {"mp2", 1}, {"mp3", 1}}},
		{"media package", types.MediaPackageIs("mp2"), []row{{"mp2", 1}}},
		{"series equality", types.SeriesIs("s1"), []row{{"mp1", 2}}},
		{"absent series never equals", types.SeriesIs(""), nil},
		{"negated series keeps absent series", types.Not(types.SeriesIs("s1")), []row{{"mp1", 1}, {"mp2", 1}, {"mp3", 1}}},
		{"series exists on any version", types.HasSeries(), []row{{"mp1", 1}, {"mp1", 2}, {"mp2", 1}}},
		{"latest", types.IsLatestVersion(), []row{{"mp1", 2}, {"mp2", 1}, {"mp3", 1}}},
		{"property equality", agent.Eq("x"), []row{{"mp1", 1}, {"mp1", 2}, {"mp2", 1}}},
		{"long equality", count.Eq(3), []row{{"mp2", 1}}},
		{"boolean equality", flag.Eq(true), []row{{"mp3", 1}}},
		{"equality on absent property", count.Eq(4), nil},
		{"exists", count.Exists(), []row{{"mp2", 1}}},
		{"not exists", count.NotExists(), []row{{"mp1", 1}, {"mp1", 2}, {"mp3", 1}}},
		{"exists with a differently typed slot", types.StringProperty("org.opencast.stats", "count").Exists(), []row{{"mp2", 1}}},
		{"exists is definition scoped", types.LongProperty("org.opencast.stats", "other").Exists(), nil},
		{"unregistered not exists", types.StringProperty("never", "seen").NotExists(), []row{{"mp1", 1}, {"mp1", 2}, {"mp2", 1}, {"mp3", 1}}},
		{"and", types.And(agent.Eq("x"), types.IsLatestVersion()), []row{{"mp1", 2}, {"mp2", 1}}},
		{"or", types.Or(count.Exists(), flag.Exists()), []row{{"mp2", 1}, {"mp3", 1}}},
		{"not", types.Not(agent.Eq("x")), []row{{"mp3", 1}}},
		{"labelled tree", types.Named(types.Or(types.MediaPackageIs("mp3"), types.SeriesIs("s2")), "either"), []row{{"mp2", 1}, {"mp3", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := org.Select(types.Snapshots()).Where(tt.p).Run(context.Background())
			require.NoError(t, err)
			var got []row
			for _, s := range res.Snapshots() {
				assert.Equal(t, owner, s.OrganizationID)
				got = append(got, row{s.MediaPackageID, s.Version})
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func testSelectTargets(t *testing.T, b types.Backend) {
	ctx := context.Background()
	seedPredicates(t, b)
	org := asset.New(b).ForOrganization(owner)

	res, err := org.Select(org.PropertiesOf("org.opencast.stats")).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mp2", "mp3"}, mediaPackages(res), "property-only selects yield one record per media package")
	for _, rec := range res.Records {
		assert.Nil(t, rec.Snapshot)
	}
	assert.Equal(t, []string{"org.opencast.stats:count", "org.opencast.stats:optout"}, propertyNames(res.Properties()))

	res, err = org.Select(org.Snapshot(), count.Target()).Where(types.MediaPackageIs("mp2")).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	rec, _ := res.Head()
	require.NotNil(t, rec.Snapshot)
	v, ok := rec.PropertyValue(count)
	require.True(t, ok)
	assert.True(t, v.Equal(types.LongValue(3)))
	_, ok = rec.PropertyValue(agent)
	assert.False(t, ok, "unselected slots are not returned")

	res, err = org.Select(org.Snapshot(), org.Properties()).Where(types.MediaPackageIs("mp1")).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Size())
	assert.Equal(t, 1, res.CountProperties(), "properties are counted once per media package")
	docs := res.Documents()
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Snapshots, 2)

	_, err = org.Select().Run(ctx)
	assert.ErrorIs(t, err, types.ErrNoTarget)
}

func testSelectOrderAndPage(t *testing.T, b types.Backend) {
	ctx := context.Background()
	org := asset.New(b).ForOrganization(owner)
	for i, mp := range []string{"c", "a", "d", "b"} {
		put(t, b, owner, mp, fmt.Sprintf("s%d", i%2))
		set(t, b, owner, mp, count, 10-i)
	}
	put(t, b, owner, "e", "")

	res, err := org.Select(org.Snapshot()).OrderBy(types.Desc(types.OrderByMediaPackageID)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, mediaPackages(res))

	res, err = org.Select(org.Snapshot()).OrderBy(types.ByProperty(count, false)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, mediaPackages(res), "missing values sort first")

	res, err = org.Select(org.Snapshot()).
		OrderBy(types.Asc(types.OrderBySeriesID)).
		OrderBy(types.ByProperty(count, true)).
		Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c", "d", "a", "b"}, mediaPackages(res))

	base := org.Select(org.Snapshot()).OrderBy(types.Asc(types.OrderByMediaPackageID))
	res, err = base.Page(1, 2).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, mediaPackages(res))
	assert.Equal(t, 5, res.Total)

	res, err = base.Page(3, 0).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, mediaPackages(res), "a zero limit is unbounded")

	res, err = base.Page(10, 1).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Size())

	_, err = base.Page(-1, 1).Run(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidPage)

	res, err = base.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Size(), "paging a derived query leaves the base untouched")
}

// seedNamespaces stores three media packages, each with one series, one
// property in namespace p and one in namespace p2.
func seedNamespaces(t *testing.T, b types.Backend) []string {
	mps := []string{"mp-0", "mp-1", "mp-2"}
	for i, mp := range mps {
		put(t, b, owner, mp, fmt.Sprintf("series-%d", i))
		set(t, b, owner, mp, nsP.Str("agent"), "agent")
		set(t, b, owner, mp, nsP2.Long("count"), i)
	}
	return mps
}

func testNamespaceDeleteIsolation(t *testing.T, b types.Backend) {
	ctx := context.Background()
	mps := seedNamespaces(t, b)
	org := asset.New(b).ForOrganization(owner)

	n, err := org.Delete(owner, nsP.AllProperties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i, mp := range mps {
		res, err := org.Select(org.Properties()).Where(types.MediaPackageIs(mp)).Run(ctx)
		require.NoError(t, err)
		require.False(t, res.Size() == 0, "media package %s lost its p2 properties", mp)
		props := res.Properties()
		require.Len(t, props, 1)
		assert.Equal(t, "p2", props[0].Namespace)
		assert.True(t, props[0].Value.Equal(types.LongValue(int64(i))))
	}
}

func testCrossNamespaceGuard(t *testing.T, b types.Backend) {
	ctx := context.Background()
	guard := types.LongProperty("guard", "count")
	put(t, b, owner, "hit", "")
	put(t, b, owner, "guarded", "")
	put(t, b, owner, "other-agent", "")
	for _, mp := range []string{"hit", "guarded", "other-agent"} {
		set(t, b, owner, mp, nsP.Str("note"), "n")
		set(t, b, owner, mp, nsP2.Str("note"), "n")
	}
	set(t, b, owner, "hit", agent, "x")
	set(t, b, owner, "guarded", agent, "x")
	set(t, b, owner, "guarded", guard, 1)
	set(t, b, owner, "other-agent", agent, "y")

	org := asset.New(b).ForOrganization(owner)
	n, err := org.Delete(owner, nsP.AllProperties()).
		Where(types.And(types.OrganizationIs(owner), agent.Eq("x"), guard.NotExists())).
		Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := org.Select(org.Properties()).Where(types.MediaPackageIs("hit")).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org.opencast.agent:agent", "p2:note"}, propertyNames(res.Properties()))

	res, err = org.Select(nsP.AllProperties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"guarded", "other-agent"}, mediaPackages(res))
}

func testPresenceGuardIgnoresType(t *testing.T, b types.Backend) {
	ctx := context.Background()
	put(t, b, owner, "mp", "")
	set(t, b, owner, "mp", nsP.Str("note"), "n")
	set(t, b, owner, "mp", types.StringProperty("stats", "count"), "3")

	org := asset.New(b).ForOrganization(owner)
	n, err := org.Delete(owner, nsP.AllProperties()).
		Where(types.LongProperty("stats", "count").NotExists()).
		Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a stats:count row of any type guards the namespace")

	res, err := org.Select(nsP.AllProperties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CountProperties())
}

func testPredicateTargetDecoupling(t *testing.T, b types.Backend) {
	ctx := context.Background()
	x := nsP.Str("x")
	y := nsP.Str("y")
	put(t, b, owner, "m1", "")
	put(t, b, owner, "m2", "")
	set(t, b, owner, "m1", x, "x1")
	set(t, b, owner, "m1", y, "v")
	set(t, b, owner, "m2", x, "x2")
	set(t, b, owner, "m2", y, "w")

	org := asset.New(b).ForOrganization(owner)
	n, err := org.Delete(owner, x.Target()).Where(y.Eq("v")).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := org.Select(org.Properties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p:x", "p:y", "p:y"}, propertyNames(res.Properties()))
}

func testZeroMatchDelete(t *testing.T, b types.Backend) {
	ctx := context.Background()
	seedNamespaces(t, b)
	org := asset.New(b).ForOrganization(owner)

	before, err := org.Select(org.Snapshot(), org.Properties()).Run(ctx)
	require.NoError(t, err)

	n, err := org.Delete(owner, org.Snapshot(), org.Properties()).Where(types.MediaPackageIs("nope")).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = org.Delete(owner, nsP.AllProperties()).Where(types.Not(types.Always())).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := org.Select(org.Snapshot(), org.Properties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Size(), after.Size())
	assert.Equal(t, before.CountProperties(), after.CountProperties())
}

func testSnapshotDeleteCascade(t *testing.T, b types.Backend) {
	ctx := context.Background()
	put(t, b, owner, "mp", "")
	put(t, b, owner, "mp", "")
	set(t, b, owner, "mp", agent, "x")
	org := asset.New(b).ForOrganization(owner)

	n, err := org.Delete(owner, org.Snapshot()).Where(types.Not(types.IsLatestVersion())).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := org.Select(org.Properties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CountProperties(), "properties stay while a snapshot remains")

	n, err = org.Delete(owner, org.Snapshot()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "orphaned properties are not counted")

	put(t, b, owner, "mp", "")
	res, err = org.Select(org.Properties()).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.CountProperties(), "a new snapshot does not resurrect old properties")
}

func testDeleteMediaPackage(t *testing.T, b types.Backend) {
	ctx := context.Background()
	seedNamespaces(t, b)
	org := asset.New(b).ForOrganization(owner)

	n, err := org.DeleteMediaPackage(ctx, owner, "mp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := org.Select(org.Snapshot()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mp-0", "mp-2"}, mediaPackages(res))
}

func testAuthorization(t *testing.T, b types.Backend) {
	ctx := context.Background()
	seedPredicates(t, b)
	store := asset.New(b)
	org := store.ForOrganization(owner)

	_, err := org.Delete(other, org.Properties()).Run(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = org.Delete(owner, org.Properties()).Where(types.OrganizationIs(other)).Run(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = org.Select(org.Snapshot()).Where(types.OrganizationIs(other)).Run(ctx)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = org.DeleteSnapshot(ctx, other, "mp1", 1)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	admin := store.WithScope(types.AdministrativeScope("root"))
	res, err := admin.Select(admin.Snapshot()).Where(types.MediaPackageIs("mp1")).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Size(), "administrative scopes span organizations")

	n, err := admin.Delete("root", admin.Properties()).Where(types.OrganizationIs(other)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err = org.Select(org.Properties()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.CountProperties(), "the other organization's delete left these untouched")
}

func testTypeMismatch(t *testing.T, b types.Backend) {
	ctx := context.Background()
	put(t, b, owner, "mp", "")
	registry, err := asset.NewRegistry(agent)
	require.NoError(t, err)
	org := asset.New(b, asset.WithRegistry(registry)).ForOrganization(owner)

	_, err = org.Select(org.Snapshot()).Where(count.Eq("three")).Run(ctx)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = org.Delete(owner, org.Properties()).Where(types.LongProperty(agent.Namespace, agent.Name).Exists()).Run(ctx)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = org.SetProperty(ctx, types.Property{MediaPackageID: "mp", Namespace: agent.Namespace, Name: agent.Name, Value: types.LongValue(1)})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	def, ok := org.Property(agent.Namespace, agent.Name)
	require.True(t, ok)
	assert.Equal(t, agent, def)
}

func testTransactionRollback(t *testing.T, b types.Backend) {
	ctx := context.Background()
	seedNamespaces(t, b)

	tx, err := b.Begin(ctx, true)
	require.NoError(t, err)
	keys := []types.MediaPackageKey{{OrganizationID: owner, MediaPackageID: "mp-0"}}
	n, err := tx.DeleteProperties(ctx, keys, types.PropertyFilter{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback(), "rollback is idempotent")

	rtx, err := b.Begin(ctx, false)
	require.NoError(t, err)
	defer rtx.Rollback()
	props, err := rtx.Properties(ctx, keys, types.PropertyFilter{All: true})
	require.NoError(t, err)
	assert.Len(t, props, 2)
	require.NoError(t, rtx.Commit())
}

func testPutAll(t *testing.T, b types.Backend) {
	ctx := context.Background()
	store := asset.New(b, asset.WithImportWorkers(4))

	var inputs []types.SnapshotInput
	for i := 0; i < 30; i++ {
		inputs = append(inputs, types.SnapshotInput{
			OrganizationID: owner,
			MediaPackageID: fmt.Sprintf("mp-%d", i%5),
			Payload:        []byte("x"),
		})
	}
	inputs = append(inputs, types.SnapshotInput{OrganizationID: owner})

	snaps, err := store.PutAll(ctx, inputs)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	require.Len(t, snaps, len(inputs))
	assert.Nil(t, snaps[len(snaps)-1])
	for i, s := range snaps[:len(snaps)-1] {
		require.NotNil(t, s)
		assert.Equal(t, int64(i/5+1), s.Version, "input %d keeps slice order within its media package", i)
	}

	res, err := store.ForOrganization(owner).Select(types.Snapshots()).Where(types.IsLatestVersion()).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, res.Size())
	for _, s := range res.Snapshots() {
		assert.Equal(t, int64(6), s.Version)
	}
}

func testClosed(t *testing.T, b types.Backend) {
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")

	_, err := b.PutSnapshot(context.Background(), types.SnapshotInput{OrganizationID: owner, MediaPackageID: "mp"})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = b.Begin(context.Background(), false)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func testSeparatorInIDs(t *testing.T, b types.Backend) {
	ctx := context.Background()
	tenant := "acme"
	crafted := tenant + "\x00evil"

	_, err := b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: crafted, MediaPackageID: "secret"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.PutSnapshot(ctx, types.SnapshotInput{OrganizationID: tenant, MediaPackageID: "a\x00b"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
	err = b.RestoreSnapshot(ctx, &types.Snapshot{SnapshotID: types.NewSnapshotID(), OrganizationID: crafted, MediaPackageID: "secret", Version: 1})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	first := put(t, b, tenant, "a", "")
	assert.Equal(t, int64(1), first.Version, "rejected keys claim no versions")
	put(t, b, tenant, "evil", "")

	_, err = b.SetProperty(ctx, types.Property{OrganizationID: tenant, MediaPackageID: "a", Namespace: "p\x00q", Name: "n", Value: types.StringValue("v")})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	_, _, err = b.GetSnapshot(ctx, crafted, "secret", 1)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.IsLatest(ctx, crafted, "secret", 1)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.DeleteSnapshot(ctx, crafted, "secret", 1)
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = asset.New(b).ForOrganization(tenant + "\x00").Select(types.Snapshots()).Run(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidID)

	res, err := asset.New(b).ForOrganization(tenant).Select(types.Snapshots()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "evil"}, mediaPackages(res))
	for _, s := range res.Snapshots() {
		assert.Equal(t, tenant, s.OrganizationID)
	}
}
