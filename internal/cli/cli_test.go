package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// env is one isolated configuration and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// run executes one CLI invocation and returns stdout.
func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	require.NoError(t, err, "assetstore %s", strings.Join(args, " "))
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "", "version")
	assert.Contains(t, out, "assetstore v"+Version)
}

func TestInitWritesDefaultConfig(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "", "init")
	got := decode[map[string]string](t, out)
	assert.Equal(t, types.BackendSQLite, got["backend"])
	assert.Equal(t, e.dataDir, got["data_dir"])

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "organization: "+defaultOrganization)

	_, err = os.Stat(filepath.Join(e.dataDir, "assets.db"))
	assert.NoError(t, err)
}

func TestSnapshotLifecycle(t *testing.T) {
	e := newEnv(t)
	put := decode[snapshotView](t, e.mustRun(t, "<mediapackage/>", "snapshot", "put", "mp-1", "--series", "s-1"))
	assert.Equal(t, int64(1), put.Version)
	assert.Equal(t, defaultOrganization, put.OrganizationID)
	e.mustRun(t, "<mediapackage v2/>", "snapshot", "put", "mp-1")

	latest := decode[snapshotView](t, e.mustRun(t, "", "snapshot", "latest", "mp-1"))
	assert.Equal(t, int64(2), latest.Version)
	assert.Equal(t, "<mediapackage v2/>", latest.Payload)

	got := decode[snapshotView](t, e.mustRun(t, "", "snapshot", "get", "mp-1", "1"))
	assert.Equal(t, "s-1", got.SeriesID)

	deleted := decode[map[string]bool](t, e.mustRun(t, "", "snapshot", "delete", "mp-1", "1"))
	assert.True(t, deleted["deleted"])

	_, err := e.run(t, "", "snapshot", "get", "mp-1", "1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = e.run(t, "", "snapshot", "get", "mp-1", "zero")
	assert.ErrorIs(t, err, types.ErrInvalidVersion)
}

func TestSelectAndDelete(t *testing.T) {
	e := newEnv(t)
	for _, mp := range []string{"a", "b", "c"} {
		e.mustRun(t, "<mp/>", "snapshot", "put", mp)
		e.mustRun(t, "", "property", "set", mp, "org.opencast.agent:agent", "agent-"+mp)
	}
	e.mustRun(t, "", "property", "set", "a", "org.opencast.stats:count", "3")
	e.mustRun(t, "", "property", "set", "b", "org.opencast.stats:count", "1")

	res := decode[resultView](t, e.mustRun(t, "", "select", "--snapshots", "--exists", "org.opencast.stats:count:long", "--order", "org.opencast.stats:count:desc"))
	require.Len(t, res.Records, 2)
	assert.Equal(t, "a", res.Records[0].MediaPackageID)
	assert.Equal(t, "b", res.Records[1].MediaPackageID)

	res = decode[resultView](t, e.mustRun(t, "", "select", "--namespace", "org.opencast.agent", "--where", "org.opencast.agent:agent=agent-c"))
	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].Snapshot)
	require.Len(t, res.Records[0].Properties, 1)
	assert.True(t, res.Records[0].Properties[0].Value.Equal(types.StringValue("agent-c")))

	n := decode[map[string]int](t, e.mustRun(t, "", "delete", "--namespace", "org.opencast.stats", "--missing", "org.opencast.agent:other:string"))
	assert.Equal(t, 2, n["deleted"])

	n = decode[map[string]int](t, e.mustRun(t, "", "delete", "--snapshots", "--mp", "c"))
	assert.Equal(t, 1, n["deleted"])

	res = decode[resultView](t, e.mustRun(t, "", "select", "--snapshots", "--properties"))
	assert.Equal(t, 2, res.Total)

	_, err := e.run(t, "", "select")
	assert.ErrorIs(t, err, types.ErrNoTarget)
	_, err = e.run(t, "", "select", "--snapshots", "--organization", "elsewhere")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = e.run(t, "", "select", "--snapshots", "--exists", "ns:unregistered")
	assert.ErrorIs(t, err, types.ErrInvalidValueType)
}

func TestPropertySetWithoutSnapshot(t *testing.T) {
	_, err := newEnv(t).run(t, "", "property", "set", "ghost", "ns:name", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestConfiguredRegistry(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	config := `backend: sqlite
organization: tenant
properties:
  - namespace: org.opencast.stats
    name: count
    type: long
`
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte(config), 0o644))

	e.mustRun(t, "<mp/>", "snapshot", "put", "a")
	_, err := e.run(t, "", "property", "set", "a", "org.opencast.stats:count", "x")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	e.mustRun(t, "", "property", "set", "a", "org.opencast.stats:count", "4")
	res := decode[resultView](t, e.mustRun(t, "", "select", "--properties", "--exists", "org.opencast.stats:count"))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "tenant", res.Records[0].OrganizationID)
}

func TestImportExportRestore(t *testing.T) {
	e := newEnv(t)
	importFile := filepath.Join(t.TempDir(), "in.jsonl")
	lines := `{"media_package_id":"a","document":"<a/>"}
{"media_package_id":"a","document":"<a2/>"}
{"media_package_id":"b","series_id":"s","document":"<b/>"}
garbage
`
	require.NoError(t, os.WriteFile(importFile, []byte(lines), 0o644))

	stats := decode[map[string]int](t, e.mustRun(t, "", "import", importFile))
	assert.Equal(t, map[string]int{"stored": 3, "skipped": 1}, stats)
	e.mustRun(t, "", "property", "set", "b", "ns:flag", "true")

	dump := filepath.Join(t.TempDir(), "dump")
	exported := decode[map[string]int](t, e.mustRun(t, "", "export", dump))
	assert.Equal(t, 3, exported["snapshots"])
	assert.Equal(t, 1, exported["properties"])

	fresh := newEnv(t)
	restored := decode[map[string]int](t, fresh.mustRun(t, "", "restore", dump))
	assert.Equal(t, 3, restored["snapshots"])
	assert.Equal(t, 1, restored["properties"])

	res := decode[resultView](t, fresh.mustRun(t, "", "select", "--snapshots", "--latest", "--payload", "--order", "mediaPackageId"))
	require.Len(t, res.Records, 2)
	assert.Equal(t, int64(2), res.Records[0].Snapshot.Version)
	assert.Equal(t, "<a2/>", res.Records[0].Snapshot.Payload)
}

func TestMetricsFile(t *testing.T) {
	e := newEnv(t)
	metricsFile := filepath.Join(t.TempDir(), "assetstore.prom")
	e.mustRun(t, "<mp/>", "snapshot", "put", "a")
	e.mustRun(t, "", "--metrics-file", metricsFile, "select", "--snapshots")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `assetstore_queries_total{kind="select",status="ok"} 1`)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(types.ErrUnauthorized))
	assert.Equal(t, exitSysError, exitCode(types.ErrStoreUnavailable))
}

func TestInferType(t *testing.T) {
	tests := []struct {
		in   string
		want types.ValueType
	}{
		{"true", types.ValueTypeBoolean},
		{"false", types.ValueTypeBoolean},
		{"TRUE", types.ValueTypeString},
		{"42", types.ValueTypeLong},
		{"-7", types.ValueTypeLong},
		{"4.2", types.ValueTypeString},
		{"", types.ValueTypeString},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferType(tt.in), "inferType(%q)", tt.in)
	}
}
