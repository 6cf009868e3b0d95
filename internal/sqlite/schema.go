package sqlite

// Schema DDL for all tables.
const (
	createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    mp_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    series_id TEXT,
    payload BLOB NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (org_id, mp_id, version)
);`

	createProperties = `CREATE TABLE IF NOT EXISTS properties (
    org_id TEXT NOT NULL,
    mp_id TEXT NOT NULL,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL,
    value_type TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (org_id, mp_id, namespace, name)
);`

	createVersionClaims = `CREATE TABLE IF NOT EXISTS version_claims (
    org_id TEXT NOT NULL,
    mp_id TEXT NOT NULL,
    last_version INTEGER NOT NULL,
    PRIMARY KEY (org_id, mp_id)
);`
)

// Index DDL for common queries.
const (
	idxSnapshotsSeries     = `CREATE INDEX IF NOT EXISTS idx_snapshots_series ON snapshots(org_id, series_id);`
	idxPropertiesSlot      = `CREATE INDEX IF NOT EXISTS idx_properties_slot ON properties(org_id, namespace, name);`
	idxPropertiesSlotValue = `CREATE INDEX IF NOT EXISTS idx_properties_slot_value ON properties(namespace, name, value_type, value);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createSnapshots,
	createProperties,
	createVersionClaims,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxSnapshotsSeries,
	idxPropertiesSlot,
	idxPropertiesSlotValue,
}
