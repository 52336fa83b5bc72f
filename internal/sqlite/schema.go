package sqlite

// Schema DDL. The database is rebuilt from records.jsonl on every Attach,
// so there are no migrations.
const (
	createRecords = `CREATE TABLE records (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    reference TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    customer_name TEXT NOT NULL DEFAULT '',
    customer_email TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    total REAL NOT NULL DEFAULT 0,
    payload TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxRecordsKindStatus = `CREATE INDEX idx_records_kind_status ON records(kind, status);`
)

// schemaDDL lists the statements run against a fresh database.
var schemaDDL = []string{
	createRecords,
	idxRecordsKindStatus,
}

// recordColumns is the column list shared by every SELECT of a record, in
// the order scanRecord expects.
const recordColumns = "record_id, kind, status, reference, title, customer_name, customer_email, category, total, payload, created_at, updated_at"
