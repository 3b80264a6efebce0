package storage

// SchemaVersion is the current schema version of the local storage file.
const SchemaVersion = 1

const schema = `
-- The 'local_storage' table holds one JSON document per key, the same way a
-- browser's localStorage does.
CREATE TABLE IF NOT EXISTS local_storage (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);
`
