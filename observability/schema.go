package observability

// Schema contains the DDL for the event log table.
const Schema = `
CREATE TABLE IF NOT EXISTS event_logs (
    event_id   TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    entity_id  TEXT NOT NULL DEFAULT '',
    action     TEXT NOT NULL DEFAULT '',
    details    TEXT NOT NULL DEFAULT '',
    success    INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_logs_entity ON event_logs(entity_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_event_logs_type ON event_logs(event_type, created_at DESC);
`
