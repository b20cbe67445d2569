// CLAUDE:SUMMARY Lifecycle event log in SQLite — document and query events, non-blocking writes, retention cleanup.
// Package observability records document lifecycle and query events into
// SQLite so ingestion history survives restarts and stays queryable.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/docqa/idgen"
)

// Event types recorded by the service.
const (
	EventUpload      = "document.upload"
	EventQueued      = "document.queued"
	EventProcessing  = "document.processing"
	EventReady       = "document.ready"
	EventError       = "document.error"
	EventDeleted     = "document.deleted"
	EventReprocess   = "document.reprocess"
	EventQueryServed = "query.served"
	EventQueryFailed = "query.failed"
	EventQueryNoHit  = "query.no_context"
)

// Event is one lifecycle record.
type Event struct {
	EventType string
	EntityID  string // document id, or empty for corpus-level query events
	Action    string
	Details   string // optional JSON
	Success   bool
}

// EventLogger writes lifecycle events.
type EventLogger struct {
	db  *sql.DB
	ids idgen.Generator
}

// NewEventLogger creates a logger backed by db. The events table must be
// present (apply Schema when opening the database).
func NewEventLogger(db *sql.DB) *EventLogger {
	return &EventLogger{db: db, ids: idgen.Prefixed("evt_", idgen.UUIDv7())}
}

// Log records an event. Non-blocking: errors are logged via slog but do not
// propagate, so a failing event store never blocks ingestion or queries.
func (l *EventLogger) Log(ctx context.Context, event Event) {
	if l == nil || l.db == nil {
		return
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO event_logs (event_id, event_type, entity_id, action, details, success, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		l.ids(), event.EventType, event.EntityID,
		event.Action, event.Details, event.Success, time.Now().Unix())
	if err != nil {
		slog.Error("event log failed", "error", err, "event_type", event.EventType)
	}
}

// Recent returns the latest n events for an entity, newest first. An empty
// entityID returns events across the whole corpus.
func (l *EventLogger) Recent(ctx context.Context, entityID string, n int) ([]Event, error) {
	if n <= 0 {
		n = 50
	}
	query := `SELECT event_type, entity_id, action, details, success FROM event_logs`
	args := []any{}
	if entityID != "" {
		query += ` WHERE entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY created_at DESC, event_id DESC LIMIT ?`
	args = append(args, n)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventType, &e.EntityID, &e.Action, &e.Details, &e.Success); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than days. Zero or negative days is a no-op.
func Cleanup(ctx context.Context, db *sql.DB, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := db.ExecContext(ctx, `DELETE FROM event_logs WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("event log cleanup: %w", err)
	}
	return nil
}
