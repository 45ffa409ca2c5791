// README: SQLite connection and schema for single-site deployments.
package infra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transport_requests (
	id              TEXT PRIMARY KEY,
	created_at      TIMESTAMP NOT NULL,
	requester_id    TEXT,
	requester_role  TEXT NOT NULL,
	patient_name    TEXT NOT NULL,
	contact_phone   TEXT NOT NULL,
	pickup          TEXT NOT NULL,
	destination     TEXT NOT NULL,
	distance_km     REAL NOT NULL CHECK (distance_km >= 1),
	urgency         TEXT NOT NULL,
	payment_method  TEXT NOT NULL,
	estimated_cost  INTEGER NOT NULL,
	currency        TEXT NOT NULL DEFAULT 'KES',
	status          TEXT NOT NULL,
	status_version  INTEGER NOT NULL DEFAULT 0,
	rider_id        TEXT,
	accepted_at     TIMESTAMP,
	started_at      TIMESTAMP,
	completed_at    TIMESTAMP,
	rejected_at     TIMESTAMP,
	cancelled_at    TIMESTAMP,
	cancel_reason   TEXT
);

CREATE INDEX IF NOT EXISTS idx_transport_requests_status_created
	ON transport_requests (status, created_at);

CREATE TABLE IF NOT EXISTS request_history (
	id              TEXT PRIMARY KEY,
	request_id      TEXT NOT NULL UNIQUE REFERENCES transport_requests (id),
	rider_id        TEXT NOT NULL,
	requester_id    TEXT,
	requester_role  TEXT NOT NULL,
	patient_name    TEXT NOT NULL,
	pickup          TEXT NOT NULL,
	destination     TEXT NOT NULL,
	distance_km     REAL NOT NULL,
	urgency         TEXT NOT NULL,
	payment_method  TEXT NOT NULL,
	cost            INTEGER NOT NULL,
	currency        TEXT NOT NULL DEFAULT 'KES',
	created_at      TIMESTAMP NOT NULL,
	completed_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reward_events (
	id           TEXT PRIMARY KEY,
	actor_id     TEXT NOT NULL,
	type         TEXT NOT NULL,
	points       INTEGER NOT NULL CHECK (points >= 0),
	meta         TEXT,
	description  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reward_events_actor
	ON reward_events (actor_id, created_at);
`

// NewSQLite opens the database file and applies the schema. Use ":memory:"
// for a throwaway database.
func NewSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}
