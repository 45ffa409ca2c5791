// README: Reward ledger backed by SQLite for single-site deployments.
package reward

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"medride/internal/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshal reward meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reward_events (id, actor_id, type, points, meta, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.ActorID), string(e.Type), e.Points, string(meta), e.Description, e.Timestamp.UTC(),
	)
	return err
}

func (s *SQLiteStore) Total(ctx context.Context, actorID types.ID) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM reward_events WHERE actor_id = ?`, string(actorID),
	).Scan(&total)
	return total, err
}

func (s *SQLiteStore) List(ctx context.Context, actorID types.ID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, type, points, meta, description, created_at
		 FROM reward_events WHERE actor_id = ? ORDER BY created_at ASC`, string(actorID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var meta string
		var at time.Time
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Type, &e.Points, &meta, &e.Description, &at); err != nil {
			return nil, err
		}
		e.Timestamp = at
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal reward meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
