// README: Reward ledger backed by PostgreSQL.
package reward

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"medride/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e Event) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshal reward meta: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO reward_events (id, actor_id, type, points, meta, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.ID),
		string(e.ActorID),
		string(e.Type),
		e.Points,
		meta,
		e.Description,
		e.Timestamp,
	)
	return err
}

func (s *Store) Total(ctx context.Context, actorID types.ID) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM reward_events WHERE actor_id = $1`,
		string(actorID),
	).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, actorID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, actor_id, type, points, meta, description, created_at
		FROM reward_events
		WHERE actor_id = $1
		ORDER BY created_at ASC`, string(actorID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Type, &e.Points, &meta, &e.Description, &e.Timestamp); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal reward meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
