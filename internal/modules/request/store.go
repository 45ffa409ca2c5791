// README: Request repository backed by PostgreSQL.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medride/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectRequest = `
	SELECT id, created_at, requester_id, requester_role, patient_name, contact_phone,
	       pickup, destination, distance_km, urgency, payment_method,
	       estimated_cost, currency, status, status_version, rider_id,
	       accepted_at, started_at, completed_at, rejected_at, cancelled_at, cancel_reason
	FROM transport_requests`

func (s *Store) Put(ctx context.Context, r *Request) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transport_requests (
			id, created_at, requester_id, requester_role, patient_name, contact_phone,
			pickup, destination, distance_km, urgency, payment_method,
			estimated_cost, currency, status, status_version
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)`,
		string(r.ID),
		r.CreatedAt,
		nullableID(r.RequesterID),
		string(r.RequesterRole),
		r.PatientName,
		r.ContactPhone,
		r.Pickup,
		r.Destination,
		r.DistanceKm,
		string(r.Urgency),
		string(r.PaymentMethod),
		r.EstimatedCost.Amount,
		r.EstimatedCost.Currency,
		string(r.Status),
		r.StatusVersion,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, selectRequest+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) List(ctx context.Context) ([]*Request, error) {
	return s.query(ctx, selectRequest+` ORDER BY created_at DESC, id DESC`)
}

func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]*Request, error) {
	return s.query(ctx, selectRequest+` WHERE status = 'pending' AND created_at < $1 ORDER BY created_at ASC`, cutoff)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*Request, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, t Transition) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE transport_requests
		SET status = $1,
		    status_version = status_version + 1,
		    rider_id = COALESCE($2, rider_id),
		    accepted_at = CASE WHEN $1 = 'accepted' THEN $3 ELSE accepted_at END,
		    started_at = CASE WHEN $1 = 'in_progress' THEN $3 ELSE started_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN $3 ELSE completed_at END,
		    rejected_at = CASE WHEN $1 = 'rejected' THEN $3 ELSE rejected_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN $3 ELSE cancelled_at END,
		    cancel_reason = COALESCE($4, cancel_reason)
		WHERE id = $5 AND status = $6 AND status_version = $7`,
		string(t.To),
		toStringPtr(riderForUpdate(t)),
		t.At,
		t.Reason,
		string(t.ID),
		string(t.From),
		t.Version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if h := t.History; h != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO request_history (
				id, request_id, rider_id, requester_id, requester_role, patient_name,
				pickup, destination, distance_km, urgency, payment_method,
				cost, currency, created_at, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			string(h.ID), string(h.RequestID), string(h.RiderID), nullableID(h.RequesterID),
			string(h.RequesterRole), h.PatientName, h.Pickup, h.Destination, h.DistanceKm,
			string(h.Urgency), string(h.PaymentMethod), h.Cost.Amount, h.Cost.Currency,
			h.CreatedAt, h.CompletedAt,
		); err != nil {
			return false, fmt.Errorf("insert history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListHistory(ctx context.Context) ([]HistoryItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, rider_id, COALESCE(requester_id, ''), requester_role, patient_name,
		       pickup, destination, distance_km, urgency, payment_method,
		       cost, currency, created_at, completed_at
		FROM request_history
		ORDER BY completed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]HistoryItem, 0)
	for rows.Next() {
		var h HistoryItem
		if err := rows.Scan(
			&h.ID, &h.RequestID, &h.RiderID, &h.RequesterID, &h.RequesterRole, &h.PatientName,
			&h.Pickup, &h.Destination, &h.DistanceKm, &h.Urgency, &h.PaymentMethod,
			&h.Cost.Amount, &h.Cost.Currency, &h.CreatedAt, &h.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var requesterID, riderID, cancelReason *string
	err := row.Scan(
		&r.ID, &r.CreatedAt, &requesterID, &r.RequesterRole, &r.PatientName, &r.ContactPhone,
		&r.Pickup, &r.Destination, &r.DistanceKm, &r.Urgency, &r.PaymentMethod,
		&r.EstimatedCost.Amount, &r.EstimatedCost.Currency, &r.Status, &r.StatusVersion, &riderID,
		&r.AcceptedAt, &r.StartedAt, &r.CompletedAt, &r.RejectedAt, &r.CancelledAt, &cancelReason,
	)
	if err != nil {
		return nil, err
	}
	if requesterID != nil {
		r.RequesterID = types.ID(*requesterID)
	}
	if riderID != nil {
		d := types.ID(*riderID)
		r.RiderID = &d
	}
	r.CancelReason = cancelReason
	if r.EstimatedCost.Currency == "" {
		r.EstimatedCost.Currency = types.DefaultCurrency
	}
	return &r, nil
}

// riderForUpdate only lets the accept transition assign a rider.
func riderForUpdate(t Transition) *types.ID {
	if t.To != StatusAccepted {
		return nil
	}
	return t.RiderID
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func nullableID(v types.ID) *string {
	if v == "" {
		return nil
	}
	s := string(v)
	return &s
}
